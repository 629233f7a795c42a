package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mhub-bridge/internal/entity"
)

// handleListEntities returns every entity state ordered by unique id.
func (s *Server) handleListEntities(w http.ResponseWriter, _ *http.Request) {
	states := s.entities.States()
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": states,
		"count":    len(states),
	})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.entities.Get(id)
	if !ok {
		writeNotFound(w, "entity not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, e.State())
}

// handleEntityCommand runs a command and returns the optimistic state. The
// device request completes in the background, so success here means the
// command was accepted, not applied.
func (s *Server) handleEntityCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var cmd entity.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if cmd.Action == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "action is required")
		return
	}

	if err := s.entities.Handle(r.Context(), id, cmd); err != nil {
		if !writeDomainError(w, err, "command failed") {
			s.logger.Error("entity command failed", "entity", id, "action", cmd.Action, "error", err)
		}
		return
	}

	resp := map[string]any{"status": "accepted"}
	if e, ok := s.entities.Get(id); ok {
		resp["state"] = e.State()
	}
	writeJSON(w, http.StatusAccepted, resp)
}
