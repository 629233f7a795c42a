package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/mhub-bridge/internal/entry"
)

type validateRequest struct {
	Host string `json:"host"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	if s.entries == nil {
		writeJSON(w, http.StatusOK, map[string]any{"entries": []entry.Entry{}, "count": 0})
		return
	}
	entries, err := s.entries.List(r.Context())
	if err != nil {
		s.logger.Error("listing config entries failed", "error", err)
		writeInternalError(w, "listing entries failed")
		return
	}
	if entries == nil {
		entries = []entry.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleValidateEntry runs the setup connectivity check against a host
// without storing anything.
func (s *Server) handleValidateEntry(w http.ResponseWriter, r *http.Request) {
	if s.validator == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "validation not available")
		return
	}

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	info, err := s.validator.Validate(r.Context(), req.Host)
	if err != nil {
		if !writeDomainError(w, err, "validation failed") {
			s.logger.Error("host validation failed", "host", req.Host, "error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, info)
}
