package api

import (
	"context"
	"errors"
	"net/http"
)

// handleGetDevice returns the config entry with the hub's capabilities and
// availability record.
func (s *Server) handleGetDevice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"entry":        s.entry,
		"host":         s.device.Host(),
		"capabilities": s.device.Capabilities(),
		"status":       s.device.Status(),
	})
}

// handleGetSnapshot returns the last raw payloads read from the hub.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.device.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeDeviceUnreachable, "no snapshot yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleRefresh runs a refresh cycle, or joins the one in flight, and
// returns the resulting status. A failed cycle is a 502.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.device.Refresh(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"capabilities": s.device.Capabilities(),
			"status":       s.device.Status(),
		})
	case errors.Is(err, context.Canceled):
		// Client went away; the cycle itself carries on.
		return
	default:
		writeError(w, http.StatusBadGateway, ErrCodeDeviceUnreachable, err.Error())
	}
}
