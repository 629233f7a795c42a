package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/mhub-bridge/internal/entity"
	"github.com/nerrad567/mhub-bridge/internal/entry"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes clients can switch on.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeInternal          = "internal_error"
	ErrCodeValidation        = "validation_error"
	ErrCodeCannotConnect     = "cannot_connect"
	ErrCodeDeviceUnreachable = "device_unreachable"
)

// domainErrors maps entity and entry sentinels to a status and code. The
// first match wins.
var domainErrors = []struct {
	target error
	status int
	code   string
}{
	{entity.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{entity.ErrUnsupportedAction, http.StatusBadRequest, ErrCodeValidation},
	{entity.ErrInvalidValue, http.StatusBadRequest, ErrCodeValidation},
	{entry.ErrInvalidHost, http.StatusBadRequest, ErrCodeValidation},
	{entry.ErrCannotConnect, http.StatusUnprocessableEntity, ErrCodeCannotConnect},
}

// classify returns the response status and code for err. ok is false for
// errors no client can act on.
func classify(err error) (status int, code string, ok bool) {
	for _, d := range domainErrors {
		if errors.Is(err, d.target) {
			return d.status, d.code, true
		}
	}
	return http.StatusInternalServerError, ErrCodeInternal, false
}

// writeDomainError answers with the mapped status and err's message, or a
// generic 500 carrying fallback when err is not a known sentinel. It
// reports whether err was known so callers can log the rest.
func writeDomainError(w http.ResponseWriter, err error, fallback string) bool {
	status, code, ok := classify(err)
	if !ok {
		writeInternalError(w, fallback)
		return false
	}
	writeError(w, status, code, err.Error())
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // client may already be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}
