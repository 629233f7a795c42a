package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/mhub-bridge/internal/entity"
	"github.com/nerrad567/mhub-bridge/internal/entry"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantKnown  bool
	}{
		{"unknown entity", fmt.Errorf("%w: mhub_volume_z", entity.ErrNotFound), http.StatusNotFound, ErrCodeNotFound, true},
		{"unsupported action", entity.ErrUnsupportedAction, http.StatusBadRequest, ErrCodeValidation, true},
		{"invalid value", fmt.Errorf("volume: %w", entity.ErrInvalidValue), http.StatusBadRequest, ErrCodeValidation, true},
		{"invalid host", entry.ErrInvalidHost, http.StatusBadRequest, ErrCodeValidation, true},
		{"cannot connect", fmt.Errorf("%w: 10.0.0.5", entry.ErrCannotConnect), http.StatusUnprocessableEntity, ErrCodeCannotConnect, true},
		{"other", errors.New("disk full"), http.StatusInternalServerError, ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if known := writeDomainError(w, tt.err, "failed"); known != tt.wantKnown {
				t.Errorf("writeDomainError() = %v, want %v", known, tt.wantKnown)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body Error
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if !tt.wantKnown && body.Message != "failed" {
				t.Errorf("message = %q, want fallback", body.Message)
			}
		})
	}
}
