package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"self follow", ErrSelfFollow, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("add comment: %w", ErrValidation), http.StatusBadRequest},
		{"app error", Validation("content is too short"), http.StatusBadRequest},
		{"not found", ErrNotFoundOrForbidden, http.StatusNotFound},
		{"conflict", New(ErrConflict, "like toggled concurrently"), http.StatusConflict},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"unavailable", ErrUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapErrorToStatus(tt.err); got != tt.want {
				t.Errorf("MapErrorToStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if got := Message(Validation("title is required")); got != "title is required" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(errors.New("pq: connection refused")); got != "Internal Server Error" {
		t.Errorf("internal errors must be masked, got %q", got)
	}
	if got := Message(ErrSelfFollow); got != ErrSelfFollow.Error() {
		t.Errorf("Message() = %q", got)
	}
}
