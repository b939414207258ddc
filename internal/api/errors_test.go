package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"arkiva/internal/domain"
)

func TestHTTPStatusFromDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", domain.ErrUnauthenticated("no token"), http.StatusUnauthorized},
		{"access denied", domain.ErrAccessDenied("nope"), http.StatusForbidden},
		{"validation", domain.ErrValidation("bad title"), http.StatusBadRequest},
		{"not found", domain.ErrNotFound("document 9"), http.StatusNotFound},
		{"conflict", domain.ErrConflict("duplicate"), http.StatusConflict},
		{"unavailable", domain.ErrUnavailable(errors.New("timeout"), "drive unavailable"), http.StatusBadGateway},
		{"wrapped not found", fmt.Errorf("get: %w", domain.ErrNotFound("document 9")), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{
			// Credential exhaustion joins the per-candidate causes, and for a
			// user without a connected drive the first cause is a NotFound from
			// the credential lookup. The aggregate still maps to 502.
			name: "unavailable with not-found causes",
			err: domain.ErrUnavailable(
				errors.Join(
					fmt.Errorf("acting-user: %w", domain.ErrNotFound("no drive credential for user 3")),
					fmt.Errorf("legacy: %w", errors.New("quota exceeded")),
				),
				"drive unavailable: all credential candidates failed"),
			want: http.StatusBadGateway,
		},
		{
			name: "unavailable with validation cause",
			err: domain.ErrUnavailable(
				domain.ErrValidation("summarizer is not configured"),
				"summarizer unavailable"),
			want: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := httpStatusFromDomainError(tt.err)
			assert.Equal(t, tt.want, status)
		})
	}

	assert.Equal(t, "external_unavailable", errorCode(http.StatusBadGateway))
	assert.Equal(t, "not_found", errorCode(http.StatusNotFound))
}
