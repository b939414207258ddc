package api

import (
	"errors"
	"net/http"

	"arkiva/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var unauthenticated *domain.UnauthenticatedError
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var unavailable *domain.UnavailableError

	// UnavailableError must be checked before the narrower types: its cause
	// chain aggregates per-candidate failures, which routinely contain
	// NotFound (no stored credential) or Validation errors, and credential
	// exhaustion is a gateway failure regardless of what the candidates
	// failed with.
	switch {
	case errors.As(err, &unauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &unavailable):
		return http.StatusBadGateway
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorCode returns the envelope code for an HTTP status.
func errorCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusBadGateway:
		return "external_unavailable"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "internal_error"
	}
}
