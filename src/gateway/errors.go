package gateway

import (
	"errors"
	"net/http"

	"github.com/rwa-portal/anchorgate/src/utils/apperr"
)

// statusOf maps the shared error taxonomy to HTTP statuses. Every
// rejection flows through LOGE so the body is always {message}.
func statusOf(err error) int {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrLedgerUnavailable),
		errors.Is(err, apperr.ErrChainUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrMintFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
