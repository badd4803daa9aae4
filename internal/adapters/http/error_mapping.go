package httpadapter

import (
	"net/http"

	"github.com/intelliject/intelliject/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrIndexMismatch):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrIngestion):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrExternalService):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
