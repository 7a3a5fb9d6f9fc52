package api

import (
	"errors"
	"net/http"

	"github.com/beatfall/scoreboard/internal/adapters/repository"
	service "github.com/beatfall/scoreboard/internal/app"
	"github.com/beatfall/scoreboard/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
)

// writeServiceError maps a coordinator error onto the HTTP taxonomy.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation_error", verr)
	case errors.Is(err, service.ErrDuplicateSubmission):
		writeError(w, http.StatusConflict, "duplicate_submission", err)
	case errors.Is(err, repository.ErrAccountNotFound):
		// Authenticated caller without a backing account row: internal
		// consistency fault, not a client mistake.
		writeError(w, http.StatusInternalServerError, "account_not_found", err)
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
