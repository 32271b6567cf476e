package httpx

import (
	"errors"
	"net/http"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

// RespondError maps classified pipeline errors to HTTP responses.
// Unknown errors surface their message only outside production.
func RespondError(w http.ResponseWriter, err error, production bool) {
	var integrity *shared.IntegrityError
	switch {
	case errors.Is(err, shared.ErrValidation):
		JSON(w, http.StatusBadRequest, Envelope{Success: false, Message: err.Error()})
	case errors.Is(err, shared.ErrNotFound):
		JSON(w, http.StatusNotFound, Envelope{Success: false, Message: err.Error()})
	case errors.As(err, &integrity):
		JSON(w, http.StatusBadRequest, Envelope{Success: false, Message: integrity.Message, Error: integrity.Field})
	case errors.Is(err, shared.ErrDependency):
		JSON(w, http.StatusInternalServerError, Envelope{Success: false, Message: "dependency failure", Error: detail(err, production)})
	case errors.Is(err, shared.ErrConflict):
		JSON(w, http.StatusConflict, Envelope{Success: false, Message: err.Error()})
	default:
		JSON(w, http.StatusInternalServerError, Envelope{Success: false, Message: "internal server error", Error: detail(err, production)})
	}
}

func detail(err error, production bool) string {
	if production {
		return ""
	}
	return err.Error()
}
