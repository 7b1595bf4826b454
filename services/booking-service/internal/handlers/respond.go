package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/bookly/libs/httpx"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/errs"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/storage"
)

const conflictMessage = "that time is no longer available, please pick another time"

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// writeError maps the domain error kinds to HTTP. Unexpected failures are logged with the
// request id and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		v  *errs.ValidationError
		c  *errs.ConflictError
		nf *errs.NotFoundError
		tr *errs.TransitionError
		iu *errs.InUseError
	)
	switch {
	case errors.As(err, &v):
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "validation failed", Fields: v.Fields})
	case errors.As(err, &c):
		httpx.WriteError(w, http.StatusConflict, conflictMessage)
	case errors.As(err, &nf):
		httpx.WriteError(w, http.StatusNotFound, nf.Entity+" not found")
	case errors.As(err, &tr):
		httpx.WriteError(w, http.StatusConflict, tr.Error())
	case errors.As(err, &iu):
		httpx.WriteError(w, http.StatusConflict, iu.Error())
	case errors.Is(err, storage.ErrDuplicate):
		httpx.WriteError(w, http.StatusConflict, "record already exists")
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(w, http.StatusServiceUnavailable, "request timed out")
	default:
		logger.Error("request failed",
			"err", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
		)
		httpx.WriteError(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}

// decode writes a 400 and returns false when the body is not a single known-field object.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
