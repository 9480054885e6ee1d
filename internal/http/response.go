package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/store"
)

var validationErrors = []error{
	core.ErrInvalidYear,
	core.ErrInvalidMonth,
	core.ErrInvalidAmount,
	core.ErrInvalidType,
	core.ErrInvalidMode,
	core.ErrInvalidInstallments,
	core.ErrMissingDimension,
	core.ErrEmptyName,
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateKey):
		return http.StatusConflict
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the mapped status. Server errors are logged and
// their text is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, op, nil)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorDTO{Error: msg, RequestID: trace.RequestIDFrom(r)})
}
