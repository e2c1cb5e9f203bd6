package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/fundraise"
)

// genericFailure is the only text a caller sees for integrity and
// database failures.
const genericFailure = "temporary failure, please retry"

type fieldErrors struct {
	Errors map[string][]string `json:"errors"`
}

type detail struct {
	Detail string `json:"detail"`
}

// writeError maps an engine error onto a status code and body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *fundraise.ValidationError
		ce *fundraise.CapacityError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, fieldErrors{Errors: map[string][]string{ve.Field: {ve.Message}}})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusBadRequest, fieldErrors{Errors: map[string][]string{"amount": {ce.Message()}}})
	case fundraise.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, detail{Detail: strings.TrimPrefix(err.Error(), "fundraise: ")})
	case fundraise.IsAuthorization(err):
		writeJSON(w, http.StatusForbidden, detail{Detail: strings.TrimPrefix(err.Error(), "fundraise: ")})
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusServiceUnavailable, detail{Detail: genericFailure})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}
