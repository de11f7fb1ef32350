// Package respond writes the JSON response and error shapes shared by every
// API route: {"message": "...", "errors": [{"field", "message"}]}.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/isdelr/devsec-blog-be/internal/validation"
	"github.com/rs/zerolog/log"
)

// ErrorBody is the JSON error shape.
type ErrorBody struct {
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Stack   string                  `json:"stack,omitempty"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response body")
	}
}

// Error writes {"message": msg} with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Message: msg})
}

// Validation writes a 400 with the field-keyed errors.
func Validation(w http.ResponseWriter, verr *validation.Error) {
	JSON(w, http.StatusBadRequest, ErrorBody{Message: "Validation failed", Errors: verr.Fields})
}
