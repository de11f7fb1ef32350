package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/devsec-blog-be/internal/api/respond"
	"github.com/isdelr/devsec-blog-be/internal/auth"
	"github.com/isdelr/devsec-blog-be/internal/services"
	"github.com/isdelr/devsec-blog-be/internal/validation"
	"github.com/rs/zerolog/log"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// errorMessages are the client-facing messages for a handler's failure modes.
type errorMessages struct {
	NotFound  string
	Forbidden string
	Internal  string
}

// decodeJSON decodes the request body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// currentSession returns the caller's session or answers 401.
func currentSession(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	session, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Unauthorized")
		return auth.Session{}, false
	}
	return session, true
}

// writeServiceError maps service errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500 carrying only a message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msgs errorMessages) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respond.Validation(w, verr)
	case errors.Is(err, services.ErrNotFound):
		respond.Error(w, http.StatusNotFound, msgs.NotFound)
	case errors.Is(err, services.ErrForbidden):
		forbidden := msgs.Forbidden
		if forbidden == "" {
			forbidden = "Admin access required"
		}
		respond.Error(w, http.StatusForbidden, forbidden)
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(msgs.Internal)
		respond.Error(w, http.StatusInternalServerError, msgs.Internal)
	}
}
