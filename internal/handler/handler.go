package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and code.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	logger.Warn().
		Str("error", message).
		Str("code", code).
		Int("status", status).
		Str("path", r.URL.Path).
		Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: middleware.RequestIDFromContext(r.Context()),
	})
}

// writeServiceError maps err to an HTTP status. Domain errors keep their
// code and message; anything else is logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("unexpected service error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error:         model.ErrCodeInternalError,
			Message:       "an unexpected error occurred",
			CorrelationID: middleware.RequestIDFromContext(r.Context()),
		})
		return
	}

	status := statusFor(de.Kind)
	logger.Debug().
		Str("kind", string(de.Kind)).
		Str("code", de.Code).
		Int("status", status).
		Str("path", r.URL.Path).
		Msg(de.Message)
	writeJSON(w, status, model.ErrorResponse{
		Error:         de.Code,
		Message:       de.Message,
		Fields:        de.Fields,
		CorrelationID: middleware.RequestIDFromContext(r.Context()),
	})
}

func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound, model.KindCartNotFound, model.KindAddressNotFound:
		return http.StatusNotFound
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindInsufficientStock, model.KindEmptyCart, model.KindValidation:
		return http.StatusBadRequest
	case model.KindInvalidState, model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// pathID parses a positive integer route variable.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// callerID returns the user resolved by the identity middleware.
func callerID(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "missing user identity", logger)
		return 0, false
	}
	return userID, true
}
