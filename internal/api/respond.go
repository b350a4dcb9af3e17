package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"fastx-gateway/internal/pipeline"
)

const internalErrorMessage = "Internal server error"

// unixNow is the float Unix timestamp stamped on every response.
func unixNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:      msg,
		StatusCode: status,
		Timestamp:  unixNow(),
		Code:       code,
		RequestID:  RequestIDFromContext(r.Context()),
	})
}

// failureBody is the error envelope for a failed outcome. Internal errors
// never leak their message.
func failureBody(r *http.Request, out pipeline.Outcome) ErrorResponse {
	msg := out.Err.Error()
	if out.Kind == pipeline.KindInternal {
		msg = internalErrorMessage
	}
	return ErrorResponse{
		Error:      msg,
		StatusCode: out.Kind.HTTPStatus(),
		Timestamp:  unixNow(),
		Code:       out.Kind.Code(),
		RequestID:  RequestIDFromContext(r.Context()),
	}
}

func writeFailure(w http.ResponseWriter, r *http.Request, out pipeline.Outcome) {
	writeJSON(w, out.Kind.HTTPStatus(), failureBody(r, out))
}
