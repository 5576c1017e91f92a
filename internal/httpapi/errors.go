package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"mirrorpond/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusClientClosed is logged (never sent) when the client went away.
const statusClientClosed = 499

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the JSON error payload for err.
func errorBody(err error) types.ErrorResponse {
	code := statusFor(err)
	if code == http.StatusTooManyRequests {
		IncrementBackpressure("queue")
	}
	return types.ErrorResponse{Error: err.Error(), Code: code}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeServiceError writes err with its mapped status code.
func writeServiceError(w http.ResponseWriter, err error) int {
	body := errorBody(err)
	writeJSONError(w, body.Code, body.Error)
	return body.Code
}
