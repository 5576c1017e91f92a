package manager

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrEmptyOutput marks a generation that finished without producing any text.
var ErrEmptyOutput = errors.New("model produced no output")

// ValidationError is a caller mistake (empty input, unknown mode). It is
// raised before the model is touched and is never retried.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ValidationError) Unwrap() error   { return e.Err }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// GenerationError means the runtime failed or produced no usable output.
type GenerationError struct {
	Pass string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s pass): %v", e.Pass, e.Err)
}

func (e *GenerationError) Unwrap() error   { return e.Err }
func (e *GenerationError) StatusCode() int { return http.StatusInternalServerError }

// TimeoutError means a generation call exceeded its wall-clock budget.
type TimeoutError struct {
	Pass   string
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generation exceeded %s budget (%s pass)", e.Budget, e.Pass)
}

func (e *TimeoutError) Unwrap() error   { return errTimeout }
func (e *TimeoutError) StatusCode() int { return http.StatusGatewayTimeout }

var errTimeout = errors.New("generation timeout")

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsGeneration reports whether err is (or wraps) a GenerationError.
func IsGeneration(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ reason string }

func (e tooBusyError) Error() string   { return "too busy: " + e.reason }
func (e tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var tb tooBusyError
	return errors.As(err, &tb)
}

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp)
// so the HTTP layer can return 503 Service Unavailable instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string   { return e.msg }
func (e dependencyUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var de dependencyUnavailableError
	return errors.As(err, &de)
}
