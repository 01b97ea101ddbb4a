package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is an error whose code and message are safe to show to API clients.
// Status is the envelope status it is reported under.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func newAppError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{}, 1)
	}
	e.Params[key] = value
	return e
}

// WithError attaches the cause; it is logged but never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func InternalError(message string) *AppError {
	return newAppError(http.StatusInternalServerError, "ERR_INTERNAL", message)
}

func UnavailableError(message string) *AppError {
	return newAppError(http.StatusServiceUnavailable, "ERR_UNAVAILABLE", message)
}

// TooManyRequestsError carries the wait in whole seconds as retry_after_seconds.
func TooManyRequestsError(message string, retryAfter time.Duration) *AppError {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return newAppError(http.StatusTooManyRequests, "ERR_RATE_LIMITED", message).
		WithParam("retry_after_seconds", secs)
}

// asAppError returns err's AppError, classifying anything else. Deadlines and
// cancellations surface as 503 so clients retry instead of reporting a bug.
func asAppError(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return UnavailableError("request timed out").WithError(err)
	default:
		return InternalError("Something went wrong").WithError(err)
	}
}
