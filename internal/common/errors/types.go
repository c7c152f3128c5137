// Package errors defines the typed application errors used across the
// enrichment service and their mapping onto HTTP responses.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorType classifies an AppError. It drives retry decisions and the HTTP
// status of a failed request.
type ErrorType string

const (
	// ErrTypeValidation is a malformed or missing input; never retried
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeFetch is an unreachable or non-2xx upstream (page or model API)
	ErrTypeFetch ErrorType = "fetch"
	// ErrTypeExtraction is a malformed or absent model response
	ErrTypeExtraction ErrorType = "extraction"
	// ErrTypeStorage is a failure of the durable cache tier
	ErrTypeStorage ErrorType = "storage"
	// ErrTypeRateLimit is a request refused by admission control
	ErrTypeRateLimit ErrorType = "rate_limit"
	// ErrTypeInProgress is a request for a key that is already being enriched
	ErrTypeInProgress ErrorType = "in_progress"
	ErrTypeTimeout    ErrorType = "timeout"
	ErrTypeConfig     ErrorType = "config"
	// ErrTypeInternal is also reported for errors that are not AppErrors
	ErrTypeInternal ErrorType = "internal"
)

// AppError is a typed error. Context holds structured details such as the
// retry hint of a rate limit refusal.
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error renders "type: message[: cause=...][: context={k=v, ...}]" with
// context keys sorted.
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": cause=%v", e.Cause)
	}
	if len(e.Context) == 0 {
		return b.String()
	}

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString(": context={")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
	}
	b.WriteString("}")
	return b.String()
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithContext sets key on the error and returns it for chaining
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	e.Context[key] = value
	return e
}

func newError(t ErrorType, msg string, cause error) *AppError {
	return &AppError{Type: t, Message: msg, Cause: cause}
}

func ValidationError(msg string) *AppError { return newError(ErrTypeValidation, msg, nil) }

// FetchError is a transient upstream failure
func FetchError(msg string, cause error) *AppError { return newError(ErrTypeFetch, msg, cause) }

func ExtractionError(msg string, cause error) *AppError {
	return newError(ErrTypeExtraction, msg, cause)
}

func StorageError(msg string, cause error) *AppError { return newError(ErrTypeStorage, msg, cause) }

// RateLimitError carries the retry hint in seconds under "retry_after"
func RateLimitError(identity string, retryAfterSeconds int) *AppError {
	return newError(ErrTypeRateLimit, "rate limit exceeded for "+identity, nil).
		WithContext("retry_after", retryAfterSeconds)
}

// InProgressError reports a key that another worker is already enriching
func InProgressError(key string) *AppError {
	return newError(ErrTypeInProgress, "enrichment already in progress", nil).WithContext("key", key)
}

// TimeoutError is an operation that ran out of its own time budget. It is
// retried like a fetch error.
func TimeoutError(operation string, cause error) *AppError {
	return newError(ErrTypeTimeout, "timeout during "+operation, cause)
}

func ConfigError(msg string) *AppError { return newError(ErrTypeConfig, msg, nil) }

func InternalError(msg string, cause error) *AppError { return newError(ErrTypeInternal, msg, cause) }

// As returns the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether the first AppError in err's chain has type t
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// GetType is empty for nil and ErrTypeInternal for errors outside the AppError family
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Type
	}
	return ErrTypeInternal
}

// IsRetryable reports whether a retrier should attempt the operation again.
// Validation, rate-limit and in-progress errors are final, as is anything
// caused by a cancelled context.
func IsRetryable(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) {
		return false
	}
	switch GetType(err) {
	case ErrTypeValidation, ErrTypeRateLimit, ErrTypeInProgress, ErrTypeConfig:
		return false
	default:
		return true
	}
}

// HTTPStatus maps an error onto the response status of the enrich endpoint
func HTTPStatus(err error) int {
	switch GetType(err) {
	case ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeFetch, ErrTypeTimeout:
		return http.StatusServiceUnavailable
	case ErrTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrTypeInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Suggestion returns the user-facing hint that accompanies an error response
func Suggestion(err error) string {
	switch GetType(err) {
	case ErrTypeFetch, ErrTypeTimeout:
		return "Check if the website is accessible and try again"
	case ErrTypeRateLimit:
		return "Too many enrichment requests, wait a moment and try again"
	case ErrTypeInProgress:
		return "This company is already being enriched, try again shortly"
	default:
		return "Please check your input and try again"
	}
}

// RetryAfter extracts the retry hint from a rate limit error
func RetryAfter(err error) (int, bool) {
	appErr, ok := As(err)
	if !ok || appErr.Type != ErrTypeRateLimit {
		return 0, false
	}
	seconds, ok := appErr.Context["retry_after"].(int)
	return seconds, ok
}
