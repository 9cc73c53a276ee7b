// Package errors implements the logical error taxonomy (§7): not exception
// types, a single tagged AppError whose Kind maps to an HTTP status at the
// edge (see Middleware) and drives worker retry-vs-terminal decisions.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind is the logical error category from §7.
type Kind string

const (
	KindValidation Kind = "validation" // 400, never retried
	KindAuth       Kind = "auth"       // 401/403, adapter creds -> content failed, no retry
	KindNotFound   Kind = "not_found"  // 404, permanently non-retryable for adapters
	KindTransient  Kind = "transient"  // retried under C3/C8 backoff policy
	KindConflict   Kind = "conflict"   // 409 to callers, idempotent no-op internally
	KindFatal      Kind = "fatal"      // process exits non-zero
)

// AppError is the single error type surfaced across service boundaries.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

func newErr(kind Kind, msg string) *AppError { return &AppError{Kind: kind, Message: msg} }

func NewBadRequestError(msg string) *AppError    { return newErr(KindValidation, msg) }
func NewAuthError(msg string) *AppError          { return newErr(KindAuth, msg) }
func NewNotFoundError(msg string) *AppError      { return newErr(KindNotFound, msg) }
func NewConflictError(msg string) *AppError      { return newErr(KindConflict, msg) }
func NewInternalServerError(msg string) *AppError { return newErr(KindTransient, msg) }
func NewFatalError(msg string, cause error) *AppError {
	return &AppError{Kind: KindFatal, Message: msg, Cause: cause}
}

// Wrap tags an arbitrary error with a kind, preserving it as Cause.
func Wrap(kind Kind, msg string, cause error) *AppError {
	return &AppError{Kind: kind, Message: msg, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to KindTransient for
// errors that were never classified (fail safe toward "retryable").
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTransient
}

// IsRetryable reports whether a worker should retry err under the §4.3/§4.8
// backoff policy rather than marking the work item terminally failed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindConflict:
		return true
	default:
		return false
	}
}

func statusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindFatal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Middleware maps the last gin.Context error (registered via c.Error) to an
// HTTP response exactly once, at the edge.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		var ae *AppError
		if !errors.As(err, &ae) {
			ae = &AppError{Kind: KindTransient, Message: err.Error()}
		}
		c.JSON(statusFor(ae.Kind), gin.H{
			"success": false,
			"error": gin.H{
				"kind":    ae.Kind,
				"message": ae.Message,
			},
		})
	}
}
