package provider

import (
	"context"
	"errors"
	"fmt"
)

// Status is the canonical classification of an operation outcome.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusNotFound         Status = "not_found"
	StatusPermissionDenied Status = "permission_denied"
	StatusUnimplemented    Status = "unimplemented"
	StatusConnectionFailed Status = "connection_failed"
	StatusCancelled        Status = "cancelled"
	StatusError            Status = "error"
)

// Sentinel errors for provider operations. Backend adapters map native
// failure shapes onto these at the boundary; everything downstream
// matches with errors.Is instead of sniffing vendor fields.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrPermissionDenied indicates insufficient permissions.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnimplemented indicates the backend does not support the operation.
	ErrUnimplemented = errors.New("operation not supported")

	// ErrConnectionFailed indicates a transient network or service failure.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrThrottled indicates the request was rate limited by the backend.
	ErrThrottled = errors.New("request throttled")

	// ErrCancelled indicates the operation was cancelled by the caller.
	ErrCancelled = errors.New("operation cancelled")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrContainerNotFound indicates the bucket/share does not exist.
	ErrContainerNotFound = errors.New("container not found")
)

// OpError wraps backend-specific errors with operation context.
type OpError struct {
	// Op is the operation that failed (e.g., "List", "Write").
	Op string

	// Backend is the backend scheme (e.g., "s3", "file").
	Backend string

	// Container is the bucket/share name, if applicable.
	Container string

	// Path is the entry path, if applicable.
	Path string

	// Code is the backend's native error code, when one was available.
	Code string

	// Err is the underlying error, normally one of the sentinels above
	// (possibly wrapping the original SDK error).
	Err error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Backend, e.Op, e.Container, e.Path, e.Err)
	case e.Container != "":
		return fmt.Sprintf("%s %s: %s: %v", e.Backend, e.Op, e.Container, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OpError) Unwrap() error {
	return e.Err
}

// StatusOf maps an error to its canonical status. A nil error is Success.
//
// The mapping is closed: any error outside the taxonomy classifies as
// StatusError. Context cancellation classifies as Cancelled regardless
// of how the transport surfaced it.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrCancelled):
		return StatusCancelled
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrContainerNotFound):
		return StatusNotFound
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrInvalidCredentials):
		return StatusPermissionDenied
	case errors.Is(err, ErrUnimplemented):
		return StatusUnimplemented
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrThrottled):
		return StatusConnectionFailed
	default:
		return StatusError
	}
}

// IsRetryable reports whether the error represents a transient condition
// the retry policy may recover from.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnectionFailed) || errors.Is(err, ErrThrottled)
}

// IsNotFound returns true if the error indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrContainerNotFound)
}

// IsPermissionDenied returns true if the error indicates insufficient permissions.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrInvalidCredentials)
}

// IsUnimplemented returns true if the error indicates an unsupported operation.
func IsUnimplemented(err error) bool {
	return errors.Is(err, ErrUnimplemented)
}

// IsCancelled returns true if the error indicates caller cancellation.
func IsCancelled(err error) bool {
	return StatusOf(err) == StatusCancelled
}

// AsOpError extracts an *OpError from the chain, if present.
func AsOpError(err error, target **OpError) bool {
	return errors.As(err, target)
}

// Unsupported builds the OpError a provider returns for an operation it
// does not declare. No network call is made for these.
func Unsupported(backend, op string) error {
	return &OpError{Op: op, Backend: backend, Err: ErrUnimplemented}
}
