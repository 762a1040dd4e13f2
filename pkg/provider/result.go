package provider

// Result is the canonical success/failure envelope returned to callers
// that need a serializable outcome (the executor report, the HTTP
// surface) rather than a Go error.
//
// Invariant: Data is meaningful iff Status == StatusSuccess; Err is
// non-nil iff Status != StatusSuccess.
type Result[T any] struct {
	Status Status    `json:"status"`
	Data   T         `json:"data,omitempty"`
	Err    *OpResult `json:"error,omitempty"`
}

// OpResult is the serializable error detail carried by a non-success Result.
type OpResult struct {
	// Code is the backend-native error code, when one was available.
	Code string `json:"code,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Retryable indicates the condition is transient.
	Retryable bool `json:"retryable"`

	// Cause is the underlying error. Not serialized.
	Cause error `json:"-"`
}

// OK wraps a successful value.
func OK[T any](data T) Result[T] {
	return Result[T]{Status: StatusSuccess, Data: data}
}

// Fail classifies err and builds a non-success Result.
// Passing a nil error is a programmer error and panics.
func Fail[T any](err error) Result[T] {
	if err == nil {
		panic("provider: Fail called with nil error")
	}
	detail := &OpResult{
		Message:   err.Error(),
		Retryable: IsRetryable(err),
		Cause:     err,
	}
	var opErr *OpError
	if AsOpError(err, &opErr) {
		detail.Code = opErr.Code
	}
	return Result[T]{Status: StatusOf(err), Err: detail}
}

// Wrap converts a (value, error) pair into a Result.
func Wrap[T any](data T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return OK(data)
}

// OK reports whether the result carries a successful value.
func (r Result[T]) OK() bool {
	return r.Status == StatusSuccess
}
