package domain

import (
	"errors"
)

var (
	// ErrInvalidInput signals a malformed or incomplete caller request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDependency signals a terminal failure of the retrieval dependency.
	ErrDependency = errors.New("dependency error")
	// ErrTransient signals a dependency failure that is safe to retry.
	ErrTransient = errors.New("transient dependency error")
	// ErrRouting signals that no retrieval target could be selected.
	ErrRouting = errors.New("routing error")
	// ErrUnknownTarget signals a target name absent from the configured set.
	ErrUnknownTarget = errors.New("unknown retrieval target")
	// ErrRateLimited signals that the outbound rate limiter rejected the call.
	ErrRateLimited = errors.New("rate limited")
)

// Caller-visible message prefixes.
const (
	MsgMissingQuery     = "Missing 'query' in request body"
	PrefixDependency    = "Llama Cloud connection failed: "
	PrefixRouting       = "Router query failed: "
	PrefixMissingFilter = "Missing required filter: "
)

// RequestError is a failure scoped to one request. Message is what the caller sees;
// Kind is one of the sentinels above and Err the underlying cause (may be nil).
type RequestError struct {
	Kind    error
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewInputError creates an input error with a fixed message.
func NewInputError(message string) error {
	return &RequestError{Kind: ErrInvalidInput, Message: message}
}

// NewDependencyError wraps a terminal retrieval failure.
func NewDependencyError(err error) error {
	return &RequestError{Kind: ErrDependency, Message: PrefixDependency + causeMessage(err), Err: err}
}

// NewRoutingError wraps a target selection failure.
func NewRoutingError(err error) error {
	return &RequestError{Kind: ErrRouting, Message: PrefixRouting + causeMessage(err), Err: err}
}

// causeMessage returns the innermost description of a dependency failure, so
// wrapping layers added on the way up do not leak into the caller message.
func causeMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	var re *RequestError
	if errors.As(err, &re) && re.Err != nil {
		return causeMessage(re.Err)
	}
	return err.Error()
}
