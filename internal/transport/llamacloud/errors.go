package llamacloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/thebeast/llamarouter/internal/domain"
)

// StatusError is a non-2xx response from the LlamaCloud API. Always fatal.
type StatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "llamacloud status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("llamacloud %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("llamacloud %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// transientError marks a failure as safe to retry without changing its message.
type transientError struct {
	err error
}

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() []error { return []error{domain.ErrTransient, e.err} }

// IsTransient reports whether err is a read timeout or a remote protocol error
// returned by this client. Status errors, connect failures and cancellation are not.
func IsTransient(err error) bool {
	return errors.Is(err, domain.ErrTransient)
}

// classify wraps err as transient when a retry may succeed. parent is the caller's
// context; a deadline on the per-attempt context only counts while parent is alive.
func classify(parent context.Context, err error) error {
	if err == nil || parent.Err() != nil {
		return err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &transientError{err: err}
	case isTimeout(err):
		return &transientError{err: err}
	case isProtocolError(err):
		return &transientError{err: err}
	}
	return err
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isProtocolError(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "malformed HTTP") ||
		strings.Contains(msg, "server closed idle connection") ||
		strings.Contains(msg, "connection reset by peer")
}
