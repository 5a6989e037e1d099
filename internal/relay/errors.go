package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Dispatch error kinds. Match them with errors.Is.
var (
	ErrConnectionFailed = errors.New("connection to api failed")
	ErrTimeout          = errors.New("api request timed out")
	ErrAPI              = errors.New("api returned an error status")
	ErrUnknown          = errors.New("unknown api transport error")
)

// DispatchError describes a failed upstream call.
type DispatchError struct {
	Kind       error
	StatusCode int    // set for ErrAPI
	Details    []byte // JSON error body for ErrAPI, if any
	Err        error  // underlying transport error
}

func (e *DispatchError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrAPI):
		return fmt.Sprintf("%v: status %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *DispatchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName is a short label for the error kind, used in metrics.
func (e *DispatchError) KindName() string {
	switch e.Kind {
	case ErrConnectionFailed:
		return "connection_failed"
	case ErrTimeout:
		return "timeout"
	case ErrAPI:
		return "api_error"
	default:
		return "unknown"
	}
}

// classifyTransportError maps an HTTP client error to a dispatch error kind.
// Timeouts are checked first since a dial can also time out.
func classifyTransportError(err error) *DispatchError {
	var (
		netErr net.Error
		dnsErr *net.DNSError
		opErr  *net.OpError
	)

	kind := ErrUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrTimeout
	case errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.As(err, &opErr) && opErr.Op == "dial":
		kind = ErrConnectionFailed
	}

	return &DispatchError{Kind: kind, Err: err}
}
