package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// StatusCoder is implemented by structured API errors that carry the HTTP
// status code of the failed call. The executor checks the whole error chain
// for it via errors.As.
type StatusCoder interface {
	StatusCode() int
}

// statusCode extracts an HTTP status code from anywhere in err's chain.
func statusCode(err error) (int, bool) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

// transientErrnos are the socket-level failures produced by a connection
// that was refused, dropped, or routed nowhere — the classic symptoms of a
// remote endpoint that may recover momentarily.
var transientErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.EPIPE,
	syscall.EHOSTUNREACH,
	syscall.ENETUNREACH,
	syscall.ENETDOWN,
	syscall.ETIMEDOUT,
}

// IsTransportFault reports whether err looks like a transient network
// failure: a timeout, a DNS resolution failure, a refused or lost
// connection, or an unreachable host/network. Permanent conditions
// (certificate problems, malformed URLs, application errors) do not match.
//
// Policy.ShouldRetryError uses this classification; it is exported so
// callers recording dispatch outcomes can label failures the same way the
// executor does.
func IsTransportFault(err error) bool {
	if err == nil {
		return false
	}

	// Deadline expiry counts as a timeout. The executor's own context
	// check still aborts the loop when the enclosing context is done.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// A response cut off mid-body usually means the connection dropped.
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		for _, transient := range transientErrnos {
			if errno == transient {
				return true
			}
		}
	}

	return false
}
