// Package liberrors defines the typed failure kinds raised by the client
// state machine and server session handler (spec.md §7). Each kind is a
// distinct exported struct rather than a wrapped sentinel, so callers can
// switch on the concrete type to decide whether a failure is retryable.
package liberrors

import "fmt"

// ErrResolve is returned when the transport layer cannot resolve or dial
// the peer address at all (DNS failure, connection refused).
type ErrResolve struct {
	Err error
}

func (e ErrResolve) Error() string {
	return fmt.Sprintf("unable to connect to the server: %s", e.Err)
}

func (e ErrResolve) Unwrap() error { return e.Err }

// ErrTransport wraps a read/write failure on an established connection
// (reset, broken pipe, i/o timeout that isn't a keep-alive timeout).
type ErrTransport struct {
	Err error
}

func (e ErrTransport) Error() string {
	return fmt.Sprintf("transport error: %s", e.Err)
}

func (e ErrTransport) Unwrap() error { return e.Err }

// ErrParse is returned when a URL or a session description fails to parse
// or encode. A malformed response read off the control connection is
// reported as ErrTransport, not ErrParse.
type ErrParse struct {
	Err error
}

func (e ErrParse) Error() string {
	return fmt.Sprintf("could not parse message: %s", e.Err)
}

func (e ErrParse) Unwrap() error { return e.Err }

// ErrProtocol is returned when a message parses fine but violates the
// state machine's expectations: wrong CSeq, missing mandatory header,
// unexpected status code for the method just sent.
type ErrProtocol struct {
	Msg string
}

func (e ErrProtocol) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Msg)
}

// ErrWrongState is returned when an operation is invoked from a state that
// does not permit it (spec.md §3 state machine table).
type ErrWrongState struct {
	Operation string
	State     string
}

func (e ErrWrongState) Error() string {
	return fmt.Sprintf("cannot perform %s from state %s", e.Operation, e.State)
}

// ErrSessionExpired is returned when the server responds 454 Session Not
// Found to a request carrying a session id the client believed was live.
type ErrSessionExpired struct {
	SessionID string
}

func (e ErrSessionExpired) Error() string {
	return fmt.Sprintf("session %s is no longer valid on the server", e.SessionID)
}

// ErrKeepAliveTimeout is returned when no keep-alive response arrives in
// time and the session is declared dead locally (spec.md §4.6).
type ErrKeepAliveTimeout struct{}

func (ErrKeepAliveTimeout) Error() string {
	return "no response received to keep-alive request, session considered dead"
}

// ErrPeerClosed is returned when the peer closes the TCP connection
// without a TEARDOWN exchange.
type ErrPeerClosed struct{}

func (ErrPeerClosed) Error() string {
	return "the other party closed the connection"
}

// ErrServerRejected wraps a non-2xx RTSP response where the status code
// itself is the useful diagnostic (unsupported transport, not found, ...).
type ErrServerRejected struct {
	StatusCode    int
	StatusMessage string
}

func (e ErrServerRejected) Error() string {
	return fmt.Sprintf("server rejected request: %d %s", e.StatusCode, e.StatusMessage)
}

// ErrUnauthorized is returned when the server keeps returning 401 after
// credentials were supplied, so retrying would loop forever.
type ErrUnauthorized struct{}

func (ErrUnauthorized) Error() string {
	return "invalid credentials"
}

// ErrRedirectLoop is returned when a 302 redirect chain exceeds the
// bounded-depth-1 retry the client allows (spec.md §9).
type ErrRedirectLoop struct{}

func (ErrRedirectLoop) Error() string {
	return "server issued a second consecutive redirect, refusing to follow further"
}
