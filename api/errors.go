// Package api
// Author: mrylov <mrylov@gmail.com>
//
// Error taxonomy shared across the fixlink engine. Failures propagate
// synchronously to the caller; the engine performs no internal retries.

package api

import (
	"errors"
	"fmt"
)

// Sentinel errors used across the library.
var (
	// ErrFraming marks wire bytes the framer or codec could not accept,
	// a malformed checksum trailer being the canonical case. Fatal to
	// the current frame; the caller must drop the connection.
	ErrFraming = errors.New("malformed frame")

	// ErrProtocolSequence marks a message that violates session
	// sequencing, a business message before logon being the canonical
	// case. Fatal to the offending connection only.
	ErrProtocolSequence = errors.New("session protocol violation")

	// ErrConnectionClosed marks a zero-byte read on an open socket: the
	// peer departed in an orderly fashion.
	ErrConnectionClosed = errors.New("connection closed by peer")

	// ErrTimeout marks a receive that exceeded the caller's timeout.
	// Distinguishable from ErrConnectionClosed.
	ErrTimeout = errors.New("receive timed out")

	// ErrNoMessage is returned by non-blocking receives when the inbound
	// queue is empty. Callers distinguish it from hard errors.
	ErrNoMessage = errors.New("no message available")

	// ErrQueueFull marks an inbound enqueue that exceeded the soft
	// backpressure bound.
	ErrQueueFull = errors.New("inbound queue full")

	// ErrStartTimeout marks a server that failed to report listening
	// within the startup timeout.
	ErrStartTimeout = errors.New("server start timed out")

	// ErrNoDefaultSession is returned when a default-session operation
	// runs with zero or more than one active session.
	ErrNoDefaultSession = errors.New("cannot resolve default session")

	// ErrSessionNotActive is returned for operations aimed at a session
	// that is not currently logged on.
	ErrSessionNotActive = errors.New("session not active")

	// ErrNotSupported is returned by platform facilities that have no
	// implementation for the current OS.
	ErrNotSupported = errors.New("operation not supported")
)

// UnexpectedResponseError reports a logon or logoff exchange whose response
// carried the wrong MsgType. The offending message is attached so negative
// tests can assert on it directly.
type UnexpectedResponseError struct {
	Want string  // expected MsgType value
	Got  Message // the response as received, never nil
}

// Error implements the error interface.
func (e *UnexpectedResponseError) Error() string {
	got := "<none>"
	if e.Got != nil {
		if v, ok := e.Got.Get(TagMsgType); ok {
			got = v
		}
	}
	return fmt.Sprintf("unexpected response: want MsgType %q, got %q", e.Want, got)
}
