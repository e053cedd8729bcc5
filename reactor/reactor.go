// File: reactor/reactor.go
// Author: mrylov <mrylov@gmail.com>
//
// Platform-neutral readiness interface. The server owns one Reactor on
// its single service goroutine; nothing here is safe for concurrent use.

package reactor

import "time"

// Reactor multiplexes read-readiness over a set of file descriptors.
type Reactor interface {
	// Register adds fd to the watched set, level-triggered.
	Register(fd int) error

	// Unregister removes fd from the watched set.
	Unregister(fd int) error

	// Wait blocks until at least one descriptor is ready or timeout
	// elapses, filling events and returning the count. A negative
	// timeout blocks indefinitely. An interrupted wait returns 0
	// events and no error.
	Wait(events []Event, timeout time.Duration) (n int, err error)

	// Close releases the kernel facility.
	Close() error
}

// Event reports one descriptor's readiness.
type Event struct {
	FD       int
	Readable bool // data (or EOF) can be read without blocking
	Hangup   bool // peer reset or error condition on the descriptor
}
