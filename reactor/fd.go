// File: reactor/fd.go
// Author: mrylov <mrylov@gmail.com>
//
// Descriptor extraction for readiness registration. The server polls
// raw descriptors while all I/O still flows through net.Conn, which is
// what lets TLS connections share the same reactor loop.

package reactor

import (
	"crypto/tls"
	"fmt"
	"net"
	"syscall"
)

// FD extracts the raw descriptor from any syscall.Conn carrier; TCP
// listeners and plain connections both qualify.
func FD(sc syscall.Conn) (int, error) {
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}
	fd := -1
	cerr := raw.Control(func(f uintptr) { fd = int(f) })
	if cerr != nil {
		return -1, cerr
	}
	return fd, nil
}

// ConnFD returns the descriptor behind c, unwrapping TLS connections to
// their transport first.
func ConnFD(c net.Conn) (int, error) {
	if tc, ok := c.(*tls.Conn); ok {
		c = tc.NetConn()
	}
	sc, ok := c.(syscall.Conn)
	if !ok {
		return -1, fmt.Errorf("reactor: connection %T exposes no descriptor", c)
	}
	return FD(sc)
}
