//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd
// +build !linux,!darwin,!dragonfly,!freebsd,!netbsd,!openbsd

// File: reactor/reactor_stub.go
// Author: mrylov <mrylov@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "github.com/mrylov/fixlink/api"

// New returns an error on platforms without a readiness facility.
func New() (Reactor, error) {
	return nil, api.ErrNotSupported
}
