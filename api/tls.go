// Package api
// Author: mrylov <mrylov@gmail.com>

package api

import "crypto/tls"

// TLSConfig yields TLS contexts for the two connection purposes. When a
// provider is supplied, the client wraps its socket before connecting and
// the server wraps each socket at accept; when absent both sides run
// plain TCP. See package tlsconf for the stock providers.
type TLSConfig interface {
	// ClientContext returns the context used to wrap an outbound
	// connection, verifying the server against serverName.
	ClientContext(serverName string) (*tls.Config, error)

	// ServerContext returns the context used to wrap accepted
	// connections.
	ServerContext() (*tls.Config, error)
}
