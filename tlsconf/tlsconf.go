// File: tlsconf/tlsconf.go
// Package tlsconf supplies the stock api.TLSConfig implementations.
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0
//
// Client contexts verify the server (server-auth purpose); server
// contexts present the local certificate and, when a CA bundle is
// given, demand and verify client certificates (client-auth purpose).

package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Default configures TLS from the system trust store, optionally
// extended with one CA bundle. It carries no certificate, so it serves
// the client side only.
type Default struct {
	CACert string // optional PEM bundle path
}

// ClientContext implements api.TLSConfig.
func (d Default) ClientContext(serverName string) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: serverName,
	}
	if d.CACert != "" {
		pool, err := loadPool(d.CACert)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// ServerContext implements api.TLSConfig.
func (d Default) ServerContext() (*tls.Config, error) {
	return nil, fmt.Errorf("tlsconf: a server context needs a certificate, use Simple")
}

// Simple configures TLS from a private key and certificate pair plus an
// optional CA bundle, serving either side of the connection.
type Simple struct {
	Key    string // private key PEM path
	Cert   string // certificate PEM path
	CACert string // optional CA bundle PEM path
}

// ClientContext implements api.TLSConfig. The key pair is presented if
// the server requests a client certificate.
func (s Simple) ClientContext(serverName string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(s.Cert, s.Key)
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		ServerName:   serverName,
		Certificates: []tls.Certificate{cert},
	}
	if s.CACert != "" {
		pool, err := loadPool(s.CACert)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// ServerContext implements api.TLSConfig. A CA bundle switches the
// listener to mutual auth.
func (s Simple) ServerContext() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(s.Cert, s.Key)
	if err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.NoClientCert,
	}
	if s.CACert != "" {
		pool, err := loadPool(s.CACert)
		if err != nil {
			return nil, err
		}
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
		cfg.ClientCAs = pool
	}
	return cfg, nil
}

func loadPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("tlsconf: parse ca bundle: %s", path)
	}
	return pool, nil
}
