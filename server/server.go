// File: server/server.go
// Package server implements the session acceptor: a reactor-driven
// listener that promotes connections on logon, echoes session control
// traffic and queues inbound business messages per session for the
// caller to collect.
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0

package server

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/mrylov/fixlink/api"
	"github.com/mrylov/fixlink/fixmsg"
	"github.com/mrylov/fixlink/reactor"
	"github.com/mrylov/fixlink/session"
	"github.com/rs/zerolog"
)

// DefaultStartTimeout bounds how long Start waits for the service
// goroutine to report listening.
const DefaultStartTimeout = 30 * time.Second

// Config holds all configurable parameters for the session server.
type Config struct {
	Codec         api.Codec          // wire codec, required
	Factory       api.MessageFactory // message construction, fixmsg when nil
	Host          string             // bind host, localhost when empty
	Port          int                // bind port, 0 picks a free port
	Version       string             // BeginString(8), FIX.4.2 when empty
	QueueCapacity int                // per-session inbound queue bound, 1024 when 0
	TLS           api.TLSConfig      // transport security, plaintext when nil
	Logger        zerolog.Logger     // log sink; the zero value logs nothing
}

// Server accepts any number of concurrent session connections on a
// single service goroutine. Callers address logged-on sessions through
// Send and Receive, or the *To/*From variants when more than one
// session is active.
type Server struct {
	cfg    Config
	log    zerolog.Logger
	tlsCfg *tls.Config

	mu       sync.Mutex
	ln       net.Listener
	lnFD     int
	poller   reactor.Reactor
	byFD     map[int]*connection
	byID     map[session.ID]*connection
	running  bool
	stopping chan struct{}
	done     chan struct{}
	ip       net.IP
	port     int

	stats struct {
		accepted int64
		received int64
		sent     int64
		echoed   int64
		dropped  int64
	}
}

// New validates cfg and returns a stopped server.
func New(cfg Config) (*Server, error) {
	if cfg.Codec == nil {
		return nil, fmt.Errorf("server: config needs a codec")
	}
	if cfg.Factory == nil {
		cfg.Factory = fixmsg.Factory{}
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Version == "" {
		cfg.Version = api.DefaultVersion
	}
	log := cfg.Logger.With().Str("component", "fix-server").Logger()
	return &Server{cfg: cfg, log: log}, nil
}

// Start binds the listener and launches the service goroutine, waiting
// up to timeout for it to come up. A non-positive timeout falls back
// to DefaultStartTimeout.
func (s *Server) Start(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultStartTimeout
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server: already running")
	}
	if s.cfg.TLS != nil && s.tlsCfg == nil {
		tcfg, err := s.cfg.TLS.ServerContext()
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.tlsCfg = tcfg
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	fd, err := reactor.FD(ln.(*net.TCPListener))
	if err != nil {
		ln.Close()
		s.mu.Unlock()
		return err
	}
	p, err := reactor.New()
	if err != nil {
		ln.Close()
		s.mu.Unlock()
		return err
	}
	if err := p.Register(fd); err != nil {
		p.Close()
		ln.Close()
		s.mu.Unlock()
		return err
	}

	addr := ln.Addr().(*net.TCPAddr)
	s.ln = ln
	s.lnFD = fd
	s.poller = p
	s.byFD = make(map[int]*connection)
	s.byID = make(map[session.ID]*connection)
	s.ip = addr.IP
	s.port = addr.Port
	s.stopping = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	s.log.Debug().Str("addr", addr.String()).Msg("started server")

	listening := make(chan struct{})
	go s.serve(listening)

	select {
	case <-listening:
		s.log.Debug().Msg("listening for socket events")
		return nil
	case <-time.After(timeout):
		close(s.stopping)
		<-s.done
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("%w after %v", api.ErrStartTimeout, timeout)
	}
}

// Stop shuts the service goroutine down, closing every connection and
// the listener. Safe to call more than once.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopping)
	<-s.done
	s.log.Debug().Msg("stopped server")
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// IP returns the address the listener bound to.
func (s *Server) IP() net.IP {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ip
}

// Port returns the bound port, which is how callers of a zero-port
// config learn where to connect.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}
