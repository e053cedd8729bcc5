// File: server/loop.go
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0
//
// Service loop: one goroutine multiplexes the listener and every
// accepted socket through the readiness reactor and applies the
// session dispatch rules to each inbound frame.

package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/mrylov/fixlink/api"
	"github.com/mrylov/fixlink/protocol"
	"github.com/mrylov/fixlink/reactor"
	"github.com/mrylov/fixlink/session"
	"github.com/rs/zerolog"
)

// enqueueTimeout caps how long the service loop waits on a full
// inbound queue before dropping the message.
const enqueueTimeout = time.Second

// connection tracks one accepted socket. id stays zero until the peer
// logs on; the counters run from 1 regardless, so a pre-logon logout
// still gets a well-formed echo.
type connection struct {
	conn     net.Conn
	fd       int
	id       session.ID
	counters session.Counters
	queue    *session.Queue
	log      zerolog.Logger
}

func (c *connection) registered() bool {
	return !c.id.IsZero()
}

// serve is the service goroutine: a one-second reactor tick that
// accepts, reads and dispatches until Stop.
func (s *Server) serve(listening chan<- struct{}) {
	defer close(s.done)
	close(listening)

	events := make([]reactor.Event, 64)
	for {
		select {
		case <-s.stopping:
			s.teardown()
			return
		default:
		}
		n, err := s.poller.Wait(events, time.Second)
		if err != nil {
			s.log.Error().Err(err).Msg("reactor wait failed")
			s.teardown()
			return
		}
		for _, ev := range events[:n] {
			if ev.FD == s.lnFD {
				if ev.Readable {
					s.accept()
					continue
				}
				if ev.Hangup {
					s.log.Debug().Msg("close socket event received")
					s.teardown()
					return
				}
				continue
			}
			s.connectionEvent(ev)
		}
	}
}

// accept admits one pending connection and registers it with the
// reactor under a fresh label.
func (s *Server) accept() {
	conn, err := s.ln.Accept()
	if err != nil {
		if !errors.Is(err, net.ErrClosed) {
			s.log.Error().Err(err).Msg("accept failed")
		}
		return
	}
	if s.tlsCfg != nil {
		conn = tls.Server(conn, s.tlsCfg)
	}
	fd, err := reactor.ConnFD(conn)
	if err != nil {
		s.log.Error().Err(err).Msg("no descriptor for connection")
		conn.Close()
		return
	}

	rec := &connection{conn: conn, fd: fd, counters: session.NewCounters()}
	rec.log = s.log.With().Str("conn", uuid.NewString()).Logger()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.poller.Register(fd); err != nil {
		rec.log.Error().Err(err).Msg("reactor register failed")
		conn.Close()
		return
	}
	s.byFD[fd] = rec
	s.stats.accepted++
	rec.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("new connection event received")
}

// connectionEvent handles readiness on one accepted socket. Readable
// wins over hangup: a peer that wrote and then closed still gets its
// last frames read before the close is noticed.
func (s *Server) connectionEvent(ev reactor.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byFD[ev.FD]
	if !ok {
		return
	}
	switch {
	case ev.Readable:
		s.readFrame(rec)
	case ev.Hangup:
		rec.log.Debug().Msg("close connection event received")
		s.removeLocked(rec)
	}
}

// readFrame pulls one complete frame off rec and dispatches it. Any
// read, decode or dispatch failure retires the connection; the service
// loop itself survives.
func (s *Server) readFrame(rec *connection) {
	data, err := protocol.ReadFrame(rec.conn)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
			rec.log.Debug().Msg("closing connection, no data available")
		} else {
			rec.log.Error().Err(err).Msg("closing connection after read error")
		}
		s.removeLocked(rec)
		return
	}
	msg, err := s.cfg.Factory.FromWire(data, s.cfg.Codec)
	if err != nil {
		rec.log.Error().Err(err).Msg("closing connection after decode error")
		s.removeLocked(rec)
		return
	}
	s.stats.received++
	if err := s.dispatch(rec, msg); err != nil {
		rec.log.Error().Err(err).Msg("closing connection after protocol violation")
		s.removeLocked(rec)
	}
}

// dispatch applies the session dispatch rules to one inbound message.
//
// A logout is echoed on the wire that delivered it, so it works even
// before logon. On a logged-on session, heartbeats echo back and
// everything else queues for the caller. An unregistered connection
// may only log on; anything else is a protocol violation fatal to that
// connection alone.
func (s *Server) dispatch(rec *connection, msg api.Message) error {
	id, err := session.Identify(msg)
	if err != nil {
		return err
	}
	mt, _ := msg.Get(api.TagMsgType)

	switch {
	case mt == api.MsgTypeLogout:
		s.echoLocked(rec, id, msg)
		rec.log.Debug().Str("session", id.String()).Msg("connection logged out")
		s.removeLocked(rec)

	case s.byID[id] != nil:
		peer := s.byID[id]
		if mt == api.MsgTypeHeartbeat {
			peer.log.Debug().Msg("session control message")
			s.echoLocked(peer, id, msg)
			break
		}
		peer.log.Debug().Msg("incoming data message")
		peer.counters.BumpIn()
		if err := peer.queue.Put(msg, enqueueTimeout); err != nil {
			s.stats.dropped++
			peer.log.Warn().Err(err).Msg("inbound queue full, dropping message")
		}

	case mt == api.MsgTypeLogon:
		s.logonLocked(rec, id)
		s.echoLocked(rec, id, msg)

	default:
		return fmt.Errorf("%w: connection %s sent MsgType %q before logon", api.ErrProtocolSequence, id, mt)
	}
	return nil
}

// logonLocked registers rec under id with fresh counters and a fresh
// queue. A later logon under the same id displaces the earlier
// socket's registration without closing it.
func (s *Server) logonLocked(rec *connection, id session.ID) {
	rec.id = id
	rec.counters = session.NewCounters()
	rec.queue = session.NewQueue(s.cfg.QueueCapacity)
	rec.log = rec.log.With().Str("session", id.String()).Logger()
	s.byID[id] = rec
	rec.log.Debug().Msg("logged on connection")
}

// echoLocked stamps the received message with this side's header and
// sends it straight back. rec supplies both the socket and the
// counters, which is what makes the pre-logon logout echo number
// from 1.
func (s *Server) echoLocked(rec *connection, id session.ID, msg api.Message) {
	if err := s.sendOnLocked(rec, id, msg); err != nil {
		rec.log.Error().Err(err).Msg("echo failed")
		return
	}
	s.stats.echoed++
}

// removeLocked retires rec: reactor deregistration, registry cleanup
// and socket close. The session registration goes only when rec still
// owns it.
func (s *Server) removeLocked(rec *connection) {
	s.poller.Unregister(rec.fd)
	delete(s.byFD, rec.fd)
	if rec.registered() && s.byID[rec.id] == rec {
		delete(s.byID, rec.id)
	}
	rec.conn.Close()
	rec.log.Debug().Msg("closed connection")
}

// teardown closes every connection and releases the listener and the
// reactor. Runs on the service goroutine as its final act.
func (s *Server) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.byFD {
		s.poller.Unregister(rec.fd)
		rec.conn.Close()
	}
	s.byFD = make(map[int]*connection)
	s.byID = make(map[session.ID]*connection)
	s.poller.Close()
	s.ln.Close()
}
