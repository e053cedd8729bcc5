// File: server/calls.go
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0
//
// Caller-facing session operations. The short forms resolve to the one
// active session and fail when that is ambiguous; the *To/*From forms
// name the session explicitly.

package server

import (
	"fmt"
	"time"

	"github.com/mrylov/fixlink/api"
	"github.com/mrylov/fixlink/protocol"
	"github.com/mrylov/fixlink/session"
)

// Send stamps msg with the sole active session's header and transmits
// it on that session's socket.
func (s *Server) Send(msg api.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.defaultLocked()
	if err != nil {
		return err
	}
	if err := s.sendOnLocked(rec, rec.id, msg); err != nil {
		return err
	}
	s.stats.sent++
	return nil
}

// SendTo is Send aimed at a named session.
func (s *Server) SendTo(id session.ID, msg api.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", api.ErrSessionNotActive, id)
	}
	if err := s.sendOnLocked(rec, rec.id, msg); err != nil {
		return err
	}
	s.stats.sent++
	return nil
}

// Receive takes the next queued business message from the sole active
// session, waiting up to timeout. A non-positive timeout polls,
// returning api.ErrNoMessage when the queue is empty.
func (s *Server) Receive(timeout time.Duration) (api.Message, error) {
	s.mu.Lock()
	rec, err := s.defaultLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return rec.queue.Get(timeout)
}

// ReceiveFrom is Receive aimed at a named session.
func (s *Server) ReceiveFrom(id session.ID, timeout time.Duration) (api.Message, error) {
	s.mu.Lock()
	rec, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrSessionNotActive, id)
	}
	return rec.queue.Get(timeout)
}

// Flush discards every queued inbound message across all sessions and
// returns how many went.
func (s *Server) Flush() int {
	s.mu.Lock()
	queues := make([]*session.Queue, 0, len(s.byID))
	for _, rec := range s.byID {
		queues = append(queues, rec.queue)
	}
	s.mu.Unlock()

	n := 0
	for _, q := range queues {
		n += q.Flush()
	}
	s.log.Debug().Int("count", n).Msg("flushed received message queues")
	return n
}

// ActiveConnections lists the logged-on sessions.
func (s *Server) ActiveConnections() []session.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]session.ID, 0, len(s.byID))
	for _, rec := range s.byFD {
		if rec.registered() {
			ids = append(ids, rec.id)
		}
	}
	return ids
}

// IsConnectionActive reports whether id is currently logged on.
func (s *Server) IsConnectionActive(id session.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok
}

// Stats returns a point-in-time snapshot of the server's counters:
// accepted, active, received, sent, echoed and dropped.
func (s *Server) Stats() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int64{
		"accepted": s.stats.accepted,
		"active":   int64(len(s.byID)),
		"received": s.stats.received,
		"sent":     s.stats.sent,
		"echoed":   s.stats.echoed,
		"dropped":  s.stats.dropped,
	}
}

// sendOnLocked stamps msg with the session header for id, drawing the
// sequence number from rec's counters, and writes it to rec's socket.
func (s *Server) sendOnLocked(rec *connection, id session.ID, msg api.Message) error {
	session.Stamp(msg, s.cfg.Version, id, "", protocol.Timestamp(s.cfg.Codec), &rec.counters)
	rec.log.Debug().Str("msg", api.Text(msg)).Msg("sending message")
	wire, err := msg.ToWire(s.cfg.Codec)
	if err != nil {
		return err
	}
	_, err = rec.conn.Write(wire)
	return err
}

// defaultLocked resolves the default session: exactly one logged on.
func (s *Server) defaultLocked() (*connection, error) {
	if len(s.byID) == 1 {
		for _, rec := range s.byID {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %d connection(s) active, expect 1", api.ErrNoDefaultSession, len(s.byID))
}
