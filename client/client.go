// File: client/client.go
// Package client implements the session initiator: a synchronous TCP or
// TLS client that stamps session headers, tracks sequence numbers and
// reads back complete frames one at a time.
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0

package client

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/mrylov/fixlink/api"
	"github.com/mrylov/fixlink/fixmsg"
	"github.com/mrylov/fixlink/protocol"
	"github.com/mrylov/fixlink/session"
	"github.com/rs/zerolog"
)

// Default per-operation timeouts, matching the harness driver layer.
const (
	DefaultReceiveTimeout = 30 * time.Second
	DefaultLogonTimeout   = 10 * time.Second
	DefaultLogoffTimeout  = 3 * time.Second
)

// Config holds all configurable parameters for the session client.
type Config struct {
	Codec     api.Codec          // wire codec, required
	Factory   api.MessageFactory // message construction, fixmsg when nil
	Host      string             // server host name or address
	Port      int                // server port
	Sender    string             // SenderCompID(49) stamped on every send
	Target    string             // TargetCompID(56) stamped on every send
	Version   string             // BeginString(8), FIX.4.2 when empty
	SenderSub string             // default SenderSubID(50), optional
	LocalAddr string             // local address to bind before dialing, optional
	TLS       api.TLSConfig      // transport security, plaintext when nil
	Logger    zerolog.Logger     // log sink; the zero value logs nothing
}

// Client is a synchronous session initiator. It is not safe for
// concurrent use; the session protocol is strictly request/response at
// this level anyway.
type Client struct {
	cfg      Config
	conn     net.Conn
	counters session.Counters
	log      zerolog.Logger
}

// New validates cfg and returns an unconnected client.
func New(cfg Config) (*Client, error) {
	if cfg.Codec == nil {
		return nil, fmt.Errorf("client: config needs a codec")
	}
	if cfg.Factory == nil {
		cfg.Factory = fixmsg.Factory{}
	}
	if cfg.Version == "" {
		cfg.Version = api.DefaultVersion
	}
	log := cfg.Logger.With().
		Str("component", "fix-client").
		Str("sender", cfg.Sender).
		Str("target", cfg.Target).
		Logger()
	return &Client{cfg: cfg, counters: session.NewCounters(), log: log}, nil
}

// Connect dials the configured endpoint once, wrapping the connection
// in TLS when the config carries a TLS provider.
func (c *Client) Connect() error {
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	c.log.Debug().Str("addr", addr).Msg("connecting socket")

	d := net.Dialer{}
	if c.cfg.LocalAddr != "" {
		la, err := net.ResolveTCPAddr("tcp", c.cfg.LocalAddr)
		if err != nil {
			return fmt.Errorf("client: resolve local addr: %w", err)
		}
		d.LocalAddr = la
	}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	if c.cfg.TLS != nil {
		tcfg, err := c.cfg.TLS.ClientContext(c.cfg.Host)
		if err != nil {
			conn.Close()
			return err
		}
		conn = tls.Client(conn, tcfg)
	}
	c.conn = conn
	return nil
}

// Address returns the local socket address, or nil before Connect.
func (c *Client) Address() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// SendLogon sends a logon with the standard defaults EncryptMethod(98)=0,
// HeartBtInt(108)=600 and ResetSeqNumFlag(141)=Y, merged with overrides
// (nil values delete). An override of MsgSeqNum(34) rebases the outbound
// counter before stamping, so the logon itself carries that number.
func (c *Client) SendLogon(overrides api.Tags) (api.Message, error) {
	req := c.cfg.Factory.New(api.Tags{
		api.TagMsgType:         api.MsgTypeLogon,
		api.TagEncryptMethod:   "0",
		api.TagHeartBtInt:      "600",
		api.TagResetSeqNumFlag: "Y",
	})
	protocol.ApplyOverrides(req, overrides)
	if v, ok := req.Get(api.TagMsgSeqNum); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: bad MsgSeqNum override %q", api.ErrProtocolSequence, v)
		}
		c.counters.AdoptOut(n)
	}
	c.log.Debug().Str("msg", api.Text(req)).Msg("sending logon")
	if _, err := c.Send(req); err != nil {
		return nil, err
	}
	return req, nil
}

// SendLogoff sends a logout, merged with overrides.
func (c *Client) SendLogoff(overrides api.Tags) (api.Message, error) {
	req := c.cfg.Factory.New(api.Tags{api.TagMsgType: api.MsgTypeLogout})
	protocol.ApplyOverrides(req, overrides)
	c.log.Debug().Str("msg", api.Text(req)).Msg("sending logoff")
	if _, err := c.Send(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Send stamps the session header onto msg and transmits it, returning
// the transmit time. A SequenceReset rebases the outbound counter to
// its NewSeqNo(36) after being stamped with the current number.
func (c *Client) Send(msg api.Message) (time.Time, error) {
	if err := c.stamp(msg); err != nil {
		return time.Time{}, err
	}
	return c.RawSend(msg)
}

// RawSend transmits msg verbatim, without stamping any session tags.
func (c *Client) RawSend(msg api.Message) (time.Time, error) {
	if c.conn == nil {
		return time.Time{}, fmt.Errorf("client: not connected")
	}
	c.log.Debug().Str("msg", api.Text(msg)).Msg("sending message")
	wire, err := msg.ToWire(c.cfg.Codec)
	if err != nil {
		return time.Time{}, err
	}
	tsp := time.Now()
	if _, err := c.conn.Write(wire); err != nil {
		return time.Time{}, err
	}
	return tsp, nil
}

// Receive reads one complete frame and decodes it. The whole frame must
// arrive within timeout; a non-positive timeout is a fail-fast poll.
// The inbound counter tracks the count of received messages only; it
// is never reconciled against the peer's MsgSeqNum(34).
func (c *Client) Receive(timeout time.Duration) (api.Message, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("client: not connected")
	}
	deadline := time.Now()
	if timeout > 0 {
		deadline = deadline.Add(timeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	data, err := protocol.ReadFrame(c.conn)
	if err != nil {
		return nil, c.classify(err)
	}
	c.counters.BumpIn()
	return c.cfg.Factory.FromWire(data, c.cfg.Codec)
}

// Logon performs the full logon exchange: send, then verify that the
// response is a logon within DefaultLogonTimeout.
func (c *Client) Logon(overrides api.Tags) (api.Message, error) {
	if _, err := c.SendLogon(overrides); err != nil {
		return nil, err
	}
	return c.expect(api.MsgTypeLogon, DefaultLogonTimeout)
}

// Logoff performs the full logout exchange: send, then verify that the
// response is a logout within DefaultLogoffTimeout.
func (c *Client) Logoff(overrides api.Tags) (api.Message, error) {
	if _, err := c.SendLogoff(overrides); err != nil {
		return nil, err
	}
	return c.expect(api.MsgTypeLogout, DefaultLogoffTimeout)
}

// Flush drains inbound messages until one receive comes back empty,
// waiting up to timeout for each. Returns the number drained.
func (c *Client) Flush(timeout time.Duration) int {
	if timeout <= 0 {
		timeout = 10 * time.Millisecond
	}
	n := 0
	for {
		if _, err := c.Receive(timeout); err != nil {
			return n
		}
		n++
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.log.Debug().Msg("closed socket")
	return err
}

// expect reads one message and verifies its MsgType. The offending
// message rides along in the error so tests can assert on it.
func (c *Client) expect(msgType string, timeout time.Duration) (api.Message, error) {
	resp, err := c.Receive(timeout)
	if err != nil {
		return nil, err
	}
	if v, _ := resp.Get(api.TagMsgType); v != msgType {
		return resp, &api.UnexpectedResponseError{Want: msgType, Got: resp}
	}
	return resp, nil
}

// stamp applies the session header and the outbound sequence rules.
func (c *Client) stamp(msg api.Message) error {
	id := session.ID{Sender: c.cfg.Sender, Target: c.cfg.Target}
	session.Stamp(msg, c.cfg.Version, id, c.cfg.SenderSub, protocol.Timestamp(c.cfg.Codec), &c.counters)

	if mt, _ := msg.Get(api.TagMsgType); mt == api.MsgTypeSequenceReset {
		v, ok := msg.Get(api.TagNewSeqNo)
		if !ok {
			return fmt.Errorf("%w: sequence reset without NewSeqNo(36)", api.ErrProtocolSequence)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: bad NewSeqNo %q", api.ErrProtocolSequence, v)
		}
		c.counters.AdoptOut(n)
	}
	return nil
}

// classify maps transport errors onto the engine's error taxonomy.
func (c *Client) classify(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", api.ErrTimeout, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		c.log.Debug().Msg("received empty data, peer closed?")
		return fmt.Errorf("%w: %v", api.ErrConnectionClosed, err)
	}
	return err
}
