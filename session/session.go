// File: session/session.go
// Package session carries the bookkeeping shared by the client and the
// server: session identity, sequence counters and outgoing header
// stamping.
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0

package session

import (
	"fmt"
	"strconv"

	"github.com/mrylov/fixlink/api"
)

// ID names one session as an ordered comp id pair. Sender is this
// side's comp id, Target the peer's. The zero value means "no session".
type ID struct {
	Sender string
	Target string
}

// IsZero reports whether the identity is unset.
func (id ID) IsZero() bool {
	return id.Sender == "" && id.Target == ""
}

// String renders the identity for log output.
func (id ID) String() string {
	return id.Sender + "->" + id.Target
}

// Identify extracts the session identity a received message belongs to.
// The peer's TargetCompID(56) names this side, so it becomes Sender;
// the peer's SenderCompID(49) becomes Target. A message without both
// comp ids cannot be dispatched.
func Identify(msg api.Message) (ID, error) {
	sender, okS := msg.Get(api.TagTargetCompID)
	target, okT := msg.Get(api.TagSenderCompID)
	if !okS || !okT {
		return ID{}, fmt.Errorf("%w: message carries no session identity", api.ErrProtocolSequence)
	}
	return ID{Sender: sender, Target: target}, nil
}

// Counters holds one session's sequence numbers. Both directions start
// at 1 on logon.
type Counters struct {
	In  int
	Out int
}

// NewCounters returns counters at the logon baseline.
func NewCounters() Counters {
	return Counters{In: 1, Out: 1}
}

// NextOut returns the number to stamp on the next outgoing message and
// advances the counter.
func (c *Counters) NextOut() int {
	n := c.Out
	c.Out++
	return n
}

// AdoptOut rebases the outbound counter to n. Used when a SequenceReset
// goes out and when a caller overrides MsgSeqNum(34) on logon.
func (c *Counters) AdoptOut(n int) {
	c.Out = n
}

// BumpIn advances the inbound counter by one received message.
func (c *Counters) BumpIn() {
	c.In++
}

// Stamp applies the outgoing session header to msg: BeginString(8),
// both comp ids, SendingTime(52) and the next MsgSeqNum(34). A non-empty
// senderSub lands in SenderSubID(50) only when the message does not
// carry the tag already. Present tags are replaced in place, so echoed
// messages keep their wire layout.
func Stamp(msg api.Message, version string, id ID, senderSub string, now string, c *Counters) {
	msg.Set(api.TagBeginString, version)
	msg.Set(api.TagSenderCompID, id.Sender)
	msg.Set(api.TagTargetCompID, id.Target)
	if senderSub != "" && !msg.Has(api.TagSenderSubID) {
		msg.Set(api.TagSenderSubID, senderSub)
	}
	msg.Set(api.TagSendingTime, now)
	msg.Set(api.TagMsgSeqNum, strconv.Itoa(c.NextOut()))
}
