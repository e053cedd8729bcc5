// Package api
// Author: mrylov <mrylov@gmail.com>
//
// FIX tag numbers and MsgType values with session-level meaning. The
// framer is agnostic to all tags except 8, 9 and 10; the client and
// server additionally stamp and inspect the session header tags below.

package api

// DefaultVersion is the BeginString(8) stamped when a configuration
// does not name one.
const DefaultVersion = "FIX.4.2"

// Tag numbers the engine touches.
const (
	TagBeginString     = 8
	TagBodyLength      = 9
	TagCheckSum        = 10
	TagMsgSeqNum       = 34
	TagMsgType         = 35
	TagNewSeqNo        = 36
	TagSenderCompID    = 49
	TagSenderSubID     = 50
	TagSendingTime     = 52
	TagTargetCompID    = 56
	TagEncryptMethod   = 98
	TagHeartBtInt      = 108
	TagResetSeqNumFlag = 141
)

// MsgType(35) values with session-level meaning. Everything else is a
// business message from the engine's point of view.
const (
	MsgTypeHeartbeat     = "0"
	MsgTypeSequenceReset = "4"
	MsgTypeLogout        = "5"
	MsgTypeLogon         = "A"
)
