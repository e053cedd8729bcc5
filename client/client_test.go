// File: client/client_test.go
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0

package client_test

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/mrylov/fixlink/api"
	"github.com/mrylov/fixlink/client"
	"github.com/mrylov/fixlink/fixmsg"
	"github.com/mrylov/fixlink/protocol"
)

// scriptedPeer listens on a loopback port and hands the first accepted
// connection to script on its own goroutine.
func scriptedPeer(t *testing.T, script func(conn net.Conn)) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		script(conn)
	}()
	return l.Addr().(*net.TCPAddr).Port
}

func dialClient(t *testing.T, port int) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{
		Codec:  &fixmsg.Codec{},
		Host:   "127.0.0.1",
		Port:   port,
		Sender: "BANZAI",
		Target: "EXEC",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// relay reads frames off conn and pushes the decoded messages to out.
// It stops quietly on the first transport error.
func relay(t *testing.T, conn net.Conn, out chan<- api.Message, n int) {
	codec := &fixmsg.Codec{}
	for i := 0; i < n; i++ {
		data, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}
		msg, err := fixmsg.Factory{}.FromWire(data, codec)
		if err != nil {
			t.Errorf("peer decode: %v", err)
			return
		}
		out <- msg
	}
}

func waitMsg(t *testing.T, ch <-chan api.Message) api.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for peer")
		return nil
	}
}

func peerFrame(t *testing.T, tags api.Tags) []byte {
	t.Helper()
	codec := &fixmsg.Codec{}
	wire, err := codec.Serialize(fixmsg.New(tags))
	if err != nil {
		t.Errorf("peer serialize: %v", err)
	}
	return wire
}

func TestLogonRoundTrip(t *testing.T) {
	seen := make(chan api.Message, 1)
	port := scriptedPeer(t, func(conn net.Conn) {
		relay(t, conn, seen, 1)
		conn.Write(peerFrame(t, api.Tags{
			api.TagBeginString:  "FIX.4.2",
			api.TagMsgType:      api.MsgTypeLogon,
			api.TagMsgSeqNum:    1,
			api.TagSenderCompID: "EXEC",
			api.TagTargetCompID: "BANZAI",
			api.TagSendingTime:  protocol.UTCTimestamp(),
		}))
	})

	c := dialClient(t, port)
	resp, err := c.Logon(nil)
	if err != nil {
		t.Fatalf("Logon() error: %v", err)
	}
	if v, _ := resp.Get(api.TagMsgType); v != api.MsgTypeLogon {
		t.Errorf("response MsgType = %q, want %q", v, api.MsgTypeLogon)
	}

	req := waitMsg(t, seen)
	for tag, want := range map[int]string{
		api.TagMsgType:         api.MsgTypeLogon,
		api.TagEncryptMethod:   "0",
		api.TagHeartBtInt:      "600",
		api.TagResetSeqNumFlag: "Y",
		api.TagSenderCompID:    "BANZAI",
		api.TagTargetCompID:    "EXEC",
		api.TagMsgSeqNum:       "1",
	} {
		if v, _ := req.Get(tag); v != want {
			t.Errorf("logon tag %d = %q, want %q", tag, v, want)
		}
	}
	if !req.Has(api.TagSendingTime) {
		t.Error("logon carries no SendingTime(52)")
	}
}

func TestSendStampsConsecutiveSeqNums(t *testing.T) {
	seen := make(chan api.Message, 2)
	port := scriptedPeer(t, func(conn net.Conn) {
		relay(t, conn, seen, 2)
	})

	c := dialClient(t, port)
	for i := 0; i < 2; i++ {
		msg := fixmsg.New(api.Tags{api.TagMsgType: "D", 55: "MSFT"})
		if _, err := c.Send(msg); err != nil {
			t.Fatalf("Send() error: %v", err)
		}
	}
	for i, want := range []string{"1", "2"} {
		msg := waitMsg(t, seen)
		if v, _ := msg.Get(api.TagMsgSeqNum); v != want {
			t.Errorf("message %d MsgSeqNum = %q, want %q", i, v, want)
		}
	}
}

func TestSequenceResetRebasesCounter(t *testing.T) {
	seen := make(chan api.Message, 2)
	port := scriptedPeer(t, func(conn net.Conn) {
		relay(t, conn, seen, 2)
	})

	c := dialClient(t, port)
	reset := fixmsg.New(api.Tags{
		api.TagMsgType:  api.MsgTypeSequenceReset,
		api.TagNewSeqNo: 7,
	})
	if _, err := c.Send(reset); err != nil {
		t.Fatalf("Send(reset) error: %v", err)
	}
	next := fixmsg.New(api.Tags{api.TagMsgType: "D"})
	if _, err := c.Send(next); err != nil {
		t.Fatalf("Send(next) error: %v", err)
	}

	// The reset itself still carries the pre-reset number.
	if v, _ := waitMsg(t, seen).Get(api.TagMsgSeqNum); v != "1" {
		t.Errorf("reset MsgSeqNum = %q, want %q", v, "1")
	}
	if v, _ := waitMsg(t, seen).Get(api.TagMsgSeqNum); v != "7" {
		t.Errorf("post-reset MsgSeqNum = %q, want %q", v, "7")
	}
}

func TestSequenceResetWithoutNewSeqNo(t *testing.T) {
	port := scriptedPeer(t, func(conn net.Conn) {
		protocol.ReadFrame(conn)
	})

	c := dialClient(t, port)
	reset := fixmsg.New(api.Tags{api.TagMsgType: api.MsgTypeSequenceReset})
	if _, err := c.Send(reset); !errors.Is(err, api.ErrProtocolSequence) {
		t.Fatalf("Send() error = %v, want ErrProtocolSequence", err)
	}
}

func TestLogonSeqNumOverrideRebases(t *testing.T) {
	seen := make(chan api.Message, 2)
	port := scriptedPeer(t, func(conn net.Conn) {
		relay(t, conn, seen, 2)
	})

	c := dialClient(t, port)
	if _, err := c.SendLogon(api.Tags{api.TagMsgSeqNum: 9}); err != nil {
		t.Fatalf("SendLogon() error: %v", err)
	}
	if _, err := c.Send(fixmsg.New(api.Tags{api.TagMsgType: "D"})); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if v, _ := waitMsg(t, seen).Get(api.TagMsgSeqNum); v != "9" {
		t.Errorf("logon MsgSeqNum = %q, want %q", v, "9")
	}
	if v, _ := waitMsg(t, seen).Get(api.TagMsgSeqNum); v != "10" {
		t.Errorf("post-logon MsgSeqNum = %q, want %q", v, "10")
	}
}

func TestReceiveTimeout(t *testing.T) {
	port := scriptedPeer(t, func(conn net.Conn) {
		protocol.ReadFrame(conn) // stay silent, hold the connection open
	})

	c := dialClient(t, port)
	if _, err := c.Receive(50 * time.Millisecond); !errors.Is(err, api.ErrTimeout) {
		t.Fatalf("Receive() error = %v, want ErrTimeout", err)
	}
}

func TestReceiveClosedPeer(t *testing.T) {
	port := scriptedPeer(t, func(conn net.Conn) {})

	c := dialClient(t, port)
	if _, err := c.Receive(time.Second); !errors.Is(err, api.ErrConnectionClosed) {
		t.Fatalf("Receive() error = %v, want ErrConnectionClosed", err)
	}
}

func TestLogoffUnexpectedResponse(t *testing.T) {
	seen := make(chan api.Message, 1)
	port := scriptedPeer(t, func(conn net.Conn) {
		relay(t, conn, seen, 1)
		conn.Write(peerFrame(t, api.Tags{
			api.TagBeginString:  "FIX.4.2",
			api.TagMsgType:      api.MsgTypeHeartbeat,
			api.TagMsgSeqNum:    1,
			api.TagSenderCompID: "EXEC",
			api.TagTargetCompID: "BANZAI",
			api.TagSendingTime:  protocol.UTCTimestamp(),
		}))
	})

	c := dialClient(t, port)
	_, err := c.Logoff(nil)

	var ure *api.UnexpectedResponseError
	if !errors.As(err, &ure) {
		t.Fatalf("Logoff() error = %v, want UnexpectedResponseError", err)
	}
	if ure.Want != api.MsgTypeLogout {
		t.Errorf("Want = %q, want %q", ure.Want, api.MsgTypeLogout)
	}
	if v, _ := ure.Got.Get(api.TagMsgType); v != api.MsgTypeHeartbeat {
		t.Errorf("Got MsgType = %q, want %q", v, api.MsgTypeHeartbeat)
	}
	if v, _ := waitMsg(t, seen).Get(api.TagMsgType); v != api.MsgTypeLogout {
		t.Errorf("request MsgType = %q, want %q", v, api.MsgTypeLogout)
	}
}

func TestFlushDrains(t *testing.T) {
	port := scriptedPeer(t, func(conn net.Conn) {
		for i := 1; i <= 3; i++ {
			conn.Write(peerFrame(t, api.Tags{
				api.TagBeginString:  "FIX.4.2",
				api.TagMsgType:      api.MsgTypeHeartbeat,
				api.TagMsgSeqNum:    i,
				api.TagSenderCompID: "EXEC",
				api.TagTargetCompID: "BANZAI",
				api.TagSendingTime:  protocol.UTCTimestamp(),
			}))
		}
		protocol.ReadFrame(conn) // hold the connection open
	})

	c := dialClient(t, port)
	if n := c.Flush(200 * time.Millisecond); n != 3 {
		t.Errorf("Flush() = %d, want 3", n)
	}
}

func TestRawSendLeavesHeaderAlone(t *testing.T) {
	seen := make(chan api.Message, 1)
	port := scriptedPeer(t, func(conn net.Conn) {
		relay(t, conn, seen, 1)
	})

	c := dialClient(t, port)
	raw := fixmsg.New(api.Tags{
		api.TagBeginString: "FIX.4.2",
		api.TagMsgType:     api.MsgTypeHeartbeat,
	})
	if _, err := c.RawSend(raw); err != nil {
		t.Fatalf("RawSend() error: %v", err)
	}

	got := waitMsg(t, seen)
	for _, tag := range []int{api.TagMsgSeqNum, api.TagSenderCompID, api.TagTargetCompID, api.TagSendingTime} {
		if got.Has(tag) {
			t.Errorf("raw send stamped tag %d", tag)
		}
	}
}

func TestNewRequiresCodec(t *testing.T) {
	if _, err := client.New(client.Config{}); err == nil {
		t.Fatal("New() accepted a config without a codec")
	}
}
