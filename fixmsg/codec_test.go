// File: fixmsg/codec_test.go
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0

package fixmsg_test

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/mrylov/fixlink/api"
	"github.com/mrylov/fixlink/fixmsg"
	"github.com/mrylov/fixlink/protocol"
)

func TestSerializeComputesFraming(t *testing.T) {
	c := &fixmsg.Codec{}
	m := fixmsg.New(api.Tags{8: "FIX.4.2", 35: "A", 98: "0", 108: 600, 141: "Y"})

	wire, err := c.Serialize(m)
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	want := []byte("8=FIX.4.2\x019=24\x0135=A\x0198=0\x01108=600\x01141=Y\x0110=092\x01")
	if !bytes.Equal(wire, want) {
		t.Errorf("wire mismatch,\n got %q\nwant %q", wire, want)
	}
}

func TestSerializeRequiresHeaderTags(t *testing.T) {
	c := &fixmsg.Codec{}
	if _, err := c.Serialize(fixmsg.New(api.Tags{35: "A"})); err == nil {
		t.Error("Serialize() accepted a message without BeginString(8)")
	}
	if _, err := c.Serialize(fixmsg.New(api.Tags{8: "FIX.4.2"})); err == nil {
		t.Error("Serialize() accepted a message without MsgType(35)")
	}
}

func TestSerializedFrameParsesBack(t *testing.T) {
	c := &fixmsg.Codec{StrictChecksum: true}
	m := fixmsg.New(api.Tags{
		8: "FIX.4.2", 35: "D", 49: "CLIENT", 56: "SERVER",
		34: 2, 55: "AAPL", 38: 100,
	})

	wire, err := c.Serialize(m)
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}

	got := fixmsg.NewMessage()
	if err := c.Parse(wire, got); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	// Wire order: framing tags plus MsgType lead, the rest in message
	// order, trailer last.
	want := []int{8, 9, 35, 34, 38, 49, 55, 56, 10}
	if !reflect.DeepEqual(got.Tags(), want) {
		t.Errorf("Tags() = %v, want %v", got.Tags(), want)
	}
	if v, _ := got.Get(55); v != "AAPL" {
		t.Errorf("tag 55 = %q, want %q", v, "AAPL")
	}
	if v, _ := got.Get(34); v != "2" {
		t.Errorf("tag 34 = %q, want %q", v, "2")
	}
}

func TestSerializedFrameSatisfiesFramer(t *testing.T) {
	c := &fixmsg.Codec{}
	m := fixmsg.New(api.Tags{8: "FIX.4.2", 35: "0", 49: "A", 56: "B", 34: 9})

	wire, err := c.Serialize(m)
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}

	// The framer must accept codec output under its pull contract.
	p := protocol.NewParser()
	r := bytes.NewReader(wire)
	need := 1
	for need > 0 {
		chunk := make([]byte, need)
		if _, err := io.ReadFull(r, chunk); err != nil {
			t.Fatalf("stream exhausted in state %s: %v", p.State(), err)
		}
		if need, err = p.Consume(chunk); err != nil {
			t.Fatalf("Consume() error in state %s: %v", p.State(), err)
		}
	}
	if !p.Complete() {
		t.Fatal("framer did not complete the frame")
	}
	if r.Len() != 0 {
		t.Errorf("framer left %d bytes unread", r.Len())
	}
	if !bytes.Equal(p.Bytes(), wire) {
		t.Errorf("frame mismatch, got %q, want %q", p.Bytes(), wire)
	}
}

func TestParseStrictChecksum(t *testing.T) {
	c := &fixmsg.Codec{}
	m := fixmsg.New(api.Tags{8: "FIX.4.2", 35: "5", 49: "A", 56: "B"})

	wire, err := c.Serialize(m)
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	// Corrupt one body byte without touching the trailer.
	bad := append([]byte{}, wire...)
	bad[bytes.IndexByte(bad, 'A')] = 'Z'

	strict := &fixmsg.Codec{StrictChecksum: true}
	if err := strict.Parse(bad, fixmsg.NewMessage()); !errors.Is(err, api.ErrFraming) {
		t.Errorf("strict Parse() error = %v, want framing error", err)
	}
	// The default codec does not verify checksum contents.
	if err := c.Parse(bad, fixmsg.NewMessage()); err != nil {
		t.Errorf("Parse() error: %v", err)
	}
}

func TestParseMalformedField(t *testing.T) {
	c := &fixmsg.Codec{}
	if err := c.Parse([]byte("8=FIX.4.2\x01junk\x01"), fixmsg.NewMessage()); !errors.Is(err, api.ErrFraming) {
		t.Errorf("Parse() error = %v, want framing error", err)
	}
	if err := c.Parse([]byte("ab=1\x01"), fixmsg.NewMessage()); !errors.Is(err, api.ErrFraming) {
		t.Errorf("Parse() error = %v, want framing error", err)
	}
}

func TestFactoryFromWire(t *testing.T) {
	c := &fixmsg.Codec{}
	wire, err := c.Serialize(fixmsg.New(api.Tags{8: "FIX.4.2", 35: "A", 34: 1}))
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}

	msg, err := fixmsg.Factory{}.FromWire(wire, c)
	if err != nil {
		t.Fatalf("FromWire() error: %v", err)
	}
	if v, _ := msg.Get(35); v != "A" {
		t.Errorf("tag 35 = %q, want %q", v, "A")
	}
}
