// File: fixmsg/codec.go
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0
//
// Wire codec for tag=value frames. Serialize computes BodyLength(9) and
// CheckSum(10) itself; callers stamp every other tag. Parse keeps the
// framing tags in the decoded message so receivers can inspect them.

package fixmsg

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/mrylov/fixlink/api"
	"github.com/mrylov/fixlink/protocol"
)

// Codec serializes and parses tag=value frames.
//
// Serialize writes BeginString(8), the computed BodyLength(9), then
// MsgType(35) leading the body, the remaining tags in message order,
// and the computed CheckSum(10) trailer. The message must carry
// BeginString(8) and MsgType(35) already; session stamping guarantees
// both.
type Codec struct {
	// StrictChecksum makes Parse verify the CheckSum(10) trailer
	// against the byte sum of the frame. Off by default: the framer
	// already validated the trailer shape, and test counterparties
	// frequently send placeholder checksums.
	StrictChecksum bool
}

// Serialize implements api.Codec.
func (c *Codec) Serialize(msg api.Message) ([]byte, error) {
	begin, ok := msg.Get(api.TagBeginString)
	if !ok {
		return nil, fmt.Errorf("fixmsg: message missing BeginString(8)")
	}
	msgType, ok := msg.Get(api.TagMsgType)
	if !ok {
		return nil, fmt.Errorf("fixmsg: message missing MsgType(35)")
	}

	var body bytes.Buffer
	writeField(&body, api.TagMsgType, msgType)
	for _, tag := range msg.Tags() {
		switch tag {
		case api.TagBeginString, api.TagBodyLength, api.TagMsgType, api.TagCheckSum:
			continue
		}
		v, _ := msg.Get(tag)
		writeField(&body, tag, v)
	}

	var frame bytes.Buffer
	writeField(&frame, api.TagBeginString, begin)
	writeField(&frame, api.TagBodyLength, strconv.Itoa(body.Len()))
	frame.Write(body.Bytes())
	writeField(&frame, api.TagCheckSum, fmt.Sprintf("%03d", byteSum(frame.Bytes())%256))
	return frame.Bytes(), nil
}

// Parse implements api.Codec. Fields are stored in wire order; the
// framing tags 8, 9 and 10 are kept.
func (c *Codec) Parse(data []byte, msg api.Message) error {
	if c.StrictChecksum {
		if err := verifyChecksum(data); err != nil {
			return err
		}
	}
	for len(data) > 0 {
		var fld []byte
		if i := bytes.IndexByte(data, protocol.SOH); i >= 0 {
			fld, data = data[:i], data[i+1:]
		} else {
			fld, data = data, nil
		}
		if len(fld) == 0 {
			continue
		}
		eq := bytes.IndexByte(fld, '=')
		if eq < 0 {
			return fmt.Errorf("%w: field %q has no separator", api.ErrFraming, fld)
		}
		tag, err := strconv.Atoi(string(fld[:eq]))
		if err != nil {
			return fmt.Errorf("%w: bad tag in field %q", api.ErrFraming, fld)
		}
		msg.Set(tag, string(fld[eq+1:]))
	}
	return nil
}

func writeField(b *bytes.Buffer, tag int, value string) {
	b.WriteString(strconv.Itoa(tag))
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte(protocol.SOH)
}

func byteSum(data []byte) int {
	var sum int
	for _, b := range data {
		sum += int(b)
	}
	return sum
}

// verifyChecksum recomputes the byte sum over everything before the
// trailer and compares it to the CheckSum(10) value.
func verifyChecksum(data []byte) error {
	i := bytes.LastIndex(data, []byte("\x0110="))
	if i < 0 {
		return fmt.Errorf("%w: no checksum trailer", api.ErrFraming)
	}
	trailer := data[i+1:]
	if len(trailer) < 5 || trailer[len(trailer)-1] != protocol.SOH {
		return fmt.Errorf("%w: malformed trailer %q", api.ErrFraming, trailer)
	}
	got := string(trailer[3 : len(trailer)-1])
	want := fmt.Sprintf("%03d", byteSum(data[:i+1])%256)
	if got != want {
		return fmt.Errorf("%w: checksum %s, computed %s", api.ErrFraming, got, want)
	}
	return nil
}
