// File: protocol/parser.go
// Package protocol implements FIX wire-level framing.
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0
//
// The framer recognizes one complete tag=value frame in a byte stream
// without assuming a fixed header length: it walks BeginString(8) until
// the BodyLength(9) marker, reads the declared body size, then the fixed
// seven-byte CheckSum(10) trailer. It is agnostic to every other tag.

package protocol

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/mrylov/fixlink/api"
)

// SOH is the FIX field delimiter byte.
const SOH = 0x01

// TrailerLen is the fixed length of the "10=XXX<SOH>" checksum trailer.
const TrailerLen = 7

// State identifies the parser's position inside a frame. Transitions are
// forward-only.
type State int

const (
	StateNotStarted State = iota
	StateReadingHeader
	StateReadingLength
	StateReadingBody
	StateReadingCheckSum
)

// String returns the state name for log output.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateReadingHeader:
		return "ReadingHeader"
	case StateReadingLength:
		return "ReadingLength"
	case StateReadingBody:
		return "ReadingBody"
	case StateReadingCheckSum:
		return "ReadingCheckSum"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Parser assembles one FIX frame from an incremental byte stream. A
// parser instance is single-use: create a fresh one per frame.
//
// The driving contract is pull-based: Consume returns how many bytes the
// caller must read and feed next (one byte initially), and 0 once the
// frame is complete in Bytes.
type Parser struct {
	buffer    []byte
	lengthBuf []byte
	state     State
	complete  bool
}

// NewParser returns a parser ready for the first probe byte.
func NewParser() *Parser {
	return &Parser{state: StateNotStarted}
}

// State returns the current parser state.
func (p *Parser) State() State {
	return p.state
}

// Bytes returns the frame assembled so far. After Consume has returned 0
// from a completed trailer it holds exactly one well-formed frame.
func (p *Parser) Bytes() []byte {
	return p.buffer
}

// Complete reports whether a full frame, trailer included, has been
// assembled.
func (p *Parser) Complete() bool {
	return p.complete
}

// Consume ingests buf and returns the number of bytes to read next. The
// caller must feed exactly the requested count. A return of 0 after
// Complete() signals one finished frame; a return of 0 from the initial
// state means the probe byte could not begin a frame.
func (p *Parser) Consume(buf []byte) (int, error) {
	switch p.state {
	case StateNotStarted:
		// A frame begins with the BeginString tag; accept only its
		// first byte as the probe.
		if len(buf) == 1 && (buf[0] == '8' || buf[0] == '9') {
			p.buffer = append(p.buffer, buf...)
			p.state = StateReadingHeader
			return 1, nil
		}
		return 0, nil

	case StateReadingHeader:
		p.buffer = append(p.buffer, buf...)
		if p.atBodyLengthMarker() {
			p.state = StateReadingLength
		}
		return 1, nil

	case StateReadingLength:
		if len(buf) == 1 && buf[0] == SOH {
			n, err := strconv.Atoi(string(p.lengthBuf))
			if err != nil {
				return 0, fmt.Errorf("%w: bad body length %q", api.ErrFraming, p.lengthBuf)
			}
			p.buffer = append(p.buffer, p.lengthBuf...)
			p.buffer = append(p.buffer, SOH)
			p.state = StateReadingBody
			return n, nil
		}
		p.lengthBuf = append(p.lengthBuf, buf...)
		return 1, nil

	case StateReadingBody:
		p.buffer = append(p.buffer, buf...)
		p.state = StateReadingCheckSum
		return TrailerLen, nil

	case StateReadingCheckSum:
		if !validTrailer(buf) {
			return 0, fmt.Errorf("%w: %q", api.ErrFraming, buf)
		}
		p.buffer = append(p.buffer, buf...)
		p.complete = true
		return 0, nil
	}
	return 0, fmt.Errorf("%w: consume in state %s", api.ErrFraming, p.state)
}

// atBodyLengthMarker reports whether the header buffer has just reached
// the BodyLength tag: either the three-byte "<SOH>9=" suffix or, for a
// frame started mid-stream at the probe byte '9', the bare "9=" prefix.
func (p *Parser) atBodyLengthMarker() bool {
	n := len(p.buffer)
	if n >= 3 && p.buffer[n-3] == SOH && p.buffer[n-2] == '9' && p.buffer[n-1] == '=' {
		return true
	}
	return n == 2 && p.buffer[0] == '9' && p.buffer[1] == '='
}

// validTrailer reports whether buf is a plausible "10=XXX<SOH>" trailer.
func validTrailer(buf []byte) bool {
	return len(buf) >= 4 &&
		bytes.HasPrefix(buf, []byte("10=")) &&
		buf[len(buf)-1] == SOH
}
