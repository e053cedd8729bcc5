// Package api
// Author: mrylov <mrylov@gmail.com>
//
// Collaborator interfaces for the fixlink engine: tag-indexed messages,
// message factories, and pluggable wire codecs. The engine itself never
// depends on a concrete message type; callers inject one (fixmsg is the
// default) the same way they inject the codec.

package api

import "fmt"

// Message is a tag-indexed FIX message with insertion-ordered tags.
// The engine only ever touches session-level tags (8, 9, 10, 34, 35, 36,
// 49, 50, 52, 56, 98, 108, 141) and leaves everything else to the caller.
type Message interface {
	// Get returns the value stored under tag, if any.
	Get(tag int) (string, bool)

	// Set stores value under tag. An existing tag keeps its position.
	Set(tag int, value string)

	// Delete removes tag; removing an absent tag is a no-op.
	Delete(tag int)

	// Has reports whether tag is present.
	Has(tag int) bool

	// Tags returns all tags in message order.
	Tags() []int

	// ToWire serializes the message with the given codec.
	ToWire(c Codec) ([]byte, error)
}

// MessageFactory constructs messages, both from literal tag mappings and
// from complete wire frames. It plays the role the injected message class
// plays in dynamically typed harnesses.
type MessageFactory interface {
	// New builds a message from a literal tag mapping. Nil values are
	// skipped; tags are inserted in ascending numeric order so that the
	// resulting wire form is deterministic.
	New(tags Tags) Message

	// FromWire decodes one complete frame using codec.
	FromWire(data []byte, codec Codec) (Message, error)
}

// Codec converts between a Message and raw FIX tag=value wire bytes.
type Codec interface {
	// Serialize renders msg into one complete wire frame, computing
	// BodyLength(9) and CheckSum(10).
	Serialize(msg Message) ([]byte, error)

	// Parse decodes one complete wire frame into msg.
	Parse(data []byte, msg Message) error
}

// TimestampProvider is optionally implemented by codecs that supply their
// own SendingTime(52) clock. When absent the engine falls back to
// protocol.UTCTimestamp.
type TimestampProvider interface {
	UTCTimestamp() string
}

// Tags is a literal tag-to-value mapping used for bulk construction and
// for per-message overrides. A nil value marks the tag for deletion when
// the mapping is applied as an override; during construction nil entries
// are skipped.
type Tags map[int]any

// Render converts a tag value to its wire string. Strings and byte slices
// pass through, everything else goes through fmt.Sprint. The second return
// is false for nil values.
func Render(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Text renders msg for log output, preferring the message's own String
// method when it has one.
func Text(msg Message) string {
	if s, ok := msg.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", msg)
}
