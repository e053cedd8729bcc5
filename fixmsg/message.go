// File: fixmsg/message.go
// Package fixmsg provides the default tag=value message container and
// wire codec. The engine accepts any api.Message/api.Codec pair; this
// package is the implementation used when the caller supplies none.
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0

package fixmsg

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mrylov/fixlink/api"
)

type field struct {
	tag   int
	value string
}

// Message is an insertion-ordered tag=value container. Repeated Set on
// a present tag replaces the value in place and keeps its position.
type Message struct {
	fields []field
	index  map[int]int
}

// NewMessage returns an empty message.
func NewMessage() *Message {
	return &Message{index: make(map[int]int)}
}

// New builds a message from tags, inserting in ascending tag order so
// construction from a map stays deterministic. Nil values are skipped.
func New(tags api.Tags) *Message {
	m := NewMessage()
	order := make([]int, 0, len(tags))
	for tag := range tags {
		order = append(order, tag)
	}
	sort.Ints(order)
	for _, tag := range order {
		if v, ok := api.Render(tags[tag]); ok {
			m.Set(tag, v)
		}
	}
	return m
}

// Get returns the value for tag and whether the tag is present.
func (m *Message) Get(tag int) (string, bool) {
	i, ok := m.index[tag]
	if !ok {
		return "", false
	}
	return m.fields[i].value, true
}

// Set stores value under tag, replacing in place when present.
func (m *Message) Set(tag int, value string) {
	if i, ok := m.index[tag]; ok {
		m.fields[i].value = value
		return
	}
	m.index[tag] = len(m.fields)
	m.fields = append(m.fields, field{tag: tag, value: value})
}

// Delete removes tag. Absent tags are a no-op.
func (m *Message) Delete(tag int) {
	i, ok := m.index[tag]
	if !ok {
		return
	}
	m.fields = append(m.fields[:i], m.fields[i+1:]...)
	delete(m.index, tag)
	for j := i; j < len(m.fields); j++ {
		m.index[m.fields[j].tag] = j
	}
}

// Has reports whether tag is present.
func (m *Message) Has(tag int) bool {
	_, ok := m.index[tag]
	return ok
}

// Tags returns the tags in insertion order.
func (m *Message) Tags() []int {
	tags := make([]int, len(m.fields))
	for i, f := range m.fields {
		tags[i] = f.tag
	}
	return tags
}

// ToWire serializes the message through c.
func (m *Message) ToWire(c api.Codec) ([]byte, error) {
	return c.Serialize(m)
}

// String renders the message with pipe separators for log output.
func (m *Message) String() string {
	var b strings.Builder
	for i, f := range m.fields {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(f.tag))
		b.WriteByte('=')
		b.WriteString(f.value)
	}
	return b.String()
}

// Factory builds fixmsg messages for the engine.
type Factory struct{}

// New implements api.MessageFactory.
func (Factory) New(tags api.Tags) api.Message {
	return New(tags)
}

// FromWire decodes one received frame into a fresh message.
func (Factory) FromWire(data []byte, codec api.Codec) (api.Message, error) {
	msg := NewMessage()
	if err := codec.Parse(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
