// File: session/queue.go
// Author: mrylov <mrylov@gmail.com>
// License: Apache-2.0
//
// Bounded inbound message queue. The server's service goroutine is the
// producer; application goroutines consume. The ring buffer holds the
// messages, two token channels carry the blocking semantics.

package session

import (
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/mrylov/fixlink/api"
)

// DefaultQueueCapacity bounds a session's inbound queue when the server
// does not say otherwise.
const DefaultQueueCapacity = 1024

// Queue is a bounded FIFO of received business messages, safe for one
// producer and any number of consumers.
type Queue struct {
	mu    sync.Mutex
	buf   *queue.Queue
	items chan struct{} // one token per queued message
	space chan struct{} // one token per free slot
}

// NewQueue returns an empty queue holding at most capacity messages.
// A capacity of zero or less falls back to DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q := &Queue{
		buf:   queue.New(),
		items: make(chan struct{}, capacity),
		space: make(chan struct{}, capacity),
	}
	for i := 0; i < capacity; i++ {
		q.space <- struct{}{}
	}
	return q
}

// Put appends msg, waiting up to timeout for a free slot. A timeout of
// zero or less means no waiting. Returns api.ErrQueueFull when the
// queue stays full past the bound.
func (q *Queue) Put(msg api.Message, timeout time.Duration) error {
	select {
	case <-q.space:
	default:
		if timeout <= 0 {
			return api.ErrQueueFull
		}
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-q.space:
		case <-t.C:
			return api.ErrQueueFull
		}
	}
	q.mu.Lock()
	q.buf.Add(msg)
	q.mu.Unlock()
	q.items <- struct{}{}
	return nil
}

// Get removes and returns the oldest message. A timeout of zero or less
// means non-blocking: an empty queue returns api.ErrNoMessage. With a
// positive timeout the call blocks up to that long and an empty queue
// returns api.ErrTimeout.
func (q *Queue) Get(timeout time.Duration) (api.Message, error) {
	if timeout <= 0 {
		select {
		case <-q.items:
		default:
			return nil, api.ErrNoMessage
		}
	} else {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-q.items:
		case <-t.C:
			return nil, api.ErrTimeout
		}
	}
	q.mu.Lock()
	msg := q.buf.Remove().(api.Message)
	q.mu.Unlock()
	q.space <- struct{}{}
	return msg, nil
}

// Flush drains the queue without blocking and returns the number of
// messages dropped.
func (q *Queue) Flush() int {
	n := 0
	for {
		if _, err := q.Get(0); err != nil {
			return n
		}
		n++
	}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Length()
}
