//go:build darwin || dragonfly || freebsd || netbsd || openbsd
// +build darwin dragonfly freebsd netbsd openbsd

// File: reactor/reactor_bsd.go
// Author: mrylov <mrylov@gmail.com>
//
// kqueue(2)-based reactor implementation for darwin and the BSDs.

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueueReactor is a kqueue-based readiness reactor.
type kqueueReactor struct {
	kq int
}

// New constructs the platform reactor for kqueue systems.
func New() (Reactor, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueReactor{kq: kq}, nil
}

// Register adds a read filter for the file descriptor.
func (r *kqueueReactor) Register(fd int) error {
	ev := unix.Kevent_t{}
	unix.SetKevent(&ev, fd, unix.EVFILT_READ, unix.EV_ADD)
	_, err := unix.Kevent(r.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// Unregister drops the read filter for the file descriptor.
func (r *kqueueReactor) Unregister(fd int) error {
	ev := unix.Kevent_t{}
	unix.SetKevent(&ev, fd, unix.EVFILT_READ, unix.EV_DELETE)
	_, err := unix.Kevent(r.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// Wait polls the kqueue and fills events. EINTR counts as an empty
// wakeup. EV_EOF arrives together with any final readable bytes, so
// Readable stays authoritative for read ordering.
func (r *kqueueReactor) Wait(events []Event, timeout time.Duration) (int, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	rawEvents := make([]unix.Kevent_t, len(events))
	n, err := unix.Kevent(r.kq, nil, rawEvents, ts)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		events[i] = Event{
			FD:       int(rawEvents[i].Ident),
			Readable: rawEvents[i].Filter == unix.EVFILT_READ,
			Hangup:   rawEvents[i].Flags&unix.EV_EOF != 0,
		}
	}
	return n, nil
}

// Close closes the kqueue instance.
func (r *kqueueReactor) Close() error {
	return unix.Close(r.kq)
}
