//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: mrylov <mrylov@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// linuxReactor is an epoll-based readiness reactor.
type linuxReactor struct {
	epfd int
}

// New constructs the platform reactor for Linux. Level-triggered: the
// service loop reads exactly one frame per wakeup and relies on
// re-notification for bytes it left behind.
func New() (Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &linuxReactor{epfd: epfd}, nil
}

// Register adds the file descriptor to epoll.
func (r *linuxReactor) Register(fd int) error {
	event := &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	}
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, event)
}

// Unregister removes the file descriptor from epoll.
func (r *linuxReactor) Unregister(fd int) error {
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait polls epoll and fills events. EINTR counts as an empty wakeup.
func (r *linuxReactor) Wait(events []Event, timeout time.Duration) (int, error) {
	msec := -1
	if timeout >= 0 {
		msec = int(timeout / time.Millisecond)
	}
	rawEvents := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(r.epfd, rawEvents, msec)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		events[i] = Event{
			FD:       int(rawEvents[i].Fd),
			Readable: rawEvents[i].Events&unix.EPOLLIN != 0,
			Hangup:   rawEvents[i].Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0,
		}
	}
	return n, nil
}

// Close closes the epoll instance.
func (r *linuxReactor) Close() error {
	return unix.Close(r.epfd)
}
