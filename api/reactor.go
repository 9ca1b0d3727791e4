// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Abstract contract for the poll-mode reactor backing an I/O context
// (epoll, IOCP).

package api

import "time"

// Event encapsulates the result of an OS-level readiness notification.
type Event struct {
	Fd       uintptr // file descriptor or system handle
	UserData uintptr // opaque application value, returned as registered
	Err      error   // failure carried by a completion packet (IOCP); nil on epoll
}

// Reactor defines the common interface for an event loop poller
// regardless of the specific polling mechanism used.
type Reactor interface {
	// Register must associate a socket/file handle with the poller.
	Register(fd uintptr, userData uintptr) error

	// Unregister must stop reporting events for fd.
	Unregister(fd uintptr) error

	// Wait must block up to timeout and fill events when IO is ready.
	// A negative timeout blocks indefinitely. A concurrent Close wakes
	// Wait, which then returns ErrContextClosed.
	Wait(events []Event, timeout time.Duration) (int, error)

	// Close must clean up the poller backend.
	Close() error
}
