//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/p2p-lan-share/api"
)

// linuxReactor is an epoll-based event reactor. The kernel's epoll_data
// carries only the fd; user data lives in a side table keyed by fd.
type linuxReactor struct {
	mu      sync.RWMutex // held shared by Wait/Register, exclusive by Close
	epfd    int
	wakefd  int // eventfd signalled by Close to unblock Wait
	closing atomic.Bool
	closed  bool

	dataMu   sync.Mutex
	userData map[int32]uintptr
}

// NewReactor constructs a new platform-specific EventReactor for Linux.
func NewReactor() (EventReactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wakeup: %w", err)
	}
	return &linuxReactor{
		epfd:     epfd,
		wakefd:   wakefd,
		userData: make(map[int32]uintptr),
	}, nil
}

// Register adds file descriptor to epoll.
func (r *linuxReactor) Register(fd uintptr, udata uintptr) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed || r.closing.Load() {
		return api.ErrContextClosed
	}
	key := int32(fd)
	r.dataMu.Lock()
	r.userData[key] = udata
	r.dataMu.Unlock()

	event := &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLET,
		Fd:     key,
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), event); err != nil {
		r.dataMu.Lock()
		delete(r.userData, key)
		r.dataMu.Unlock()
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Unregister removes a file descriptor from the epoll watch list.
func (r *linuxReactor) Unregister(fd uintptr) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed || r.closing.Load() {
		return api.ErrContextClosed
	}
	r.dataMu.Lock()
	delete(r.userData, int32(fd))
	r.dataMu.Unlock()
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Wait waits for epoll events and fills the result into events slice.
// The read lock is held across epoll_wait so Close cannot release epfd
// underneath it; Close wakes the call through the eventfd instead.
func (r *linuxReactor) Wait(events []Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, api.ErrInvalidArgument
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed || r.closing.Load() {
		return 0, api.ErrContextClosed
	}

	rawEvents := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(r.epfd, rawEvents, timeoutMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	if r.closing.Load() {
		return 0, api.ErrContextClosed
	}

	r.dataMu.Lock()
	defer r.dataMu.Unlock()
	out := 0
	for i := 0; i < n; i++ {
		fd := rawEvents[i].Fd
		if int(fd) == r.wakefd {
			continue
		}
		events[out] = Event{
			Fd:       uintptr(fd),
			UserData: r.userData[fd],
		}
		out++
	}
	return out, nil
}

// Close wakes any blocked Wait, then closes the epoll instance and the
// eventfd. Later calls are no-ops.
func (r *linuxReactor) Close() error {
	if !r.closing.CompareAndSwap(false, true) {
		return nil
	}
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, _ = unix.Write(r.wakefd, one[:])

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return errors.Join(unix.Close(r.epfd), unix.Close(r.wakefd))
}
