//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows IOCP (I/O Completion Port) reactor implementation and factory.

package reactor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/windows"

	"github.com/momentics/p2p-lan-share/api"
)

// wakeKey is the completion key Close posts to unblock Wait. Handle keys
// start at 1.
const wakeKey uintptr = 0

// iocpEntry maps a completion key back to the registered handle.
type iocpEntry struct {
	handle   uintptr
	userData uintptr
}

// windowsReactor is an IOCP-based event reactor.
type windowsReactor struct {
	mu      sync.RWMutex // held shared by Wait/Register, exclusive by Close
	iocp    windows.Handle
	closing atomic.Bool
	closed  bool

	keyMu   sync.Mutex
	nextKey uintptr
	entries map[uintptr]iocpEntry // by completion key
	keys    map[uintptr]uintptr   // handle -> completion key
}

// NewReactor constructs a new platform-specific EventReactor for Windows.
func NewReactor() (EventReactor, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("iocp create: %w", err)
	}
	return &windowsReactor{
		iocp:    port,
		entries: make(map[uintptr]iocpEntry),
		keys:    make(map[uintptr]uintptr),
	}, nil
}

// Register associates a handle with IOCP under a fresh completion key.
func (r *windowsReactor) Register(handle uintptr, userData uintptr) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed || r.closing.Load() {
		return api.ErrContextClosed
	}
	r.keyMu.Lock()
	r.nextKey++
	key := r.nextKey
	r.entries[key] = iocpEntry{handle: handle, userData: userData}
	r.keys[handle] = key
	r.keyMu.Unlock()

	if _, err := windows.CreateIoCompletionPort(windows.Handle(handle), r.iocp, key, 0); err != nil {
		r.keyMu.Lock()
		delete(r.entries, key)
		delete(r.keys, handle)
		r.keyMu.Unlock()
		return fmt.Errorf("iocp associate: %w", err)
	}
	return nil
}

// Unregister drops the handle mapping. IOCP has no disassociation, so
// late packets for the handle are discarded by Wait.
func (r *windowsReactor) Unregister(handle uintptr) error {
	r.keyMu.Lock()
	defer r.keyMu.Unlock()
	if key, ok := r.keys[handle]; ok {
		delete(r.entries, key)
		delete(r.keys, handle)
	}
	return nil
}

func (r *windowsReactor) lookup(key uintptr) (iocpEntry, bool) {
	r.keyMu.Lock()
	defer r.keyMu.Unlock()
	e, ok := r.entries[key]
	return e, ok
}

// Wait blocks for one completion and fills the first slot of events.
func (r *windowsReactor) Wait(events []Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, api.ErrInvalidArgument
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed || r.closing.Load() {
		return 0, api.ErrContextClosed
	}

	wait := uint32(windows.INFINITE)
	if ms := timeoutMillis(timeout); ms >= 0 {
		wait = uint32(ms)
	}

	var qty uint32
	var key uintptr
	var overlapped *windows.Overlapped
	err := windows.GetQueuedCompletionStatus(r.iocp, &qty, &key, &overlapped, wait)
	if r.closing.Load() {
		return 0, api.ErrContextClosed
	}
	ev, ok, err := completionEvent(err, key, overlapped, r.lookup)
	if err != nil || !ok {
		return 0, err
	}
	events[0] = ev
	return 1, nil
}

// completionEvent interprets one GetQueuedCompletionStatus result. A
// failure with a nil overlapped is a failure of the wait itself; with a
// non-nil overlapped a packet was dequeued for an I/O that failed, and
// the failure travels on the event.
func completionEvent(err error, key uintptr, ov *windows.Overlapped, lookup func(uintptr) (iocpEntry, bool)) (Event, bool, error) {
	if ov == nil {
		switch {
		case err == nil && key == wakeKey:
			return Event{}, false, api.ErrContextClosed
		case errors.Is(err, windows.Errno(windows.WAIT_TIMEOUT)):
			return Event{}, false, nil
		case err != nil:
			return Event{}, false, fmt.Errorf("iocp wait: %w", err)
		}
	}
	entry, ok := lookup(key)
	if !ok {
		return Event{}, false, nil
	}
	return Event{Fd: entry.handle, UserData: entry.userData, Err: err}, true, nil
}

// Close wakes any blocked Wait, then closes the IOCP handle. Later calls
// are no-ops.
func (r *windowsReactor) Close() error {
	if !r.closing.CompareAndSwap(false, true) {
		return nil
	}
	_ = windows.PostQueuedCompletionStatus(r.iocp, 0, wakeKey, nil)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return windows.CloseHandle(r.iocp)
}
