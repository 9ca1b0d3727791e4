//go:build linux
// +build linux

package reactor

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/p2p-lan-share/api"
)

func TestLinuxReactorWaitReportsReadiness(t *testing.T) {
	r, err := NewReactor()
	if err != nil {
		t.Fatalf("NewReactor() error: %v", err)
	}
	defer r.Close()

	rd, wr := newPipe(t)
	if err := r.Register(uintptr(rd), 42); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if _, err := unix.Write(wr, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	events := make([]Event, 4)
	n, err := r.Wait(events, time.Second)
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("Wait() = %d events, want 1", n)
	}
	if events[0].Fd != uintptr(rd) || events[0].UserData != 42 {
		t.Errorf("event = %+v, want fd %d userData 42", events[0], rd)
	}
}

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestLinuxReactorKeepsFullWidthUserData(t *testing.T) {
	r, err := NewReactor()
	if err != nil {
		t.Fatalf("NewReactor() error: %v", err)
	}
	defer r.Close()

	// Values with the high bits set on every word size.
	want := map[uintptr]uintptr{}
	for i, ud := range []uintptr{^uintptr(0) - 0x9a, ^uintptr(0) - 0x99} {
		rd, wr := newPipe(t)
		if err := r.Register(uintptr(rd), ud); err != nil {
			t.Fatalf("Register(%d) error: %v", i, err)
		}
		if _, err := unix.Write(wr, []byte("x")); err != nil {
			t.Fatalf("write: %v", err)
		}
		want[uintptr(rd)] = ud
	}

	events := make([]Event, 8)
	n, err := r.Wait(events, time.Second)
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if n != 2 {
		t.Fatalf("Wait() = %d events, want 2", n)
	}
	for _, ev := range events[:n] {
		if ud, ok := want[ev.Fd]; !ok || ev.UserData != ud {
			t.Errorf("fd %d: UserData = %#x, want %#x", ev.Fd, ev.UserData, ud)
		}
	}
}

func TestLinuxReactorUnregisterStopsEvents(t *testing.T) {
	r, err := NewReactor()
	if err != nil {
		t.Fatalf("NewReactor() error: %v", err)
	}
	defer r.Close()

	rd, wr := newPipe(t)
	if err := r.Register(uintptr(rd), 1); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := r.Unregister(uintptr(rd)); err != nil {
		t.Fatalf("Unregister() error: %v", err)
	}
	if _, err := unix.Write(wr, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if n, err := r.Wait(make([]Event, 1), 5*time.Millisecond); err != nil || n != 0 {
		t.Fatalf("Wait() = (%d, %v), want (0, nil)", n, err)
	}
}

func TestLinuxReactorCloseWakesBlockedWait(t *testing.T) {
	r, err := NewReactor()
	if err != nil {
		t.Fatalf("NewReactor() error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.Wait(make([]Event, 1), -1)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, api.ErrContextClosed) {
			t.Errorf("Wait() = %v, want ErrContextClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() still blocked after Close")
	}
}

func TestLinuxReactorWaitTimesOut(t *testing.T) {
	r, err := NewReactor()
	if err != nil {
		t.Fatalf("NewReactor() error: %v", err)
	}
	defer r.Close()

	n, err := r.Wait(make([]Event, 1), 5*time.Millisecond)
	if err != nil || n != 0 {
		t.Fatalf("Wait() = (%d, %v), want (0, nil)", n, err)
	}
}

func TestLinuxReactorClosedRejectsCalls(t *testing.T) {
	r, err := NewReactor()
	if err != nil {
		t.Fatalf("NewReactor() error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if _, err := r.Wait(make([]Event, 1), 0); !errors.Is(err, api.ErrContextClosed) {
		t.Errorf("Wait() after Close = %v, want ErrContextClosed", err)
	}
	if err := r.Register(0, 0); !errors.Is(err, api.ErrContextClosed) {
		t.Errorf("Register() after Close = %v, want ErrContextClosed", err)
	}
	if err := r.Unregister(0); !errors.Is(err, api.ErrContextClosed) {
		t.Errorf("Unregister() after Close = %v, want ErrContextClosed", err)
	}
}
