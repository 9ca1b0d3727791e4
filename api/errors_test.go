package api

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorWrapMatchesSentinel(t *testing.T) {
	err := Wrap(ErrCodeClosed, ErrContextClosed, "post rejected").WithContext("pending", 3)
	if !errors.Is(err, ErrContextClosed) {
		t.Fatalf("errors.Is(%v, ErrContextClosed) = false", err)
	}
	if err.Code != ErrCodeClosed {
		t.Errorf("Code = %d, want %d", err.Code, ErrCodeClosed)
	}
	if !strings.Contains(err.Error(), "pending") {
		t.Errorf("Error() = %q, want context in message", err.Error())
	}
}

func TestNewErrorPlainMessage(t *testing.T) {
	err := NewError(ErrCodeInternal, "boom")
	if err.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", err.Error(), "boom")
	}
	if errors.Unwrap(err) != nil {
		t.Error("NewError must not carry a cause")
	}
}
