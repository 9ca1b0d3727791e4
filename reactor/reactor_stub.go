//go:build !linux && !windows
// +build !linux,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"runtime"

	"github.com/momentics/p2p-lan-share/api"
)

// NewReactor returns an error for unsupported platforms.
func NewReactor() (EventReactor, error) {
	return nil, api.Wrap(api.ErrCodeNotSupported, api.ErrNotSupported, "reactor: platform not supported").
		WithContext("goos", runtime.GOOS)
}
