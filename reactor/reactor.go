// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral event reactor interface for cross-platform IO multiplexing.

package reactor

import (
	"time"

	"github.com/momentics/p2p-lan-share/api"
)

// Event contains event information returned by Wait.
type Event = api.Event

// EventReactor defines basic reactor operations across OS platforms.
type EventReactor = api.Reactor

// timeoutMillis converts a Wait timeout to the millisecond form the OS
// pollers take. Negative means block forever.
func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		ms = 1
	}
	const maxMs = int64(^uint32(0) >> 1)
	if ms > maxMs {
		ms = maxMs
	}
	return int(ms)
}
