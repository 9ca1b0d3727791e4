// File: iocontext/iocontext.go
// Author: momentics <momentics@gmail.com>

package iocontext

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"

	"github.com/momentics/p2p-lan-share/api"
	"github.com/momentics/p2p-lan-share/reactor"
)

const (
	// waitSlice bounds one reactor wait inside Run so Stop and ctx are
	// observed promptly.
	waitSlice = 10 * time.Millisecond
	maxEvents = 64
)

// IOContext owns the handlers posted against it and, once needed, one
// reactor.
type IOContext struct {
	mu         sync.Mutex
	reactor    reactor.EventReactor
	newReactor func() (reactor.EventReactor, error)
	handlers   *queue.Queue // of func()
	watches    map[uintptr]func(api.Event)
	stopped    bool
	closed     bool
	logger     *zap.Logger
}

// Option configures an IOContext.
type Option func(*IOContext)

// WithLogger sets the logger used for recovered handler panics.
func WithLogger(l *zap.Logger) Option {
	return func(c *IOContext) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReactor supplies an already built reactor. The context takes
// ownership and closes it.
func WithReactor(r reactor.EventReactor) Option {
	return func(c *IOContext) { c.reactor = r }
}

// WithReactorFactory replaces how the reactor is built on first need.
func WithReactorFactory(fn func() (reactor.EventReactor, error)) Option {
	return func(c *IOContext) {
		if fn != nil {
			c.newReactor = fn
		}
	}
}

// New creates an I/O context. No reactor is created until one is needed.
func New(opts ...Option) (*IOContext, error) {
	c := &IOContext{
		newReactor: reactor.NewReactor,
		handlers:   queue.New(),
		watches:    make(map[uintptr]func(api.Event)),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Reactor returns the underlying poller, creating it on first use.
func (c *IOContext) Reactor() (reactor.EventReactor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reactorLocked()
}

func (c *IOContext) reactorLocked() (reactor.EventReactor, error) {
	if c.closed {
		return nil, api.ErrContextClosed
	}
	if c.reactor == nil {
		r, err := c.newReactor()
		if err != nil {
			return nil, api.Wrap(api.ErrCodeInternal, err, "reactor init failed").
				WithContext("cause", err.Error())
		}
		c.reactor = r
	}
	return c.reactor, nil
}

// Watch registers fd with the reactor. Each readiness notification
// queues fn, which then runs like any posted handler.
func (c *IOContext) Watch(fd uintptr, fn func(api.Event)) error {
	if fn == nil {
		return api.Wrap(api.ErrCodeInvalidArgument, api.ErrInvalidArgument, "nil watch handler")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r, err := c.reactorLocked()
	if err != nil {
		return err
	}
	if err := r.Register(fd, fd); err != nil {
		return err
	}
	c.watches[fd] = fn
	return nil
}

// Unwatch stops dispatching notifications for fd.
func (c *IOContext) Unwatch(fd uintptr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.watches[fd]; !ok {
		return api.ErrInvalidArgument
	}
	delete(c.watches, fd)
	return c.reactor.Unregister(fd)
}

// Post queues fn for execution by a later Poll, RunOne or Run.
func (c *IOContext) Post(fn func()) error {
	if fn == nil {
		return api.Wrap(api.ErrCodeInvalidArgument, api.ErrInvalidArgument, "nil handler")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return api.Wrap(api.ErrCodeClosed, api.ErrContextClosed, "post rejected").
			WithContext("pending", c.handlers.Length())
	}
	c.handlers.Add(fn)
	return nil
}

// Pending reports how many handlers are queued.
func (c *IOContext) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers.Length()
}

// Stop makes running and future Run/Poll calls return as soon as possible.
// Queued handlers are kept until Restart.
func (c *IOContext) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

// Stopped reports whether Stop was called without a following Restart.
func (c *IOContext) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Restart clears the stopped state.
func (c *IOContext) Restart() {
	c.mu.Lock()
	c.stopped = false
	c.mu.Unlock()
}

// next pops the oldest handler, or nil when stopped, closed or idle.
func (c *IOContext) next() func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.closed || c.handlers.Length() == 0 {
		return nil
	}
	fn, _ := c.handlers.Remove().(func())
	return fn
}

// watching reports whether descriptor watches keep the context busy.
func (c *IOContext) watching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && !c.stopped && len(c.watches) > 0
}

// pollReactor waits up to timeout for readiness on watched descriptors
// and queues their handlers. It returns the number queued.
func (c *IOContext) pollReactor(timeout time.Duration) int {
	c.mu.Lock()
	r := c.reactor
	if r == nil || c.closed || len(c.watches) == 0 {
		c.mu.Unlock()
		return 0
	}
	c.mu.Unlock()

	events := make([]api.Event, maxEvents)
	n, err := r.Wait(events, timeout)
	if err != nil {
		if !errors.Is(err, api.ErrContextClosed) {
			c.logger.Error("reactor wait failed", zap.Error(err))
		}
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	queued := 0
	for _, ev := range events[:n] {
		fn, ok := c.watches[ev.UserData]
		if !ok || c.closed {
			continue
		}
		ev := ev
		c.handlers.Add(func() { fn(ev) })
		queued++
	}
	return queued
}

// invoke runs fn, keeping the loop alive if it panics.
func (c *IOContext) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

// RunOne executes at most one ready handler and reports whether it did.
func (c *IOContext) RunOne() bool {
	fn := c.next()
	if fn == nil {
		return false
	}
	c.invoke(fn)
	return true
}

// Poll collects ready descriptor notifications without blocking, then
// runs the handlers that are ready now and returns how many ran.
// Handlers posted during Poll are left for the next call.
func (c *IOContext) Poll() int {
	if c.Stopped() {
		return 0
	}
	c.pollReactor(0)
	budget := c.Pending()
	n := 0
	for n < budget && c.RunOne() {
		n++
	}
	return n
}

// Run executes handlers until there is no more work, Stop is called or
// ctx is done. Work means queued handlers or watched descriptors; while
// only watches remain, Run waits on the reactor. It returns the number
// of handlers executed, plus ctx.Err() or api.ErrStopped when either
// ended the run.
func (c *IOContext) Run(ctx context.Context) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if c.Stopped() {
			return n, api.Wrap(api.ErrCodeStopped, api.ErrStopped, "run interrupted").
				WithContext("executed", n)
		}
		if c.RunOne() {
			n++
			continue
		}
		if !c.watching() {
			return n, nil
		}
		c.pollReactor(waitSlice)
	}
}

// Close releases the reactor, if one was created, and drops queued
// handlers and watches. It is safe to call more than once.
func (c *IOContext) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	dropped := c.handlers.Length()
	c.handlers = queue.New()
	c.watches = make(map[uintptr]func(api.Event))
	r := c.reactor
	c.mu.Unlock()

	if dropped > 0 {
		c.logger.Debug("io context closed with queued handlers", zap.Int("dropped", dropped))
	}
	if r == nil {
		return nil
	}
	return r.Close()
}
