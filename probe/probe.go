// File: probe/probe.go
// Author: momentics <momentics@gmail.com>
//
// Smoke test for the I/O runtime: construct an I/O context, report that
// it works, tear it down. The context is never driven.

package probe

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/momentics/p2p-lan-share/iocontext"
)

// Message is the line written on success.
const Message = "ASIO is working!"

type options struct {
	logger     *zap.Logger
	newContext func() (*iocontext.IOContext, error)
}

// Option configures Run.
type Option func(*options)

// WithLogger sets the logger. Only failures are logged above debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithContextFactory overrides how the I/O context is built.
func WithContextFactory(fn func() (*iocontext.IOContext, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.newContext = fn
		}
	}
}

// Run constructs an I/O context, writes Message followed by a newline to
// w and closes the context.
func Run(w io.Writer, opts ...Option) error {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.newContext == nil {
		o.newContext = func() (*iocontext.IOContext, error) {
			return iocontext.New(iocontext.WithLogger(o.logger))
		}
	}

	ioc, err := o.newContext()
	if err != nil {
		return fmt.Errorf("probe: io context: %w", err)
	}
	defer func() {
		if cerr := ioc.Close(); cerr != nil {
			o.logger.Debug("io context close failed", zap.Error(cerr))
		}
	}()
	o.logger.Debug("io context constructed")

	if _, err := fmt.Fprintln(w, Message); err != nil {
		return fmt.Errorf("probe: write: %w", err)
	}
	return nil
}
