// File: cmd/p2p-lan-share/main.go
// Author: momentics <momentics@gmail.com>
//
// Checks that the I/O runtime initializes and says so. Arguments and the
// environment are ignored.

package main

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/momentics/p2p-lan-share/probe"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr))
}

// run returns the process exit status.
func run(stdout, stderr io.Writer) int {
	logger := newLogger(stderr)
	defer func() { _ = logger.Sync() }()

	if err := probe.Run(stdout, probe.WithLogger(logger)); err != nil {
		logger.Error("probe failed", zap.Error(err))
		return 1
	}
	return 0
}

// newLogger writes JSON error entries to w; nothing below error level is
// emitted, so a successful run leaves w untouched.
func newLogger(w io.Writer) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		zapcore.ErrorLevel,
	)
	return zap.New(core)
}
