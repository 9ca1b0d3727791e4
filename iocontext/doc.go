// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package iocontext implements an I/O execution context: a FIFO queue of
// posted handlers plus descriptor watches served by a platform reactor.
// Handlers only run when the owner drives the context through Poll,
// RunOne or Run. The reactor is created on first need, so constructing a
// context opens no descriptors and starts no goroutines.
package iocontext
