// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the poll-mode event reactor backing an I/O
// context, with implementations for epoll (Linux) and IOCP (Windows).
package reactor
