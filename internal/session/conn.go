package session

import (
	"sync/atomic"
)

// Conn is the registry's handle for one live client connection. The transport
// layer owns the underlying socket; the rest of the relay only ever enqueues
// outbound frames through TrySend.
type Conn struct {
	ID        uint64
	UserID    int64
	SendQueue chan []byte

	closed atomic.Bool
}

var nextConnID atomic.Uint64

// NewConn allocates a handle with a buffered send queue.
func NewConn(userID int64, queueSize int) *Conn {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Conn{
		ID:        nextConnID.Add(1),
		UserID:    userID,
		SendQueue: make(chan []byte, queueSize),
	}
}

// TrySend enqueues a frame without blocking. It reports false when the
// connection is closing or its queue is full; the caller treats that as a
// skipped delivery and moves on. The queue is never closed, so a send racing
// a teardown lands in an abandoned channel rather than panicking.
func (c *Conn) TrySend(payload []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.SendQueue <- payload:
		return true
	default:
		return false
	}
}

// Close marks the handle as closing. Frames already queued may still be
// written by the transport before it exits.
func (c *Conn) Close() {
	c.closed.Store(true)
}

// Closed reports whether the handle has been marked closing.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}
