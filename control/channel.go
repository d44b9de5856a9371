package control

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when enqueueing on a closed Channel.
var ErrClosed = errors.New("command channel closed")

// DefaultCapacity is large enough that bursts from a socket client or key
// repeat never block the sender for longer than one tick.
const DefaultCapacity = 256

// Channel is an ordered, thread-safe command queue with a single consumer.
// Senders block only while the buffer is full; commands are never dropped.
type Channel struct {
	ch        chan Command
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannel creates a channel with the given buffer size (DefaultCapacity
// if size <= 0).
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = DefaultCapacity
	}
	return &Channel{
		ch:   make(chan Command, size),
		done: make(chan struct{}),
	}
}

// Enqueue posts cmd, waiting for buffer space if necessary.
func (c *Channel) Enqueue(ctx context.Context, cmd Command) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.ch <- cmd:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryEnqueue posts cmd without waiting. It is meant for UI callbacks, which
// must not block.
func (c *Channel) TryEnqueue(cmd Command) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.ch <- cmd:
		return true
	default:
		return false
	}
}

// Drain hands every pending command to handle in arrival order without
// blocking. It stops early when handle returns false, leaving the remaining
// commands queued. At most one buffer's worth is processed per call so a
// flooding sender cannot starve the caller.
func (c *Channel) Drain(handle func(Command) bool) int {
	n := 0
	for limit := cap(c.ch); n < limit; {
		select {
		case cmd := <-c.ch:
			n++
			if !handle(cmd) {
				return n
			}
		default:
			return n
		}
	}
	return n
}

// Len returns the number of queued commands.
func (c *Channel) Len() int {
	return len(c.ch)
}

// Close rejects further commands. Queued commands can still be drained.
func (c *Channel) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
