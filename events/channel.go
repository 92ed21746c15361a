package events

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push after Close.
var ErrClosed = errors.New("event channel closed")

// Channel is an unbounded multi-producer, single-consumer FIFO.
type Channel struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool
}

// NewChannel creates an empty open channel.
func NewChannel() *Channel {
	c := &Channel{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Push appends ev. It never blocks.
func (c *Channel) Push(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.queue = append(c.queue, ev)
	c.cond.Signal()
	return nil
}

// Recv blocks until an event is available. It returns false once the
// channel is closed and drained.
func (c *Channel) Recv() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.queue) == 0 && !c.closed {
		c.cond.Wait()
	}
	if len(c.queue) == 0 {
		return nil, false
	}
	ev := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return ev, true
}

// Close marks the channel closed and wakes the consumer.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cond.Broadcast()
}

// Len returns the number of queued events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
