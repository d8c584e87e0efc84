// Package publish implements engine.Publisher: hooks that observe the
// events a machine processes without being able to stall it.
package publish

import (
	"context"

	"github.com/statecraft-run/scxml/engine"
	"github.com/statecraft-run/scxml/event"
)

// Notification pairs a processed event with its machine metadata.
type Notification struct {
	Event event.Event
	Meta  engine.Metadata
}

// Channel forwards each processed event to a buffered Go channel.
// Publishing never blocks the macrostep: when the receiver has fallen
// behind and the buffer is full, the notification is dropped.
type Channel struct {
	ch chan Notification
}

// NewChannel returns a Channel publisher with a buffer of size n.
func NewChannel(n int) *Channel {
	return &Channel{ch: make(chan Notification, n)}
}

// Events returns the receive side of the publisher's channel. It is
// closed by Close, which ends a range over it; a Machine does not call
// Close itself.
func (c *Channel) Events() <-chan Notification {
	return c.ch
}

// Publish implements engine.Publisher.
func (c *Channel) Publish(ctx context.Context, evt event.Event, meta engine.Metadata) error {
	select {
	case c.ch <- Notification{Event: evt, Meta: meta}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil // receiver behind, drop rather than stall
	}
}

// Close implements engine.Publisher.
func (c *Channel) Close() error {
	close(c.ch)
	return nil
}
