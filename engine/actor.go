package engine

import (
	"context"

	"github.com/statecraft-run/scxml/event"
)

// Actor wraps a Machine in its own goroutine driven by an input
// channel, giving hosts that want a concurrent-actor composition style
// (e.g. one goroutine per orthogonal region owner) a way to get it
// without the Machine itself growing internal concurrency.
type Actor struct {
	machine *Machine
	errs    chan error
}

// NewActor wraps an initialized Machine as an actor. The caller must
// have already called Initialize.
func NewActor(m *Machine) *Actor {
	return &Actor{machine: m, errs: make(chan error, 1)}
}

// Run consumes input until it closes or ctx is canceled, delivering
// each event to the wrapped Machine synchronously and in order. Run
// blocks; callers invoke it in a goroutine.
func (a *Actor) Run(ctx context.Context, input <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-input:
			if !ok {
				return
			}
			if err := a.machine.SendEvent(ctx, evt); err != nil {
				select {
				case a.errs <- err:
				default:
					// Replace the unread error with this newer one.
					select {
					case <-a.errs:
					default:
					}
					a.errs <- err
				}
			}
		}
	}
}

// Errs returns the channel Run reports delivery errors on
// (fire-and-forget semantics: only the most recent unread error is
// retained).
func (a *Actor) Errs() <-chan error { return a.errs }
