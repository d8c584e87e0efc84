// Package event provides the event value (C3) and its two FIFO queues.
package event

// Origin distinguishes events raised by the engine's own action
// execution from events injected by the host.
type Origin int

const (
	Internal Origin = iota
	External
)

// Event is the value exchanged between the host, the engine, and
// executable content. Data is opaque to the engine; only the
// datamodel/action collaborators interpret it.
type Event struct {
	Name   string
	Data   any
	Origin Origin
}

// New constructs an externally-originated event; hosts call this to
// build the value passed to Machine.SendEvent.
func New(name string, data any) Event {
	return Event{Name: name, Data: data, Origin: External}
}

// NewInternal constructs an internally-raised event, as produced by the
// <raise> action or a done.state.* completion notification.
func NewInternal(name string, data any) Event {
	return Event{Name: name, Data: data, Origin: Internal}
}
