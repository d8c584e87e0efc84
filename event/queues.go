package event

// Queues holds the internal (action-raised) and external (host-
// injected) FIFOs. Dequeue always drains internal first, matching the
// engine's strict internal-over-external priority.
type Queues struct {
	internal []Event
	external []Event
}

// NewQueues returns an empty pair of queues.
func NewQueues() *Queues {
	return &Queues{}
}

// EnqueueInternal appends to the internal queue, preserving insertion
// order. Actions raising events always go here.
func (q *Queues) EnqueueInternal(e Event) {
	e.Origin = Internal
	q.internal = append(q.internal, e)
}

// EnqueueExternal appends to the external queue. Host-injected events
// always go here.
func (q *Queues) EnqueueExternal(e Event) {
	e.Origin = External
	q.external = append(q.external, e)
}

// Dequeue removes and returns the head of internal if non-empty, else
// the head of external, else ok=false.
func (q *Queues) Dequeue() (Event, bool) {
	if len(q.internal) > 0 {
		e := q.internal[0]
		q.internal = q.internal[1:]
		return e, true
	}
	if len(q.external) > 0 {
		e := q.external[0]
		q.external = q.external[1:]
		return e, true
	}
	return Event{}, false
}

// HasInternal reports whether the internal queue is non-empty.
func (q *Queues) HasInternal() bool {
	return len(q.internal) > 0
}

// Empty reports whether both queues are empty.
func (q *Queues) Empty() bool {
	return len(q.internal) == 0 && len(q.external) == 0
}

// Export returns every queued event, internal queue first, for
// inclusion in a machine snapshot.
func (q *Queues) Export() []Event {
	out := make([]Event, 0, len(q.internal)+len(q.external))
	out = append(out, q.internal...)
	out = append(out, q.external...)
	return out
}

// Import replaces the queue contents from a snapshot, routing each
// event back to its queue by origin.
func (q *Queues) Import(events []Event) {
	q.internal = nil
	q.external = nil
	for _, e := range events {
		if e.Origin == Internal {
			q.internal = append(q.internal, e)
		} else {
			q.external = append(q.external, e)
		}
	}
}
