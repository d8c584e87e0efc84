package engine

import (
	"fmt"
	"time"

	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/event"
)

// Snapshot is the serializable state of a Machine: enough to restore
// an equivalent running instance given the same Document. It carries
// MachineID rather than the Document itself, since this engine treats
// the Document as an externally-supplied, already-validated artifact
// rather than something a snapshot re-embeds.
type Snapshot struct {
	MachineID    string                                  `json:"machineID" yaml:"machineID"`
	Leaves       []document.StateID                      `json:"leaves" yaml:"leaves"`
	ContextData  map[string]any                          `json:"context" yaml:"context"`
	History      map[document.StateID][]document.StateID `json:"history,omitempty" yaml:"history,omitempty"`
	QueuedEvents []event.Event                           `json:"queuedEvents,omitempty" yaml:"queuedEvents,omitempty"`
	Status       Status                                  `json:"status" yaml:"status"`
	Timestamp    time.Time                               `json:"timestamp" yaml:"timestamp"`
}

// Snapshot captures the machine's current, restorable state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		MachineID:    m.doc.ID,
		Leaves:       append([]document.StateID(nil), m.config.Leaves()...),
		ContextData:  m.ctx.Snapshot(),
		History:      m.tracker.Export(),
		QueuedEvents: m.queues.Export(),
		Status:       m.status,
		Timestamp:    time.Now(),
	}
}

// Restore replaces the machine's runtime state from a snapshot taken
// against an equivalent Document (same MachineID). Call it in place of
// Initialize; it does not re-run entry actions.
func (m *Machine) Restore(snap Snapshot) error {
	if snap.MachineID != m.doc.ID {
		return fmt.Errorf("engine: machine id mismatch: have %q, snapshot %q", m.doc.ID, snap.MachineID)
	}
	m.config.Replace(snap.Leaves)
	m.ctx.Restore(snap.ContextData)
	m.tracker.Import(snap.History)
	m.queues.Import(snap.QueuedEvents)
	m.status = snap.Status
	return nil
}
