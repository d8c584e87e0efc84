// Package history implements the history-pseudostate tracker: recording
// which children were active under a compound or parallel state when
// it was last exited, and resolving that record back into entry targets
// when a history pseudostate is reached again. Records are keyed by the
// history state's own id, since a document can have more than one
// history child per ancestor.
package history

import "github.com/statecraft-run/scxml/document"

// Tracker records and resolves history for a document's history
// pseudostates. It is not safe for concurrent use; callers own
// synchronization, matching the engine's single-owner discipline.
type Tracker struct {
	records map[document.StateID][]document.StateID
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[document.StateID][]document.StateID)}
}

// Record stores the active children snapshot for the given history
// state. For shallow history this is the single child of the parent
// that was active; for deep history it is the full set of atomic
// descendants that were active under the parent.
func (t *Tracker) Record(historyID document.StateID, active []document.StateID) {
	snapshot := make([]document.StateID, len(active))
	copy(snapshot, active)
	t.records[historyID] = snapshot
}

// Resolve returns the recorded targets for a history state, and
// whether any record exists. Callers fall back to the history state's
// default transition targets when ok is false.
func (t *Tracker) Resolve(historyID document.StateID) (targets []document.StateID, ok bool) {
	rec, ok := t.records[historyID]
	if !ok {
		return nil, false
	}
	out := make([]document.StateID, len(rec))
	copy(out, rec)
	return out, true
}

// Clear discards the record for a single history state, e.g. when its
// parent's subtree structure changes.
func (t *Tracker) Clear(historyID document.StateID) {
	delete(t.records, historyID)
}

// ClearAll discards every recorded history entry.
func (t *Tracker) ClearAll() {
	t.records = make(map[document.StateID][]document.StateID)
}

// Export returns a copy of every recorded history entry, for
// inclusion in a machine snapshot.
func (t *Tracker) Export() map[document.StateID][]document.StateID {
	out := make(map[document.StateID][]document.StateID, len(t.records))
	for k, v := range t.records {
		cp := make([]document.StateID, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Import replaces the tracker's records with a snapshot's history map.
func (t *Tracker) Import(records map[document.StateID][]document.StateID) {
	t.records = make(map[document.StateID][]document.StateID, len(records))
	for k, v := range records {
		cp := make([]document.StateID, len(v))
		copy(cp, v)
		t.records[k] = cp
	}
}

// Snapshot computes what a history child of parent should record,
// given the configuration's currently active leaves. For ShallowHistory
// it returns the immediate child of parent that is active or an
// ancestor of an active leaf; for DeepHistory it returns every active
// leaf that descends from parent.
func Snapshot(doc *document.Document, parentID document.StateID, typ document.HistoryType, activeLeaves []document.StateID) []document.StateID {
	var out []document.StateID
	switch typ {
	case document.Deep:
		for _, leaf := range activeLeaves {
			if doc.IsDescendant(leaf, parentID, false) {
				out = append(out, leaf)
			}
		}
	default: // Shallow
		seen := make(map[document.StateID]bool)
		for _, leaf := range activeLeaves {
			if !doc.IsDescendant(leaf, parentID, false) {
				continue
			}
			for _, anc := range doc.Ancestors(leaf, true) {
				if anc == parentID {
					continue
				}
				s, ok := doc.FindState(anc)
				if !ok {
					continue
				}
				if s.Parent == parentID && !seen[anc] {
					seen[anc] = true
					out = append(out, anc)
				}
			}
		}
	}
	return out
}
