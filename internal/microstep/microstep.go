// Package microstep implements one microstep: given the optimal
// enabled transition set the selector package computed, it computes
// the exit set via each transition's domain/LCCA, records history, runs
// exit actions in reverse document order, runs transition content,
// computes the entry set (expanding compound/parallel/history targets
// down to a leaf configuration), runs entry actions in document order,
// and raises any done.state.* events the new configuration implies.
package microstep

import (
	"sort"

	"github.com/statecraft-run/scxml/action"
	"github.com/statecraft-run/scxml/datamodel"
	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/event"
	"github.com/statecraft-run/scxml/history"
)

// Result reports what one microstep did, for logging/tracing.
// DoneEvents lists the done.state.* events Apply has already raised.
type Result struct {
	Exited     []document.StateID
	Entered    []document.StateID
	Leaves     []document.StateID // new leaf configuration, document order
	DoneEvents []event.Event
}

// Apply runs one microstep for the given enabled transition set against
// the previous active configuration (leaves + ancestors, document
// order, as from configuration.Configuration.AllActive), mutating ctx
// via runner and recording history via tracker. It returns the new
// leaf configuration; any done.state.* events are passed to raise and
// also listed in the Result.
func Apply(
	doc *document.Document,
	activeAll []document.StateID,
	transitions []*document.Transition,
	tracker *history.Tracker,
	runner action.Runner,
	ctx *datamodel.Context,
	evt event.Event,
	raise func(event.Event),
) (*Result, error) {
	activeSet := make(map[document.StateID]bool, len(activeAll))
	for _, id := range activeAll {
		activeSet[id] = true
	}

	// defaultContent collects, per history parent, the executable
	// content of any history default transition used during target
	// resolution; it runs after the parent's onentry.
	defaultContent := make(map[document.StateID][]document.Action)
	effective := make(map[*document.Transition][]document.StateID, len(transitions))
	for _, t := range transitions {
		effective[t] = resolveTargets(doc, tracker, t, defaultContent)
	}

	// A transition with no effective targets contributes nothing to the
	// exit or entry sets; only its content runs.
	domains := make(map[*document.Transition]document.StateID, len(transitions))
	for _, t := range transitions {
		if len(effective[t]) > 0 {
			domains[t] = Domain(doc, t, effective[t])
		}
	}

	exitSet := computeExitSet(doc, activeAll, domains)
	recordHistory(doc, tracker, activeAll, exitSet)

	res := &Result{}
	for _, id := range exitSet {
		s := doc.MustFindState(id)
		for _, a := range s.OnExit {
			if err := runner.Run(ctx, a, evt, raise); err != nil {
				return nil, err
			}
		}
		delete(activeSet, id)
		res.Exited = append(res.Exited, id)
	}

	for _, t := range transitions {
		for _, a := range t.Content {
			if err := runner.Run(ctx, a, evt, raise); err != nil {
				return nil, err
			}
		}
	}

	defaultEntry := make(map[document.StateID]bool)
	entrySet := computeEntrySet(doc, transitions, domains, effective, defaultEntry)
	for _, id := range entrySet {
		if activeSet[id] {
			continue
		}
		activeSet[id] = true
		res.Entered = append(res.Entered, id)
	}
	sort.Slice(res.Entered, func(i, j int) bool {
		return doc.DocOrderOf(res.Entered[i]) < doc.DocOrderOf(res.Entered[j])
	})

	for _, id := range res.Entered {
		s := doc.MustFindState(id)
		for _, a := range s.OnEntry {
			if err := runner.Run(ctx, a, evt, raise); err != nil {
				return nil, err
			}
		}
		// An <initial> element's transition content runs on default
		// descent, before the initial children's own onentry.
		if defaultEntry[id] {
			for _, a := range s.InitialContent {
				if err := runner.Run(ctx, a, evt, raise); err != nil {
					return nil, err
				}
			}
		}
		if content, ok := defaultContent[id]; ok {
			for _, a := range content {
				if err := runner.Run(ctx, a, evt, raise); err != nil {
					return nil, err
				}
			}
		}
	}

	leaves := leavesOf(doc, activeSet)
	res.Leaves = leaves
	res.DoneEvents = computeDoneEvents(doc, activeSet, res.Entered)
	for _, de := range res.DoneEvents {
		raise(de)
	}
	return res, nil
}

// EffectiveTargets resolves a transition's declared targets to the
// concrete states they stand for, replacing each history pseudostate
// with the tracker's recorded snapshot (or the history state's default
// transition targets when no record exists yet). The selector uses this
// to compute exit-set overlap without running the microstep.
func EffectiveTargets(doc *document.Document, tracker *history.Tracker, t *document.Transition) []document.StateID {
	return resolveTargets(doc, tracker, t, nil)
}

// resolveTargets is EffectiveTargets plus, when defaults is non-nil,
// capture of any used default transition's content keyed by the history
// state's parent, for execution after that parent's onentry.
func resolveTargets(doc *document.Document, tracker *history.Tracker, t *document.Transition, defaults map[document.StateID][]document.Action) []document.StateID {
	var out []document.StateID
	for _, tgt := range t.Targets {
		s, ok := doc.FindState(tgt)
		if !ok {
			out = append(out, tgt)
			continue
		}
		if s.Kind != document.History {
			out = append(out, tgt)
			continue
		}
		if rec, ok := tracker.Resolve(tgt); ok {
			out = append(out, rec...)
			continue
		}
		if s.HistoryDefault != nil {
			if defaults != nil && len(s.HistoryDefault.Content) > 0 {
				defaults[s.Parent] = append(defaults[s.Parent], s.HistoryDefault.Content...)
			}
			out = append(out, resolveTargets(doc, tracker, s.HistoryDefault, defaults)...)
		}
	}
	return out
}

// Domain computes a transition's domain: the state whose proper
// descendants are exited to fire it. For an internal transition whose
// source is compound and whose effective targets all lie inside the
// source, the domain is the source itself; otherwise it is the LCCA of
// the source and all effective targets.
func Domain(doc *document.Document, t *document.Transition, effectiveTargets []document.StateID) document.StateID {
	if len(effectiveTargets) == 0 {
		return t.Source
	}
	if t.Type == document.Internal {
		src, ok := doc.FindState(t.Source)
		if ok && src.Kind == document.Compound {
			allInside := true
			for _, tgt := range effectiveTargets {
				if !doc.IsDescendant(tgt, t.Source, false) {
					allInside = false
					break
				}
			}
			if allInside {
				return t.Source
			}
		}
	}
	return lccaOf(doc, t.Source, effectiveTargets)
}

// lccaOf returns the least common compound ancestor: the deepest
// compound-or-parallel proper ancestor of source that has every target
// as a proper descendant, or the document root when none exists.
func lccaOf(doc *document.Document, source document.StateID, targets []document.StateID) document.StateID {
	for _, anc := range doc.Ancestors(source, false) {
		s, ok := doc.FindState(anc)
		if !ok || (s.Kind != document.Compound && s.Kind != document.Parallel) {
			continue
		}
		if containsAll(doc, anc, targets) {
			return anc
		}
	}
	return document.RootID
}

func containsAll(doc *document.Document, anc document.StateID, targets []document.StateID) bool {
	for _, tgt := range targets {
		if !doc.IsDescendant(tgt, anc, false) {
			return false
		}
	}
	return true
}

// computeExitSet returns the active states that are proper descendants
// of any transition's domain, in reverse document order (deepest and
// rightmost first) so exit actions run innermost-out.
func computeExitSet(doc *document.Document, activeAll []document.StateID, domains map[*document.Transition]document.StateID) []document.StateID {
	var out []document.StateID
	for _, s := range activeAll {
		for _, d := range domains {
			if doc.IsDescendant(s, d, false) {
				out = append(out, s)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return doc.DocOrderOf(out[i]) > doc.DocOrderOf(out[j])
	})
	return out
}

// recordHistory snapshots, for every history child of a state that is
// about to be exited, which of its descendants were active. Recording
// happens before any onexit action runs.
func recordHistory(doc *document.Document, tracker *history.Tracker, activeAll, exitSet []document.StateID) {
	var activeLeaves []document.StateID
	for _, id := range activeAll {
		s, ok := doc.FindState(id)
		if ok && (s.Kind == document.Atomic || s.Kind == document.Final) {
			activeLeaves = append(activeLeaves, id)
		}
	}
	for _, id := range exitSet {
		parent, ok := doc.FindState(id)
		if !ok {
			continue
		}
		for _, childID := range parent.Children {
			child, ok := doc.FindState(childID)
			if !ok || child.Kind != document.History {
				continue
			}
			snap := history.Snapshot(doc, id, child.HistoryType, activeLeaves)
			if len(snap) > 0 {
				tracker.Record(childID, snap)
			}
		}
	}
}

// computeEntrySet expands each transition's effective targets into the
// full set of states to enter: ancestors strictly between the
// transition's domain and the target, the target itself, and (for
// compound/parallel targets) a recursive descent to a leaf
// configuration via default initial states.
func computeEntrySet(doc *document.Document, transitions []*document.Transition, domains map[*document.Transition]document.StateID, effective map[*document.Transition][]document.StateID, defaultEntry map[document.StateID]bool) []document.StateID {
	seen := make(map[document.StateID]bool)
	var out []document.StateID
	add := func(id document.StateID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, t := range transitions {
		domain := domains[t]
		for _, tgt := range effective[t] {
			for _, anc := range doc.Ancestors(tgt, true) {
				if anc == domain {
					break
				}
				add(anc)
			}
			descendToLeaves(doc, tgt, add, defaultEntry)
		}
	}
	return out
}

// descendToLeaves adds id and, for compound/parallel states, expands
// down to an atomic/final leaf configuration via default initial
// children (compound) or all non-history children (parallel). Compound
// states expanded this way are marked in defaultEntry so their
// <initial> transition content runs on entry.
func descendToLeaves(doc *document.Document, id document.StateID, add func(document.StateID), defaultEntry map[document.StateID]bool) {
	add(id)
	s, ok := doc.FindState(id)
	if !ok {
		return
	}
	switch s.Kind {
	case document.Compound:
		defaultEntry[s.ID] = true
		initial := s.Initial
		if len(initial) == 0 && len(s.Children) > 0 {
			initial = []document.StateID{firstNonPseudostateChild(doc, s)}
		}
		for _, child := range initial {
			descendToLeaves(doc, child, add, defaultEntry)
		}
	case document.Parallel:
		for _, childID := range s.Children {
			if child, ok := doc.FindState(childID); ok && child.Kind == document.History {
				continue
			}
			descendToLeaves(doc, childID, add, defaultEntry)
		}
	}
}

func firstNonPseudostateChild(doc *document.Document, s *document.State) document.StateID {
	for _, childID := range s.Children {
		if child, ok := doc.FindState(childID); ok && child.Kind != document.History {
			return childID
		}
	}
	return s.Children[0]
}

func leavesOf(doc *document.Document, active map[document.StateID]bool) []document.StateID {
	var out []document.StateID
	for id := range active {
		s, ok := doc.FindState(id)
		if !ok {
			continue
		}
		if s.Kind == document.Atomic || s.Kind == document.Final {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return doc.DocOrderOf(out[i]) < doc.DocOrderOf(out[j])
	})
	return out
}

// computeDoneEvents detects newly-entered Final states and raises
// done.state.<parent> for each Compound parent; when such a parent's
// own parent is Parallel and every one of that parallel's regions is
// now in a final state, done.state.<grandparent> follows.
func computeDoneEvents(doc *document.Document, active map[document.StateID]bool, entered []document.StateID) []event.Event {
	var out []event.Event
	emitted := make(map[document.StateID]bool)
	for _, id := range entered {
		s, ok := doc.FindState(id)
		if !ok || s.Kind != document.Final {
			continue
		}
		parent, ok := doc.FindState(s.Parent)
		if !ok || parent.Kind != document.Compound {
			continue
		}
		if !emitted[parent.ID] {
			emitted[parent.ID] = true
			out = append(out, event.NewInternal("done.state."+string(parent.ID), nil))
		}
		grandparent, ok := doc.FindState(parent.Parent)
		if !ok || grandparent.Kind != document.Parallel || emitted[grandparent.ID] {
			continue
		}
		if inFinalState(doc, grandparent.ID, active) {
			emitted[grandparent.ID] = true
			out = append(out, event.NewInternal("done.state."+string(grandparent.ID), nil))
		}
	}
	return out
}

// inFinalState mirrors the SCXML isInFinalState predicate: a compound
// state is in a final state when one of its final children is active; a
// parallel state is when every non-history child is.
func inFinalState(doc *document.Document, id document.StateID, active map[document.StateID]bool) bool {
	s, ok := doc.FindState(id)
	if !ok || !active[id] {
		return false
	}
	switch s.Kind {
	case document.Final:
		return true
	case document.Compound:
		for _, childID := range s.Children {
			child, ok := doc.FindState(childID)
			if ok && child.Kind == document.Final && active[childID] {
				return true
			}
		}
		return false
	case document.Parallel:
		for _, childID := range s.Children {
			child, ok := doc.FindState(childID)
			if !ok || child.Kind == document.History {
				continue
			}
			if !inFinalState(doc, childID, active) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
