// Package selector computes the optimal enabled transition set: given
// the active configuration and a triggering event (or none, for an
// eventless pass), it picks exactly the transitions that will fire in
// the next microstep, resolving conflicts by exit-set overlap with
// deeper sources preempting their ancestors.
package selector

import (
	"sort"

	"github.com/statecraft-run/scxml/datamodel"
	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/event"
	"github.com/statecraft-run/scxml/history"
	"github.com/statecraft-run/scxml/internal/microstep"
)

// Select returns the optimal enabled transition set for the given
// active configuration and event. active is the full active
// configuration (leaves + ancestors, as from
// configuration.Configuration.AllActive). When eventless is true only
// NULL transitions are considered; evt is then not matched against but
// is still passed to condition evaluation. tracker resolves
// history targets so exit-set overlap is computed against the states a
// transition will actually enter.
func Select(doc *document.Document, active []document.StateID, evt event.Event, ctx *datamodel.Context, eval datamodel.Evaluator, eventless bool, tracker *history.Tracker) []*document.Transition {
	var candidates []*document.Transition

	// Step 1: for each active atomic (or final) state, walk the state and
	// then its ancestors leaf-first, taking the first enabled transition
	// in document order; the walk stops there, so ancestors beyond it are
	// not consulted for that state. Step 2 resolves conflicts between
	// the picks of different states.
	seen := make(map[*document.Transition]bool)
	for _, id := range active {
		leaf, ok := doc.FindState(id)
		if !ok || (leaf.Kind != document.Atomic && leaf.Kind != document.Final) {
			continue
		}
	walk:
		for _, anc := range doc.Ancestors(id, true) {
			s, ok := doc.FindState(anc)
			if !ok {
				continue
			}
			for _, t := range s.Transitions { // already in document order
				if eventless != t.IsEventless() {
					continue
				}
				if !eventless && !event.DescriptorMatches(t.Event, evt.Name) {
					continue
				}
				if !eval.EvalCond(ctx, t.Cond, evt) {
					continue
				}
				if !seen[t] {
					seen[t] = true
					candidates = append(candidates, t)
				}
				break walk // only the first enabled transition per atomic state
			}
		}
	}

	return removeConflicting(doc, tracker, candidates)
}

// removeConflicting filters candidates down to the optimal set. Two
// transitions conflict when their exit sets intersect; the one whose
// source is a descendant of the other's source wins, and otherwise the
// transition whose source comes first in document order does.
func removeConflicting(doc *document.Document, tracker *history.Tracker, candidates []*document.Transition) []*document.Transition {
	if len(candidates) <= 1 {
		return candidates
	}

	// Scan in the order the sources appear in the configuration,
	// ascending document order.
	ordered := make([]*document.Transition, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return doc.DocOrderOf(ordered[i].Source) < doc.DocOrderOf(ordered[j].Source)
	})

	domains := make(map[*document.Transition]document.StateID, len(ordered))
	for _, t := range ordered {
		targets := microstep.EffectiveTargets(doc, tracker, t)
		if len(targets) > 0 {
			domains[t] = microstep.Domain(doc, t, targets)
		}
	}

	var filtered []*document.Transition
	for _, t1 := range ordered {
		preempted := false
		var losers []*document.Transition
		for _, t2 := range filtered {
			if !exitSetsIntersect(doc, t1, t2, domains) {
				continue
			}
			if doc.IsDescendant(t1.Source, t2.Source, false) {
				losers = append(losers, t2)
				continue
			}
			preempted = true
			break
		}
		if preempted {
			continue
		}
		if len(losers) > 0 {
			kept := filtered[:0]
			for _, t2 := range filtered {
				lost := false
				for _, l := range losers {
					if t2 == l {
						lost = true
						break
					}
				}
				if !lost {
					kept = append(kept, t2)
				}
			}
			filtered = kept
		}
		filtered = append(filtered, t1)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return doc.DocOrderOf(filtered[i].Source) < doc.DocOrderOf(filtered[j].Source)
	})
	return filtered
}

// exitSetsIntersect reports whether two candidates would exit a common
// state. A transition's exit set is the active proper descendants of
// its domain, which is non-empty whenever the transition has effective
// targets (its active source lies inside the domain); so the sets
// intersect exactly when both transitions are targeted and their
// domains are related by descent.
func exitSetsIntersect(doc *document.Document, t1, t2 *document.Transition, domains map[*document.Transition]document.StateID) bool {
	d1, ok1 := domains[t1]
	d2, ok2 := domains[t2]
	if !ok1 || !ok2 {
		return t1.Source == t2.Source
	}
	if d1 == d2 {
		return true
	}
	return doc.IsDescendant(d1, d2, false) || doc.IsDescendant(d2, d1, false)
}
