// Package document provides the immutable state-tree model (C1) of the
// interpreter: states, transitions, and the O(1)/O(depth) lookup indices
// built once when a document is constructed.
//
// A Document is never mutated after it is returned from a Builder or a
// decoder. All other components address states and transitions by
// StateID; nothing outside this package ever walks parent/child Go
// pointers, which keeps ownership of the tree exclusively here.
package document

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// StateID uniquely identifies a state within a Document.
type StateID string

// RootID is the synthetic id of the document root pseudostate that owns
// the top-level initial transition.
const RootID StateID = ""

// Kind is the sum type over the state variants a document can declare.
type Kind int

const (
	Atomic Kind = iota
	Compound
	Parallel
	Final
	History
	Root
)

func (k Kind) String() string {
	switch k {
	case Atomic:
		return "atomic"
	case Compound:
		return "compound"
	case Parallel:
		return "parallel"
	case Final:
		return "final"
	case History:
		return "history"
	case Root:
		return "root"
	default:
		return "unknown"
	}
}

// HistoryType distinguishes shallow from deep history states.
type HistoryType int

const (
	Shallow HistoryType = iota
	Deep
)

// State is one node of the document's state tree.
type State struct {
	ID       StateID
	Kind     Kind
	Parent   StateID // RootID if this state's parent is the document root
	DocOrder int

	Children []StateID // ordered, document order
	Initial  []StateID // ordered; >1 only when targeting parallel descendants

	// InitialContent is the executable content of an <initial> element's
	// transition, run when the state is entered by default descent.
	InitialContent []Action

	Transitions []*Transition // ordered, document order

	OnEntry []Action
	OnExit  []Action

	// History-only fields.
	HistoryType    HistoryType
	HistoryDefault *Transition // optional default transition, <= 1 per spec
}

// Action is an opaque reference to executable content; the action
// package interprets it.
type Action any

// Document is the immutable state tree plus its lookup indices.
type Document struct {
	ID      string
	Name    string
	Initial []StateID // top-level initial target(s)

	states          *orderedmap.OrderedMap[StateID, *State]
	transitionsFrom map[StateID][]*Transition
	nextDocOrder    int
	duplicateIDs    []StateID
}

// New creates an empty Document for a builder or decoder to fill. Builders use this;
// hosts should prefer the builder package rather than constructing a
// Document field-by-field.
func New(id, name string) *Document {
	return &Document{
		ID:              id,
		Name:            name,
		states:          orderedmap.New[StateID, *State](),
		transitionsFrom: make(map[StateID][]*Transition),
	}
}

// AddState inserts a state, assigning it the next document-order index.
// Callers (the builder) are responsible for wiring Parent/Children
// consistently; AddState does not validate cross-references — that is
// the validate package's job.
func (d *Document) AddState(s *State) {
	if _, exists := d.states.Get(s.ID); exists {
		// The states index is keyed by id, so a repeat insertion would
		// silently clobber the earlier state. Remember the collision
		// for the validator, which turns it into a hard error.
		d.duplicateIDs = append(d.duplicateIDs, s.ID)
	}
	s.DocOrder = d.nextDocOrder
	d.nextDocOrder++
	d.states.Set(s.ID, s)
	for _, t := range s.Transitions {
		t.DocOrder = d.nextDocOrder
		d.nextDocOrder++
		d.transitionsFrom[s.ID] = append(d.transitionsFrom[s.ID], t)
	}
}

// DuplicateIDs returns the ids that were inserted more than once, in
// insertion order. A non-empty result means the unique-id invariant is
// broken and the later insertion replaced the earlier state.
func (d *Document) DuplicateIDs() []StateID {
	return d.duplicateIDs
}

// FindState returns the state for id, or ok=false if it does not exist.
func (d *Document) FindState(id StateID) (*State, bool) {
	return d.states.Get(id)
}

// MustFindState panics if id does not resolve; used internally once a
// document has passed validation and the invariant "every reference
// resolves" is known to hold.
func (d *Document) MustFindState(id StateID) *State {
	s, ok := d.FindState(id)
	if !ok {
		panic("document: unresolvable state id " + string(id))
	}
	return s
}

// States returns all states in document order.
func (d *Document) States() []*State {
	out := make([]*State, 0, d.states.Len())
	for pair := d.states.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// TransitionsFrom returns the ordered transitions declared directly on id.
func (d *Document) TransitionsFrom(id StateID) []*Transition {
	return d.transitionsFrom[id]
}

// Parent returns the parent id of id. The top-level states (those whose
// Parent is RootID) have no further ancestor.
func (d *Document) Parent(id StateID) (StateID, bool) {
	s, ok := d.FindState(id)
	if !ok {
		return RootID, false
	}
	return s.Parent, true
}

// Children returns the ordered children of id.
func (d *Document) Children(id StateID) []StateID {
	if id == RootID {
		out := make([]StateID, 0, len(d.Initial))
		seen := map[StateID]bool{}
		for _, s := range d.States() {
			if s.Parent == RootID && !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s.ID)
			}
		}
		return out
	}
	s, ok := d.FindState(id)
	if !ok {
		return nil
	}
	return s.Children
}

// Ancestors returns id's proper ancestors, leaf-first (nearest first),
// excluding the synthetic root. If includeSelf, id itself is the first
// element.
func (d *Document) Ancestors(id StateID, includeSelf bool) []StateID {
	var out []StateID
	cur := id
	if includeSelf {
		out = append(out, cur)
	}
	for {
		s, ok := d.FindState(cur)
		if !ok || s.Parent == RootID {
			break
		}
		out = append(out, s.Parent)
		cur = s.Parent
	}
	return out
}

// IsDescendant reports whether a is a proper descendant of b (or equal,
// when includeSelf is true).
func (d *Document) IsDescendant(a, b StateID, includeSelf bool) bool {
	if includeSelf && a == b {
		return true
	}
	for _, anc := range d.Ancestors(a, false) {
		if anc == b {
			return true
		}
	}
	return b == RootID
}

// DocOrderOf returns the document-order index of id, or -1 if unknown.
// RootID sorts before everything.
func (d *Document) DocOrderOf(id StateID) int {
	if id == RootID {
		return -1
	}
	s, ok := d.FindState(id)
	if !ok {
		return -1
	}
	return s.DocOrder
}
