// Package builder provides a fluent, in-memory constructor for
// document.Document — the practical "document provider" used by tests,
// examples, and hosts that don't bring their own XML front end (the XML
// surface parser is explicitly out of scope for this module).
package builder

import (
	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/validate"
)

// Builder accumulates states before producing an immutable Document.
type Builder struct {
	doc   *document.Document
	byID  map[document.StateID]*document.State
	order []document.StateID // insertion order, used to assign DocOrder on Build
	errs  []error
}

// New starts a builder for a document with the given id/name.
func New(id, name string) *Builder {
	return &Builder{
		doc:  document.New(id, name),
		byID: make(map[document.StateID]*document.State),
	}
}

// WithInitial sets the document's top-level initial target(s).
func (b *Builder) WithInitial(ids ...document.StateID) *Builder {
	b.doc.Initial = ids
	return b
}

func (b *Builder) add(s *document.State) *StateHandle {
	if _, exists := b.byID[s.ID]; exists {
		b.errs = append(b.errs, errDuplicateID(s.ID))
		return &StateHandle{b: b, s: s}
	}
	b.byID[s.ID] = s
	b.order = append(b.order, s.ID)
	return &StateHandle{b: b, s: s}
}

// State starts an atomic state with the given id and optional parent.
func (b *Builder) State(id document.StateID, parent document.StateID) *StateHandle {
	return b.add(&document.State{ID: id, Kind: document.Atomic, Parent: parent})
}

// Compound starts a compound state.
func (b *Builder) Compound(id document.StateID, parent document.StateID) *StateHandle {
	return b.add(&document.State{ID: id, Kind: document.Compound, Parent: parent})
}

// Parallel starts a parallel state.
func (b *Builder) Parallel(id document.StateID, parent document.StateID) *StateHandle {
	return b.add(&document.State{ID: id, Kind: document.Parallel, Parent: parent})
}

// Final starts a final state.
func (b *Builder) Final(id document.StateID, parent document.StateID) *StateHandle {
	return b.add(&document.State{ID: id, Kind: document.Final, Parent: parent})
}

// History starts a history pseudostate.
func (b *Builder) History(id document.StateID, parent document.StateID, typ document.HistoryType) *StateHandle {
	return b.add(&document.State{ID: id, Kind: document.History, Parent: parent, HistoryType: typ})
}

// StateHandle configures one state and registers it as a child of its
// parent once Build runs.
type StateHandle struct {
	b *Builder
	s *document.State
}

// Initial sets the compound/parallel state's initial child list.
func (h *StateHandle) Initial(ids ...document.StateID) *StateHandle {
	h.s.Initial = ids
	return h
}

// InitialContent sets the executable content of the state's <initial>
// element transition, run when the state is entered by default descent.
func (h *StateHandle) InitialContent(actions ...document.Action) *StateHandle {
	h.s.InitialContent = actions
	return h
}

// OnEntry appends an entry action.
func (h *StateHandle) OnEntry(a document.Action) *StateHandle {
	h.s.OnEntry = append(h.s.OnEntry, a)
	return h
}

// OnExit appends an exit action.
func (h *StateHandle) OnExit(a document.Action) *StateHandle {
	h.s.OnExit = append(h.s.OnExit, a)
	return h
}

// HistoryDefault sets the default transition executed when a history
// state has no recorded configuration yet.
func (h *StateHandle) HistoryDefault(targets ...document.StateID) *StateHandle {
	h.s.HistoryDefault = &document.Transition{
		Source:  h.s.ID,
		Targets: targets,
	}
	return h
}

// HistoryDefaultSpec sets the history default transition from a full
// spec, for defaults whose transition carries executable content.
func (h *StateHandle) HistoryDefaultSpec(t TransitionSpec) *StateHandle {
	h.s.HistoryDefault = &document.Transition{
		Source:  h.s.ID,
		Targets: t.Targets,
		Content: t.Content,
	}
	return h
}

// Transition adds an outgoing transition.
func (h *StateHandle) Transition(t TransitionSpec) *StateHandle {
	trans := &document.Transition{
		Source:  h.s.ID,
		Targets: t.Targets,
		Event:   t.Event,
		Cond:    t.Cond,
		Type:    t.Type,
		Content: t.Content,
	}
	h.s.Transitions = append(h.s.Transitions, trans)
	return h
}

// TransitionSpec is the declarative description of one transition,
// passed to StateHandle.Transition.
type TransitionSpec struct {
	Event   []string
	Targets []document.StateID
	Cond    document.Cond
	Type    document.TransitionType
	Content []document.Action
}

func errDuplicateID(id document.StateID) error {
	return &buildError{msg: "builder: duplicate state id " + string(id)}
}

type buildError struct{ msg string }

func (e *buildError) Error() string { return e.msg }

// Build finalizes the document: wires Children from Parent links,
// assigns document order via a pre-order walk from the roots, and runs
// the validator. It returns the built document even when validation
// fails, so callers can inspect Diagnostics for tooling purposes; most
// callers should treat a non-nil error as fatal.
func (b *Builder) Build() (*document.Document, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	// Wire Children from Parent links, preserving insertion order.
	for _, id := range b.order {
		s := b.byID[id]
		if s.Parent == document.RootID {
			continue
		}
		parent, ok := b.byID[s.Parent]
		if !ok {
			return nil, &buildError{msg: "builder: unknown parent " + string(s.Parent) + " for state " + string(id)}
		}
		parent.Children = append(parent.Children, id)
	}

	// Assign document order via pre-order walk starting from the
	// top-level (Parent == RootID) states in insertion order.
	var roots []document.StateID
	for _, id := range b.order {
		if b.byID[id].Parent == document.RootID {
			roots = append(roots, id)
		}
	}
	var walk func(document.StateID)
	walk = func(id document.StateID) {
		s := b.byID[id]
		b.doc.AddState(s)
		for _, c := range s.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}

	result := validate.Validate(b.doc)
	if result.HasErrors() {
		return b.doc, result
	}
	return b.doc, nil
}
