package validate

import (
	"testing"

	"github.com/statecraft-run/scxml/document"
)

func validDoc() *document.Document {
	d := document.New("m", "valid")
	p := &document.State{ID: "p", Kind: document.Compound, Parent: document.RootID,
		Children: []document.StateID{"a", "b"}, Initial: []document.StateID{"a"}}
	d.AddState(p)
	d.AddState(&document.State{ID: "a", Kind: document.Atomic, Parent: "p"})
	d.AddState(&document.State{ID: "b", Kind: document.Atomic, Parent: "p"})
	d.Initial = []document.StateID{"p"}
	return d
}

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	r := Validate(validDoc())
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
}

func TestValidateRejectsDuplicateStateID(t *testing.T) {
	d := document.New("m", "dup")
	d.AddState(&document.State{ID: "a", Kind: document.Atomic, Parent: document.RootID})
	d.AddState(&document.State{ID: "a", Kind: document.Atomic, Parent: document.RootID})
	d.Initial = []document.StateID{"a"}
	r := Validate(d)
	if !r.HasErrors() {
		t.Fatal("expected an error for a repeated state id")
	}
}

func TestValidateRejectsDanglingTarget(t *testing.T) {
	d := document.New("m", "dangling")
	d.AddState(&document.State{ID: "a", Kind: document.Atomic, Parent: document.RootID,
		Transitions: []*document.Transition{{Source: "a", Targets: []document.StateID{"ghost"}}}})
	d.Initial = []document.StateID{"a"}
	r := Validate(d)
	if !r.HasErrors() {
		t.Fatal("expected an error for a target that does not exist")
	}
}

func TestValidateRejectsHistoryWithChildren(t *testing.T) {
	d := document.New("m", "hist")
	d.AddState(&document.State{ID: "p", Kind: document.Compound, Parent: document.RootID,
		Children: []document.StateID{"a", "h"}})
	d.AddState(&document.State{ID: "a", Kind: document.Atomic, Parent: "p"})
	d.AddState(&document.State{ID: "h", Kind: document.History, Parent: "p",
		Children: []document.StateID{"a"}})
	r := Validate(d)
	if !r.HasErrors() {
		t.Fatal("expected an error for a history state with children")
	}
}

func TestValidateRejectsEmptyParallel(t *testing.T) {
	d := document.New("m", "par")
	d.AddState(&document.State{ID: "p", Kind: document.Parallel, Parent: document.RootID})
	r := Validate(d)
	if !r.HasErrors() {
		t.Fatal("expected an error for a parallel state without children")
	}
}

func TestValidateRejectsInitialOutsideChildren(t *testing.T) {
	d := document.New("m", "bad-initial")
	d.AddState(&document.State{ID: "p", Kind: document.Compound, Parent: document.RootID,
		Children: []document.StateID{"a"}, Initial: []document.StateID{"elsewhere"}})
	d.AddState(&document.State{ID: "a", Kind: document.Atomic, Parent: "p"})
	d.AddState(&document.State{ID: "elsewhere", Kind: document.Atomic, Parent: document.RootID})
	r := Validate(d)
	if !r.HasErrors() {
		t.Fatal("expected an error for an initial id that is not a child")
	}
}
