package selector

import (
	"testing"

	"github.com/statecraft-run/scxml/builder"
	"github.com/statecraft-run/scxml/datamodel"
	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/event"
	"github.com/statecraft-run/scxml/history"
)

func TestSelectChildPreemptsAncestor(t *testing.T) {
	b := builder.New("m", "preempt").WithInitial("p")
	b.Compound("p", document.RootID).Initial("a").
		Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"c"}})
	b.State("a", "p").Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"b"}})
	b.State("b", "p")
	b.State("c", "p")
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	active := []document.StateID{"a", "p"}
	sel := Select(doc, active, event.New("go", nil), datamodel.NewContext(), datamodel.NewSimpleEvaluator(), false, history.NewTracker())
	if len(sel) != 1 {
		t.Fatalf("expected exactly one enabled transition, got %d", len(sel))
	}
	if sel[0].Source != "a" {
		t.Fatalf("expected child's transition to win, got source %q", sel[0].Source)
	}
}

func TestSelectParallelSiblingsBothFire(t *testing.T) {
	b := builder.New("m", "parallel").WithInitial("par")
	b.Parallel("par", document.RootID)
	b.Compound("r1", "par").Initial("r1a")
	b.State("r1a", "r1").Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"r1b"}})
	b.State("r1b", "r1")
	b.Compound("r2", "par").Initial("r2a")
	b.State("r2a", "r2").Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"r2b"}})
	b.State("r2b", "r2")
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	active := []document.StateID{"r1a", "r1", "r2a", "r2", "par"}
	sel := Select(doc, active, event.New("go", nil), datamodel.NewContext(), datamodel.NewSimpleEvaluator(), false, history.NewTracker())
	if len(sel) != 2 {
		t.Fatalf("expected both region transitions to fire, got %d", len(sel))
	}
}

func TestSelectParallelRegionsConflictOnSharedExit(t *testing.T) {
	// Both regions target a state outside the parallel, so both would
	// exit par itself; only the first source in document order fires.
	b := builder.New("m", "parallel-conflict").WithInitial("par")
	b.Parallel("par", document.RootID)
	b.Compound("r1", "par").Initial("r1a")
	b.State("r1a", "r1").Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"out"}})
	b.Compound("r2", "par").Initial("r2a")
	b.State("r2a", "r2").Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"out"}})
	b.State("out", document.RootID)
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	active := []document.StateID{"r1a", "r1", "r2a", "r2", "par"}
	sel := Select(doc, active, event.New("go", nil), datamodel.NewContext(), datamodel.NewSimpleEvaluator(), false, history.NewTracker())
	if len(sel) != 1 {
		t.Fatalf("expected exactly one transition to survive the conflict, got %d", len(sel))
	}
	if sel[0].Source != "r1a" {
		t.Fatalf("expected first source in document order to win, got %q", sel[0].Source)
	}
}

func TestSelectNoMatchReturnsEmpty(t *testing.T) {
	b := builder.New("m", "nomatch").WithInitial("a")
	b.State("a", document.RootID)
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	sel := Select(doc, []document.StateID{"a"}, event.New("nope", nil), datamodel.NewContext(), datamodel.NewSimpleEvaluator(), false, history.NewTracker())
	if len(sel) != 0 {
		t.Fatalf("expected no enabled transitions, got %d", len(sel))
	}
}

func TestSelectEventlessOnly(t *testing.T) {
	b := builder.New("m", "eventless").WithInitial("a")
	b.State("a", document.RootID).Transition(builder.TransitionSpec{Targets: []document.StateID{"b"}})
	b.State("b", document.RootID)
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	sel := Select(doc, []document.StateID{"a"}, event.Event{}, datamodel.NewContext(), datamodel.NewSimpleEvaluator(), true, history.NewTracker())
	if len(sel) != 1 {
		t.Fatalf("expected one eventless transition, got %d", len(sel))
	}
}
