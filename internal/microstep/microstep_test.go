package microstep

import (
	"testing"

	"github.com/statecraft-run/scxml/action"
	"github.com/statecraft-run/scxml/builder"
	"github.com/statecraft-run/scxml/datamodel"
	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/event"
	"github.com/statecraft-run/scxml/history"
)

func noopRunner() action.Runner {
	return action.NewDefaultRunner(datamodel.NewSimpleEvaluator(), nil)
}

func TestApplySimpleTransition(t *testing.T) {
	b := builder.New("m", "simple").WithInitial("a")
	b.State("a", document.RootID).Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"b"}})
	b.State("b", document.RootID)
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	trans := doc.TransitionsFrom("a")
	res, err := Apply(doc, []document.StateID{"a"}, trans, history.NewTracker(), noopRunner(), datamodel.NewContext(), event.New("go", nil), func(event.Event) {})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Leaves) != 1 || res.Leaves[0] != "b" {
		t.Fatalf("unexpected leaves: %v", res.Leaves)
	}
	if len(res.Exited) != 1 || res.Exited[0] != "a" {
		t.Fatalf("unexpected exited: %v", res.Exited)
	}
}

func TestApplyCompoundDescendsToLeaf(t *testing.T) {
	b := builder.New("m", "descent").WithInitial("start")
	b.State("start", document.RootID).Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"p"}})
	b.Compound("p", document.RootID).Initial("a")
	b.State("a", "p")
	b.State("b", "p")
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	trans := doc.TransitionsFrom("start")
	res, err := Apply(doc, []document.StateID{"start"}, trans, history.NewTracker(), noopRunner(), datamodel.NewContext(), event.New("go", nil), func(event.Event) {})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Leaves) != 1 || res.Leaves[0] != "a" {
		t.Fatalf("expected descent to a, got %v", res.Leaves)
	}
	foundP := false
	for _, e := range res.Entered {
		if e == "p" {
			foundP = true
		}
	}
	if !foundP {
		t.Fatalf("expected p to be entered on the way to a: %v", res.Entered)
	}
}

func TestApplyParallelEntersAllRegions(t *testing.T) {
	b := builder.New("m", "parallel").WithInitial("start")
	b.State("start", document.RootID).Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"par"}})
	b.Parallel("par", document.RootID)
	b.Compound("r1", "par").Initial("r1a")
	b.State("r1a", "r1")
	b.Compound("r2", "par").Initial("r2a")
	b.State("r2a", "r2")
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	trans := doc.TransitionsFrom("start")
	res, err := Apply(doc, []document.StateID{"start"}, trans, history.NewTracker(), noopRunner(), datamodel.NewContext(), event.New("go", nil), func(event.Event) {})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Leaves) != 2 {
		t.Fatalf("expected two active leaves (one per region), got %v", res.Leaves)
	}
}

func TestApplyHistoryRestoresPreviousChild(t *testing.T) {
	b := builder.New("m", "hist").WithInitial("p")
	b.Compound("p", document.RootID).Initial("a")
	b.State("a", "p").Transition(builder.TransitionSpec{Event: []string{"next"}, Targets: []document.StateID{"b"}})
	b.State("b", "p").Transition(builder.TransitionSpec{Event: []string{"leave"}, Targets: []document.StateID{"outside"}})
	b.History("h", "p", document.Shallow).HistoryDefault("a")
	b.State("outside", document.RootID).Transition(builder.TransitionSpec{Event: []string{"back"}, Targets: []document.StateID{"h"}})
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	tracker := history.NewTracker()
	ctx := datamodel.NewContext()
	runner := noopRunner()
	raise := func(event.Event) {}

	active := []document.StateID{"a", "p"}
	res, err := Apply(doc, active, doc.TransitionsFrom("a"), tracker, runner, ctx, event.New("next", nil), raise)
	if err != nil {
		t.Fatalf("apply next: %v", err)
	}
	if res.Leaves[0] != "b" {
		t.Fatalf("expected b active, got %v", res.Leaves)
	}

	active = []document.StateID{"b", "p"}
	res, err = Apply(doc, active, doc.TransitionsFrom("b"), tracker, runner, ctx, event.New("leave", nil), raise)
	if err != nil {
		t.Fatalf("apply leave: %v", err)
	}
	if res.Leaves[0] != "outside" {
		t.Fatalf("expected outside active, got %v", res.Leaves)
	}

	active = []document.StateID{"outside"}
	res, err = Apply(doc, active, doc.TransitionsFrom("outside"), tracker, runner, ctx, event.New("back", nil), raise)
	if err != nil {
		t.Fatalf("apply back: %v", err)
	}
	if res.Leaves[0] != "b" {
		t.Fatalf("expected history to restore b, got %v", res.Leaves)
	}
}

func TestApplyTargetlessTransitionRunsContentOnly(t *testing.T) {
	ran := false
	content := action.Func(func(*datamodel.Context, event.Event, func(event.Event)) error {
		ran = true
		return nil
	})
	b := builder.New("m", "targetless").WithInitial("a")
	b.State("a", document.RootID).Transition(builder.TransitionSpec{Event: []string{"tick"}, Content: []document.Action{content}})
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	res, err := Apply(doc, []document.StateID{"a"}, doc.TransitionsFrom("a"), history.NewTracker(), noopRunner(), datamodel.NewContext(), event.New("tick", nil), func(event.Event) {})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !ran {
		t.Fatal("expected transition content to run")
	}
	if len(res.Exited) != 0 || len(res.Entered) != 0 {
		t.Fatalf("targetless transition must not exit or enter states: exited=%v entered=%v", res.Exited, res.Entered)
	}
	if len(res.Leaves) != 1 || res.Leaves[0] != "a" {
		t.Fatalf("configuration must be unchanged: %v", res.Leaves)
	}
}

func TestApplyExternalSelfTransitionReenters(t *testing.T) {
	var trace []string
	mark := func(name string) action.Func {
		return func(*datamodel.Context, event.Event, func(event.Event)) error {
			trace = append(trace, name)
			return nil
		}
	}
	b := builder.New("m", "self").WithInitial("p")
	b.Compound("p", document.RootID).Initial("a")
	b.State("a", "p").
		OnEntry(mark("enter")).
		OnExit(mark("exit")).
		Transition(builder.TransitionSpec{Event: []string{"again"}, Targets: []document.StateID{"a"}})
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	res, err := Apply(doc, []document.StateID{"a", "p"}, doc.TransitionsFrom("a"), history.NewTracker(), noopRunner(), datamodel.NewContext(), event.New("again", nil), func(event.Event) {})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Exited) != 1 || res.Exited[0] != "a" {
		t.Fatalf("expected a exited and reentered, got exited=%v", res.Exited)
	}
	if len(trace) != 2 || trace[0] != "exit" || trace[1] != "enter" {
		t.Fatalf("expected exit then enter, got %v", trace)
	}
}

func TestApplyInternalTransitionKeepsSource(t *testing.T) {
	b := builder.New("m", "internal").WithInitial("p")
	b.Compound("p", document.RootID).Initial("a").
		Transition(builder.TransitionSpec{Event: []string{"swap"}, Targets: []document.StateID{"b"}, Type: document.Internal})
	b.State("a", "p")
	b.State("b", "p")
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	res, err := Apply(doc, []document.StateID{"a", "p"}, doc.TransitionsFrom("p"), history.NewTracker(), noopRunner(), datamodel.NewContext(), event.New("swap", nil), func(event.Event) {})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, id := range res.Exited {
		if id == "p" {
			t.Fatal("internal transition must not exit its compound source")
		}
	}
	if len(res.Leaves) != 1 || res.Leaves[0] != "b" {
		t.Fatalf("unexpected leaves: %v", res.Leaves)
	}
}

func TestApplyRunsInitialContentOnDefaultDescent(t *testing.T) {
	var trace []string
	mark := func(name string) action.Func {
		return func(*datamodel.Context, event.Event, func(event.Event)) error {
			trace = append(trace, name)
			return nil
		}
	}
	b := builder.New("m", "initial-content").WithInitial("start")
	b.State("start", document.RootID).Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"p"}})
	b.Compound("p", document.RootID).Initial("a").
		OnEntry(mark("p-entry")).
		InitialContent(mark("initial"))
	b.State("a", "p").OnEntry(mark("a-entry"))
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	_, err = Apply(doc, []document.StateID{"start"}, doc.TransitionsFrom("start"), history.NewTracker(), noopRunner(), datamodel.NewContext(), event.New("go", nil), func(event.Event) {})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := []string{"p-entry", "initial", "a-entry"}
	if len(trace) != len(want) {
		t.Fatalf("unexpected trace: %v", trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("unexpected trace order: %v (want %v)", trace, want)
		}
	}
}

func TestApplyHistoryDefaultContentRunsAfterParentEntry(t *testing.T) {
	var trace []string
	mark := func(name string) action.Func {
		return func(*datamodel.Context, event.Event, func(event.Event)) error {
			trace = append(trace, name)
			return nil
		}
	}
	b := builder.New("m", "hist-default").WithInitial("out")
	b.State("out", document.RootID).Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"h"}})
	b.Compound("p", document.RootID).Initial("a").OnEntry(mark("p-entry"))
	b.State("a", "p").OnEntry(mark("a-entry"))
	b.History("h", "p", document.Shallow).HistoryDefaultSpec(builder.TransitionSpec{
		Targets: []document.StateID{"a"},
		Content: []document.Action{mark("default")},
	})
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	_, err = Apply(doc, []document.StateID{"out"}, doc.TransitionsFrom("out"), history.NewTracker(), noopRunner(), datamodel.NewContext(), event.New("go", nil), func(event.Event) {})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := []string{"p-entry", "default", "a-entry"}
	if len(trace) != len(want) {
		t.Fatalf("unexpected trace: %v", trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("unexpected trace order: %v (want %v)", trace, want)
		}
	}
}

func TestApplyExitEntryDelta(t *testing.T) {
	// all_active_before \ exited ∪ entered == all_active_after.
	b := builder.New("m", "delta").WithInitial("p")
	b.Compound("p", document.RootID).Initial("a")
	b.State("a", "p").Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"q"}})
	b.Compound("q", document.RootID).Initial("b")
	b.State("b", "q")
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	before := []document.StateID{"a", "p"}
	res, err := Apply(doc, before, doc.TransitionsFrom("a"), history.NewTracker(), noopRunner(), datamodel.NewContext(), event.New("go", nil), func(event.Event) {})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	after := make(map[document.StateID]bool)
	for _, id := range before {
		after[id] = true
	}
	for _, id := range res.Exited {
		delete(after, id)
	}
	for _, id := range res.Entered {
		after[id] = true
	}
	for _, want := range []document.StateID{"q", "b"} {
		if !after[want] {
			t.Fatalf("expected %s active after microstep, got %v", want, after)
		}
	}
	if after["a"] || after["p"] {
		t.Fatalf("expected a and p exited, got %v", after)
	}
}

func TestApplyDoneEventOnFinalEntry(t *testing.T) {
	b := builder.New("m", "done").WithInitial("p")
	b.Compound("p", document.RootID).Initial("a")
	b.State("a", "p").Transition(builder.TransitionSpec{Event: []string{"finish"}, Targets: []document.StateID{"f"}})
	b.Final("f", "p")
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var raised []event.Event
	raise := func(e event.Event) { raised = append(raised, e) }
	res, err := Apply(doc, []document.StateID{"a", "p"}, doc.TransitionsFrom("a"), history.NewTracker(), noopRunner(), datamodel.NewContext(), event.New("finish", nil), raise)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.DoneEvents) != 1 || res.DoneEvents[0].Name != "done.state.p" {
		t.Fatalf("expected done.state.p, got %v", res.DoneEvents)
	}
	if len(raised) != 1 || raised[0].Name != "done.state.p" {
		t.Fatalf("expected done event raised internally, got %v", raised)
	}
}
