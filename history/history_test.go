package history

import (
	"testing"

	"github.com/statecraft-run/scxml/builder"
	"github.com/statecraft-run/scxml/document"
)

func buildHistoryDoc(t *testing.T) *document.Document {
	t.Helper()
	b := builder.New("m", "history-test").WithInitial("p")
	b.Compound("p", document.RootID).Initial("a")
	b.State("a", "p").Transition(builder.TransitionSpec{Event: []string{"go"}, Targets: []document.StateID{"b"}})
	b.State("b", "p")
	b.History("h", "p", document.Shallow).HistoryDefault("a")
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return doc
}

func TestTrackerRecordResolve(t *testing.T) {
	doc := buildHistoryDoc(t)
	tr := NewTracker()

	if _, ok := tr.Resolve("h"); ok {
		t.Fatal("expected no record before any exit")
	}

	snap := Snapshot(doc, "p", document.Shallow, []document.StateID{"b"})
	if len(snap) != 1 || snap[0] != "b" {
		t.Fatalf("unexpected snapshot: %v", snap)
	}
	tr.Record("h", snap)

	got, ok := tr.Resolve("h")
	if !ok || len(got) != 1 || got[0] != "b" {
		t.Fatalf("unexpected resolve: %v ok=%v", got, ok)
	}

	tr.Clear("h")
	if _, ok := tr.Resolve("h"); ok {
		t.Fatal("expected record cleared")
	}
}

func TestSnapshotDeepHistory(t *testing.T) {
	b := builder.New("m", "deep").WithInitial("par")
	b.Parallel("par", document.RootID)
	b.Compound("r1", "par").Initial("r1a")
	b.State("r1a", "r1")
	b.State("r1b", "r1")
	b.Compound("r2", "par").Initial("r2a")
	b.State("r2a", "r2")
	b.State("r2b", "r2")
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	active := []document.StateID{"r1b", "r2a"}
	snap := Snapshot(doc, "par", document.Deep, active)
	if len(snap) != 2 {
		t.Fatalf("expected 2 active descendants, got %v", snap)
	}
}
