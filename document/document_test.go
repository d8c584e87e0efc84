package document

import "testing"

func buildSimpleTree() *Document {
	d := New("m", "simple")
	root := &State{ID: "p", Kind: Compound, Parent: RootID, Initial: []StateID{"a"}}
	a := &State{ID: "a", Kind: Atomic, Parent: "p"}
	b := &State{ID: "b", Kind: Atomic, Parent: "p"}
	root.Children = []StateID{"a", "b"}
	d.AddState(root)
	d.AddState(a)
	d.AddState(b)
	return d
}

func TestAddStateAssignsDocOrder(t *testing.T) {
	d := buildSimpleTree()
	p, _ := d.FindState("p")
	a, _ := d.FindState("a")
	b, _ := d.FindState("b")
	if p.DocOrder != 0 || a.DocOrder != 1 || b.DocOrder != 2 {
		t.Fatalf("unexpected doc order: p=%d a=%d b=%d", p.DocOrder, a.DocOrder, b.DocOrder)
	}
}

func TestAncestors(t *testing.T) {
	d := buildSimpleTree()
	anc := d.Ancestors("a", false)
	if len(anc) != 1 || anc[0] != "p" {
		t.Fatalf("unexpected ancestors: %v", anc)
	}
	anc = d.Ancestors("a", true)
	if len(anc) != 2 || anc[0] != "a" || anc[1] != "p" {
		t.Fatalf("unexpected ancestors with self: %v", anc)
	}
}

func TestIsDescendant(t *testing.T) {
	d := buildSimpleTree()
	if !d.IsDescendant("a", "p", false) {
		t.Fatal("expected a to be descendant of p")
	}
	if d.IsDescendant("p", "a", false) {
		t.Fatal("did not expect p to be descendant of a")
	}
	if !d.IsDescendant("a", "a", true) {
		t.Fatal("expected a to be its own descendant with includeSelf")
	}
	if !d.IsDescendant("a", RootID, false) {
		t.Fatal("expected everything to descend from the synthetic root")
	}
}

func TestChildrenOfRoot(t *testing.T) {
	d := buildSimpleTree()
	children := d.Children(RootID)
	if len(children) != 1 || children[0] != "p" {
		t.Fatalf("unexpected root children: %v", children)
	}
}

func TestDocOrderOf(t *testing.T) {
	d := buildSimpleTree()
	if d.DocOrderOf(RootID) != -1 {
		t.Fatal("expected root to sort before everything")
	}
	if d.DocOrderOf("unknown") != -1 {
		t.Fatal("expected unknown id to report -1")
	}
	if d.DocOrderOf("b") != 2 {
		t.Fatalf("unexpected doc order for b: %d", d.DocOrderOf("b"))
	}
}
