// Package visualize renders a Document and its active configuration
// as Graphviz DOT source or JSON, implementing engine.Visualizer.
package visualize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/statecraft-run/scxml/document"
)

// DefaultVisualizer is the stdlib-only implementation of
// engine.Visualizer.
type DefaultVisualizer struct{}

// ExportDOT generates Graphviz DOT source for doc, highlighting the
// states active in leaves.
func (v *DefaultVisualizer) ExportDOT(doc *document.Document, leaves []document.StateID) string {
	active := make(map[document.StateID]bool, len(leaves))
	for _, leaf := range leaves {
		active[leaf] = true
		for _, anc := range doc.Ancestors(leaf, false) {
			active[anc] = true
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph Statechart {\n  rankdir=LR;\n  node [shape=box, fontsize=10, style=rounded];\n  edge [fontsize=9];\n")

	for _, id := range doc.Children(document.RootID) {
		renderState(&buf, doc, id, active)
	}

	for _, s := range doc.States() {
		for _, t := range s.Transitions {
			label := "*"
			if !t.IsEventless() {
				label = fmt.Sprintf("%v", t.Event)
			}
			for _, target := range t.Targets {
				fmt.Fprintf(&buf, "  \"%s\" -> \"%s\" [label=%q];\n", s.ID, target, label)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes doc's state tree to JSON.
func (v *DefaultVisualizer) ExportJSON(doc *document.Document) ([]byte, error) {
	type jsonState struct {
		ID       document.StateID   `json:"id"`
		Kind     string             `json:"kind"`
		Parent   document.StateID   `json:"parent,omitempty"`
		Children []document.StateID `json:"children,omitempty"`
	}
	var out []jsonState
	for _, s := range doc.States() {
		out = append(out, jsonState{ID: s.ID, Kind: s.Kind.String(), Parent: s.Parent, Children: s.Children})
	}
	return json.MarshalIndent(out, "", "  ")
}

func renderState(buf *bytes.Buffer, doc *document.Document, id document.StateID, active map[document.StateID]bool) {
	s, ok := doc.FindState(id)
	if !ok {
		return
	}
	if len(s.Children) > 0 {
		fmt.Fprintf(buf, "  subgraph cluster_%s {\n", id)
		style := ""
		if active[id] {
			style = " style=filled fillcolor=orange"
		}
		fmt.Fprintf(buf, "    label=\"%s (%s)\";\n", id, s.Kind)
		fmt.Fprintf(buf, "    \"%s\" [label=\"%s\" shape=ellipse%s];\n", id, id, style)
		for _, child := range s.Children {
			renderState(buf, doc, child, active)
		}
		buf.WriteString("  }\n")
		return
	}
	style := ""
	if active[id] {
		style = " style=filled fillcolor=lightgreen"
	}
	fmt.Fprintf(buf, "  \"%s\" [label=\"%s\"%s];\n", id, id, style)
}
