// Package configuration holds the set of currently active leaf states
// (C2) and derives ancestor expansion on demand from the document.
package configuration

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/statecraft-run/scxml/document"
)

// Configuration is the set of active leaf (atomic/final) state ids.
// Only leaves are stored; ancestor expansion is always derived so there
// is a single source of truth for "what is active".
type Configuration struct {
	leaves *orderedmap.OrderedMap[document.StateID, struct{}]
}

// New returns an empty configuration.
func New() *Configuration {
	return &Configuration{leaves: orderedmap.New[document.StateID, struct{}]()}
}

// Replace sets the leaf set to exactly the given ids, in the given
// order (document order by convention).
func (c *Configuration) Replace(ids []document.StateID) {
	c.leaves = orderedmap.New[document.StateID, struct{}]()
	for _, id := range ids {
		c.leaves.Set(id, struct{}{})
	}
}

// Leaves returns the active leaf ids in insertion order.
func (c *Configuration) Leaves() []document.StateID {
	out := make([]document.StateID, 0, c.leaves.Len())
	for pair := c.leaves.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Len returns the number of active leaves.
func (c *Configuration) Len() int {
	return c.leaves.Len()
}

// AllActive returns the union of the leaves and every proper ancestor of
// each leaf (excluding the synthetic document root), deduplicated.
func (c *Configuration) AllActive(doc *document.Document) []document.StateID {
	seen := make(map[document.StateID]bool)
	var out []document.StateID
	add := func(id document.StateID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for pair := c.leaves.Oldest(); pair != nil; pair = pair.Next() {
		add(pair.Key)
		for _, anc := range doc.Ancestors(pair.Key, false) {
			add(anc)
		}
	}
	return out
}

// Contains reports whether id is active, either as a leaf or as an
// ancestor of an active leaf.
func (c *Configuration) Contains(doc *document.Document, id document.StateID) bool {
	if _, ok := c.leaves.Get(id); ok {
		return true
	}
	for pair := c.leaves.Oldest(); pair != nil; pair = pair.Next() {
		if doc.IsDescendant(pair.Key, id, false) {
			return true
		}
	}
	return false
}
