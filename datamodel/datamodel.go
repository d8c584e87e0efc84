// Package datamodel implements the evaluation context and guard/value
// evaluator used to evaluate transition conditions and execute the
// "assign" family of executable content.
//
// Context holds its data in a plain map rather than a concurrent-safe
// one: the engine's single-owner, no-internal-concurrency discipline
// means it never touches a Context from more than one goroutine at a
// time, so a locking or sharded store would only add overhead here.
package datamodel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/event"
)

// Context is the data model: the named values a document's guards and
// executable content read and write.
type Context struct {
	data        map[string]any
	activeQuery func(document.StateID) bool
}

// NewContext returns an empty data model.
func NewContext() *Context {
	return &Context{data: make(map[string]any)}
}

// Get retrieves a value.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// Set stores a value.
func (c *Context) Set(key string, val any) {
	c.data[key] = val
}

// Delete removes a value.
func (c *Context) Delete(key string) {
	delete(c.data, key)
}

// BindActive installs the active-configuration query the In predicate
// consults. The engine binds this once when a machine is built.
func (c *Context) BindActive(fn func(document.StateID) bool) {
	c.activeQuery = fn
}

// In reports whether stateID is currently active; it backs the SCXML
// "In(stateid)" predicate available to guard expressions. It returns
// false until a machine has bound its configuration.
func (c *Context) In(stateID document.StateID) bool {
	if c.activeQuery == nil {
		return false
	}
	return c.activeQuery(stateID)
}

// Snapshot returns a serializable copy of the data model for persistence.
func (c *Context) Snapshot() map[string]any {
	snap := make(map[string]any, len(c.data))
	for k, v := range c.data {
		snap[k] = v
	}
	return snap
}

// Restore replaces the data model's contents from a snapshot.
func (c *Context) Restore(snap map[string]any) {
	c.data = make(map[string]any, len(snap))
	for k, v := range snap {
		c.data[k] = v
	}
}

// Evaluator evaluates guard conditions (document.Cond) and assignment
// values against a Context and the event that triggered the
// microstep. Hosts needing expression languages beyond the built-in
// comparison grammar implement their own Evaluator.
type Evaluator interface {
	EvalCond(ctx *Context, cond document.Cond, evt event.Event) bool
}

// ValueEvaluator is the optional value-evaluation side of an
// Evaluator, used by assignment actions whose right-hand side is an
// opaque handle rather than a Go closure.
type ValueEvaluator interface {
	EvalValue(ctx *Context, handle any, evt event.Event) any
}

// SimpleEvaluator supports two Cond shapes: a Go predicate function for
// hosts that build documents programmatically, and a "key op value"
// string grammar for documents built from data (e.g. a future XML
// front end).
type SimpleEvaluator struct{}

// NewSimpleEvaluator returns the default Evaluator.
func NewSimpleEvaluator() *SimpleEvaluator {
	return &SimpleEvaluator{}
}

// CondFunc is the function-valued Cond shape: a Go closure over
// whatever the host needs, given the data model and triggering event.
type CondFunc func(ctx *Context, evt event.Event) bool

// EvalCond implements Evaluator.
func (e *SimpleEvaluator) EvalCond(ctx *Context, cond document.Cond, evt event.Event) bool {
	if cond == nil {
		return true
	}
	switch c := cond.(type) {
	case CondFunc:
		return c(ctx, evt)
	case func(*Context, event.Event) bool:
		return c(ctx, evt)
	case string:
		return evalExpr(ctx, c)
	default:
		return false
	}
}

// EvalValue implements ValueEvaluator. Handles are Go closures over
// the context, or strings resolved first as a data-model key, then as
// a numeric/boolean literal, then taken verbatim.
func (e *SimpleEvaluator) EvalValue(ctx *Context, handle any, evt event.Event) any {
	switch h := handle.(type) {
	case nil:
		return nil
	case func(*Context) any:
		return h(ctx)
	case func(*Context, event.Event) any:
		return h(ctx, evt)
	case string:
		if v, ok := ctx.Get(h); ok {
			return v
		}
		if f, err := strconv.ParseFloat(h, 64); err == nil {
			return f
		}
		switch h {
		case "true":
			return true
		case "false":
			return false
		}
		return h
	default:
		return handle
	}
}

// Assign writes value to location. An empty location is a failure and
// leaves the context unchanged.
func (e *SimpleEvaluator) Assign(ctx *Context, location string, value any) error {
	if location == "" {
		return fmt.Errorf("datamodel: assign with empty location")
	}
	ctx.Set(location, value)
	return nil
}

// evalExpr evaluates "key op value" expressions: ==, !=, >, <, >=, <=.
// Malformed expressions fail closed rather than panicking or defaulting
// to true, since a broken guard should block a transition, not enable it.
func evalExpr(ctx *Context, expr string) bool {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return false
	}
	key, op, valStr := parts[0], parts[1], parts[2]

	v, hasKey := ctx.Get(key)
	if !hasKey {
		return false
	}

	if op == "!=" {
		return !evalExpr(ctx, fmt.Sprintf("%s == %s", key, valStr))
	}

	if op == "==" {
		switch valStr {
		case "true":
			return v == true
		case "false":
			return v == false
		case "nil":
			return v == nil
		default:
			if fVal, err := strconv.ParseFloat(valStr, 64); err == nil {
				if f, ok := toFloat(v); ok {
					return f == fVal
				}
			}
			if s, ok := v.(string); ok {
				return s == valStr
			}
			return false
		}
	}

	fVal, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return false
	}
	f, ok := toFloat(v)
	if !ok {
		return false
	}
	switch op {
	case ">":
		return f > fVal
	case "<":
		return f < fVal
	case ">=":
		return f >= fVal
	case "<=":
		return f <= fVal
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
