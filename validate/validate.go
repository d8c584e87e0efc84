// Package validate implements the document-validator collaborator: it
// checks the build-time structural invariants of a Document and reports
// them as errors/warnings rather than panicking, so a host can decide
// whether to refuse to run a machine. This package does not attempt
// general XML schema validation, only the structural invariants this
// engine's own algorithms assume.
package validate

import (
	"fmt"

	"github.com/statecraft-run/scxml/document"
)

// Severity distinguishes a hard validation failure from an advisory
// warning that does not prevent initialization.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one validation finding.
type Diagnostic struct {
	Severity Severity
	Message  string
	StateID  document.StateID
}

func (d Diagnostic) String() string {
	if d.StateID != "" {
		return fmt.Sprintf("%s: %s (state %q)", d.Severity, d.Message, d.StateID)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Result collects every diagnostic found for a document.
type Result struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
}

// HasErrors reports whether any diagnostic is a hard error.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error implements the error interface so Result can be returned
// directly as a Go error, as engine.New and builder.Build do.
func (r *Result) Error() string {
	if !r.HasErrors() {
		return "document valid"
	}
	msg := fmt.Sprintf("document invalid: %d error(s)", len(r.Errors))
	if len(r.Errors) > 0 {
		msg += ": " + r.Errors[0].String()
	}
	return msg
}

func (r *Result) addError(stateID document.StateID, format string, args ...any) {
	r.Errors = append(r.Errors, Diagnostic{Severity: SeverityError, Message: fmt.Sprintf(format, args...), StateID: stateID})
}

func (r *Result) addWarning(stateID document.StateID, format string, args ...any) {
	r.Warnings = append(r.Warnings, Diagnostic{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), StateID: stateID})
}

// Validate checks the structural invariants this engine assumes:
//   - every id is unique and non-empty
//   - every target/initial/parent reference resolves
//   - a history state has no children and at most one default transition
//   - a parallel state has >=1 child, all of valid kinds
//   - document order is total and strictly monotone in pre-order
func Validate(doc *document.Document) *Result {
	r := &Result{}

	// Duplicate ids are recorded by the document at insertion time,
	// since the id-keyed index keeps only the last state per id and a
	// post-hoc walk cannot see the clobbered one.
	for _, id := range doc.DuplicateIDs() {
		r.addError(id, "duplicate state id")
	}

	states := doc.States()
	seenOrder := make(map[int]bool)

	for _, s := range states {
		if s.ID == "" {
			r.addError(s.ID, "state id must be non-empty")
			continue
		}
		if seenOrder[s.DocOrder] {
			r.addError(s.ID, "duplicate document order %d", s.DocOrder)
		}
		seenOrder[s.DocOrder] = true

		if s.Parent != document.RootID {
			if _, ok := doc.FindState(s.Parent); !ok {
				r.addError(s.ID, "parent %q does not exist", s.Parent)
			}
		}

		for _, childID := range s.Children {
			child, ok := doc.FindState(childID)
			if !ok {
				r.addError(s.ID, "child %q does not exist", childID)
				continue
			}
			if child.Parent != s.ID {
				r.addError(s.ID, "child %q does not point back at parent", childID)
			}
		}

		switch s.Kind {
		case document.History:
			if len(s.Children) > 0 {
				r.addError(s.ID, "history state must have no children")
			}
			if s.HistoryDefault != nil {
				validateTargets(r, doc, s.ID, s.HistoryDefault.Targets)
			}
		case document.Parallel:
			if len(s.Children) == 0 {
				r.addError(s.ID, "parallel state requires at least one child")
			}
			for _, childID := range s.Children {
				child, ok := doc.FindState(childID)
				if !ok {
					continue
				}
				switch child.Kind {
				case document.Atomic, document.Compound, document.Parallel, document.Final, document.History:
				default:
					r.addError(s.ID, "parallel child %q has invalid kind %s", childID, child.Kind)
				}
			}
		case document.Compound:
			if len(s.Children) == 0 {
				r.addError(s.ID, "compound state requires at least one child")
			}
			for _, initID := range s.Initial {
				found := false
				for _, c := range s.Children {
					if c == initID {
						found = true
						break
					}
				}
				if !found {
					r.addError(s.ID, "initial %q is not a child", initID)
				}
			}
		case document.Atomic, document.Final:
			if len(s.Children) > 0 {
				r.addError(s.ID, "%s state must have no children", s.Kind)
			}
		}

		for _, t := range s.Transitions {
			validateTargets(r, doc, s.ID, t.Targets)
			if t.Type == document.Internal && t.Source == "" {
				r.addWarning(s.ID, "internal transition with empty source")
			}
		}
	}

	for _, id := range doc.Initial {
		if _, ok := doc.FindState(id); !ok {
			r.addError("", "top-level initial %q does not exist", id)
		}
	}

	// Document order must be a total, strictly monotone pre-order walk.
	prev := -1
	var walk func(document.StateID)
	visited := make(map[document.StateID]bool)
	walk = func(id document.StateID) {
		if visited[id] {
			return
		}
		visited[id] = true
		s, ok := doc.FindState(id)
		if !ok {
			return
		}
		if s.DocOrder <= prev {
			r.addError(s.ID, "document order %d is not strictly increasing in pre-order walk", s.DocOrder)
		}
		prev = s.DocOrder
		for _, c := range s.Children {
			walk(c)
		}
	}
	for _, s := range states {
		if s.Parent == document.RootID {
			walk(s.ID)
		}
	}

	return r
}

func validateTargets(r *Result, doc *document.Document, source document.StateID, targets []document.StateID) {
	for _, tgt := range targets {
		if _, ok := doc.FindState(tgt); !ok {
			r.addError(source, "transition target %q does not exist", tgt)
		}
	}
}
