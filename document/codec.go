package document

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// spec is the serialized shape of a Document: structural hierarchy,
// transitions, and history declarations. Executable content (OnEntry,
// OnExit, transition Content) is out of scope for the wire format,
// since document.Action is deliberately opaque to this package and
// interpreted by the action package a decoded document never imports
// — hosts that need entry/exit actions on a decoded document attach
// them after FromJSON/FromYAML returns, walking States() by id.
type spec struct {
	ID      string      `json:"id" yaml:"id"`
	Name    string      `json:"name" yaml:"name"`
	Initial []string    `json:"initial" yaml:"initial"`
	States  []stateSpec `json:"states" yaml:"states"`
}

type stateSpec struct {
	ID             string           `json:"id" yaml:"id"`
	Kind           string           `json:"kind" yaml:"kind"`
	Initial        []string         `json:"initial,omitempty" yaml:"initial,omitempty"`
	HistoryType    string           `json:"historyType,omitempty" yaml:"historyType,omitempty"`
	HistoryDefault []string         `json:"historyDefault,omitempty" yaml:"historyDefault,omitempty"`
	Transitions    []transitionSpec `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	States         []stateSpec      `json:"states,omitempty" yaml:"states,omitempty"`
}

type transitionSpec struct {
	Event   []string `json:"event,omitempty" yaml:"event,omitempty"`
	Targets []string `json:"targets,omitempty" yaml:"targets,omitempty"`
	Cond    string   `json:"cond,omitempty" yaml:"cond,omitempty"`
	Type    string   `json:"type,omitempty" yaml:"type,omitempty"`
}

// FromJSON decodes a Document from its structural JSON representation,
// as produced by a host's own configuration pipeline (this module's XML
// surface parser is out of scope; FromJSON/FromYAML serve hosts that
// already have a document serialized some other way).
func FromJSON(data []byte) (*Document, error) {
	var s spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("document: decode json: %w", err)
	}
	return fromSpec(s)
}

// FromYAML decodes a Document from its structural YAML representation.
func FromYAML(data []byte) (*Document, error) {
	var s spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("document: decode yaml: %w", err)
	}
	return fromSpec(s)
}

func fromSpec(s spec) (*Document, error) {
	doc := New(s.ID, s.Name)
	for _, id := range s.Initial {
		doc.Initial = append(doc.Initial, StateID(id))
	}

	var walk func(ss stateSpec, parent StateID) error
	walk = func(ss stateSpec, parent StateID) error {
		kind, err := parseKind(ss.Kind)
		if err != nil {
			return fmt.Errorf("document: state %q: %w", ss.ID, err)
		}
		state := &State{
			ID:     StateID(ss.ID),
			Kind:   kind,
			Parent: parent,
		}
		for _, id := range ss.Initial {
			state.Initial = append(state.Initial, StateID(id))
		}
		if ss.HistoryType != "" {
			ht, err := parseHistoryType(ss.HistoryType)
			if err != nil {
				return fmt.Errorf("document: state %q: %w", ss.ID, err)
			}
			state.HistoryType = ht
		}
		if len(ss.HistoryDefault) > 0 {
			var targets []StateID
			for _, id := range ss.HistoryDefault {
				targets = append(targets, StateID(id))
			}
			state.HistoryDefault = &Transition{Source: state.ID, Targets: targets}
		}
		for _, ts := range ss.Transitions {
			typ, err := parseTransitionType(ts.Type)
			if err != nil {
				return fmt.Errorf("document: state %q: %w", ss.ID, err)
			}
			var targets []StateID
			for _, id := range ts.Targets {
				targets = append(targets, StateID(id))
			}
			trans := &Transition{
				Source:  state.ID,
				Targets: targets,
				Event:   EventDescriptor(ts.Event),
				Type:    typ,
			}
			if ts.Cond != "" {
				trans.Cond = ts.Cond
			}
			state.Transitions = append(state.Transitions, trans)
		}
		for _, child := range ss.States {
			state.Children = append(state.Children, StateID(child.ID))
		}
		doc.AddState(state)
		for _, child := range ss.States {
			if err := walk(child, state.ID); err != nil {
				return err
			}
		}
		return nil
	}

	for _, top := range s.States {
		if err := walk(top, RootID); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "atomic", "":
		return Atomic, nil
	case "compound":
		return Compound, nil
	case "parallel":
		return Parallel, nil
	case "final":
		return Final, nil
	case "history":
		return History, nil
	default:
		return Atomic, fmt.Errorf("unknown kind %q", s)
	}
}

func parseHistoryType(s string) (HistoryType, error) {
	switch s {
	case "shallow", "":
		return Shallow, nil
	case "deep":
		return Deep, nil
	default:
		return Shallow, fmt.Errorf("unknown history type %q", s)
	}
}

func parseTransitionType(s string) (TransitionType, error) {
	switch s {
	case "external", "":
		return External, nil
	case "internal":
		return Internal, nil
	default:
		return External, fmt.Errorf("unknown transition type %q", s)
	}
}
