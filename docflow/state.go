package docflow

import (
	"fmt"

	"github.com/pkg/errors"
)

// State is one discrete workflow state: a tracking value stored in the host
// document plus human-readable metadata. States are created through
// Definition.AddState and are immutable afterwards.
type State struct {
	def         *Definition
	name        string
	value       any
	title       string
	description string
	order       int
}

func (s *State) Name() string        { return s.name }
func (s *State) Value() any          { return s.value }
func (s *State) Title() string       { return s.title }
func (s *State) Description() string { return s.description }

func (s *State) String() string {
	return fmt.Sprintf("<State %s>", s.name)
}

// Test reports whether the workflow's document is currently in this state.
func (s *State) Test(w *Workflow) (bool, error) {
	if w == nil {
		return false, errors.WithMessagef(ErrConfiguration, "state %q tested without a workflow instance", s.name)
	}
	raw, err := w.def.readState(w.doc)
	if err != nil {
		return false, err
	}
	if !isComparable(raw) {
		return false, w.def.mapErr(errors.WithMessagef(ErrConfiguration, "document state value %v is not comparable", raw))
	}
	return raw == s.value, nil
}

// Transition declares a transition from this state to the given destination
// and registers it on the owning definition. This is the forward declaration
// direction; TransitionFrom is the reverse one. Both produce an identical
// Transition.
func (s *State) Transition(to *State, spec TransitionSpec) (*Transition, error) {
	return s.def.AddTransition([]*State{s}, []*State{to}, spec)
}

// TransitionFrom declares a transition into this state from the given source
// states. Equivalent to declaring the same edge with Transition on each
// source; only the authoring direction differs.
func (s *State) TransitionFrom(from []*State, spec TransitionSpec) (*Transition, error) {
	return s.def.AddTransition(from, []*State{s}, spec)
}

// StateGroup is a named set of tracking values used for "is the document in
// any of these states" membership tests. Groups never own transitions.
type StateGroup struct {
	def         *Definition
	name        string
	values      []any
	title       string
	description string
}

func (g *StateGroup) Name() string        { return g.name }
func (g *StateGroup) Title() string       { return g.title }
func (g *StateGroup) Description() string { return g.description }

// Values returns the tracking values in declaration order.
func (g *StateGroup) Values() []any {
	out := make([]any, len(g.values))
	copy(out, g.values)
	return out
}

func (g *StateGroup) String() string {
	return fmt.Sprintf("<StateGroup %s>", g.name)
}

// Test reports whether the workflow's document is currently in any of the
// group's states. Group membership is validated lazily here, not at
// declaration time, so groups may reference states declared after them.
func (g *StateGroup) Test(w *Workflow) (bool, error) {
	if w == nil {
		return false, errors.WithMessagef(ErrConfiguration, "state group %q tested without a workflow instance", g.name)
	}
	for _, v := range g.values {
		if _, ok := w.def.byValue[v]; !ok {
			return false, w.def.mapErr(errors.WithMessagef(ErrConfiguration,
				"state group %q references value %v which is not a declared state", g.name, v))
		}
	}
	raw, err := w.def.readState(w.doc)
	if err != nil {
		return false, err
	}
	if !isComparable(raw) {
		return false, w.def.mapErr(errors.WithMessagef(ErrConfiguration, "document state value %v is not comparable", raw))
	}
	for _, v := range g.values {
		if raw == v {
			return true, nil
		}
	}
	return false, nil
}

// Transition on a group is always a configuration error: groups are
// membership tests only, never transition endpoints.
func (g *StateGroup) Transition(to *State, spec TransitionSpec) (*Transition, error) {
	return nil, g.def.mapErr(errors.WithMessagef(ErrConfiguration,
		"state group %q cannot own transitions", g.name))
}

// TransitionFrom on a group is always a configuration error.
func (g *StateGroup) TransitionFrom(from []*State, spec TransitionSpec) (*Transition, error) {
	return nil, g.def.mapErr(errors.WithMessagef(ErrConfiguration,
		"state group %q cannot be a transition destination", g.name))
}
