package docflow

import (
	"context"

	"github.com/pkg/errors"
)

// Workflow binds a definition to exactly one host document. It holds no
// state of its own: the current state is always derived by reading the
// document's state field, so an instance can never observe a stale value and
// may be created and discarded freely. Callers are expected to serialize
// access to a given document; the instance takes no locks.
type Workflow struct {
	def *Definition
	doc any
}

// New wraps a document in a workflow instance. The document's current state
// value must map to a declared state.
func New(def *Definition, doc any) (*Workflow, error) {
	if def == nil {
		return nil, errors.WithMessage(ErrConfiguration, "nil workflow definition")
	}
	raw, err := def.readState(doc)
	if err != nil {
		return nil, err
	}
	if _, err := def.stateForValue(raw); err != nil {
		return nil, err
	}
	return &Workflow{def: def, doc: doc}, nil
}

func (w *Workflow) Definition() *Definition { return w.def }
func (w *Workflow) Document() any           { return w.doc }

// State reads the document's current tracking value and reverse-maps it to
// the declared state.
func (w *Workflow) State() (*State, error) {
	raw, err := w.def.readState(w.doc)
	if err != nil {
		return nil, err
	}
	return w.def.stateForValue(raw)
}

// SetState writes the tracking value of the named state to the document,
// bypassing transition checks. Handlers use it when a transition declares
// several destinations or needs fine control over the committed state.
func (w *Workflow) SetState(name string) error {
	s, ok := w.def.states[name]
	if !ok {
		return w.def.mapErr(errors.WithMessagef(ErrConfiguration,
			"workflow %q has no state %q", w.def.name, name))
	}
	return w.def.writeState(w.doc, s.value)
}

// SetStateValue writes a raw tracking value to the document. The value must
// belong to a declared state.
func (w *Workflow) SetStateValue(value any) error {
	s, err := w.def.stateForValue(value)
	if err != nil {
		return err
	}
	return w.def.writeState(w.doc, s.value)
}

// Is reports whether the document is currently in the named state.
func (w *Workflow) Is(stateName string) (bool, error) {
	s, ok := w.def.states[stateName]
	if !ok {
		return false, w.def.mapErr(errors.WithMessagef(ErrConfiguration,
			"workflow %q has no state %q", w.def.name, stateName))
	}
	return s.Test(w)
}

// InGroup reports whether the document is currently in any state of the
// named group.
func (w *Workflow) InGroup(groupName string) (bool, error) {
	g, ok := w.def.groups[groupName]
	if !ok {
		return false, w.def.mapErr(errors.WithMessagef(ErrConfiguration,
			"workflow %q has no state group %q", w.def.name, groupName))
	}
	return g.Test(w)
}

// States returns every declared state in declaration order.
func (w *Workflow) States() []*State {
	return w.def.States()
}

// Transitions returns, in declaration order, the transitions whose source
// states include the current state and whose permission requirement (if any)
// is satisfied in the given context. This drives "what can I do next" UIs.
func (w *Workflow) Transitions(ctx context.Context) ([]*Transition, error) {
	cur, err := w.State()
	if err != nil {
		return nil, err
	}
	perms := w.def.Permissions(ctx)
	out := make([]*Transition, 0)
	for _, t := range w.def.transitions {
		if _, ok := t.fromValues[cur.value]; !ok {
			continue
		}
		if t.permission != "" && !hasPermission(perms, t.permission) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Apply executes the named transition against the document.
func (w *Workflow) Apply(ctx context.Context, transition string) error {
	t, ok := w.def.byTransName[transition]
	if !ok {
		return w.def.mapErr(errors.WithMessagef(ErrConfiguration,
			"workflow %q has no transition %q", w.def.name, transition))
	}
	return t.Execute(ctx, w)
}
