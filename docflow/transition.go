package docflow

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

// Handler runs the side effects of a transition. The state and permission
// checks have already passed when it is called. Returning an error aborts the
// transition and leaves the document state unchanged; return Veto(...) to
// abort deliberately. A handler may call Workflow.SetState itself when it
// needs fine control over the destination; the executor then leaves that
// explicit state in place instead of committing the declared destination.
type Handler func(ctx context.Context, w *Workflow) error

// SubmitHandler runs an interactive transition with validated form data.
type SubmitHandler func(ctx context.Context, w *Workflow, data map[string]any) error

// TransitionSpec carries the metadata for one transition declaration.
// Name is required. Permission, when set, must be present in the resolved
// permission set at execution time. Handler is optional; a nil handler makes
// the transition a pure state change.
//
// Form, Validate and Submit make the transition interactive: an external UI
// layer asks for the form description, collects data, and submits it. Submit
// replaces Handler for interactive transitions.
type TransitionSpec struct {
	Name        string `validate:"required"`
	Title       string
	Description string
	Permission  string
	Handler     Handler

	Form     func(ctx context.Context) Form
	Validate func(ctx context.Context, data map[string]any) error
	Submit   SubmitHandler
}

// Transition is an immutable edge of the workflow graph: one or more source
// states, one or more destination states, an optional permission requirement
// and a bound handler. Created through Definition.AddTransition (or the
// State.Transition / State.TransitionFrom shorthands) and owned by the
// declaring definition.
type Transition struct {
	def         *Definition
	name        string
	title       string
	description string
	permission  string
	from        []*State
	fromValues  map[any]struct{}
	to          []*State
	handler     Handler
	form        func(ctx context.Context) Form
	validate    func(ctx context.Context, data map[string]any) error
	submit      SubmitHandler
	order       int
}

func (t *Transition) Name() string        { return t.name }
func (t *Transition) Title() string       { return t.title }
func (t *Transition) Description() string { return t.description }
func (t *Transition) Permission() string  { return t.permission }

// From returns the declared source states in declaration order.
func (t *Transition) From() []*State {
	out := make([]*State, len(t.from))
	copy(out, t.from)
	return out
}

// To returns the declared destination states.
func (t *Transition) To() []*State {
	out := make([]*State, len(t.to))
	copy(out, t.to)
	return out
}

// IsInteractive reports whether the transition requires user-supplied form
// data and must be driven through Workflow.Interactive.
func (t *Transition) IsInteractive() bool {
	return t.submit != nil || t.form != nil || t.validate != nil
}

// Execute validates the current state and permission, runs the handler and
// commits the destination state to the document. No return value besides the
// error: absence of an error is the success signal.
func (t *Transition) Execute(ctx context.Context, w *Workflow) error {
	if t.IsInteractive() {
		return w.def.mapErr(errors.WithMessagef(ErrConfiguration,
			"transition %q is interactive and must be driven through Workflow.Interactive", t.name))
	}
	return t.run(ctx, w, func(ctx context.Context) error {
		if t.handler == nil {
			return nil
		}
		return t.handler(ctx, w)
	})
}

// run is the shared execution path for plain and interactive transitions.
// The state write happens exactly once, after the body returns nil, so any
// error leaves the document state untouched.
func (t *Transition) run(ctx context.Context, w *Workflow, body func(ctx context.Context) error) error {
	d := w.def
	before, err := d.readState(w.doc)
	if err != nil {
		return err
	}
	cur, err := d.stateForValue(before)
	if err != nil {
		return err
	}
	if _, ok := t.fromValues[cur.value]; !ok {
		slog.WarnContext(ctx, "transition refused: wrong state",
			"workflow", d.name, "transition", t.name, "state", cur.name)
		return d.mapErr(errors.WithMessagef(ErrTransition,
			"transition %q is not available from state %q", t.name, cur.name))
	}
	if t.permission != "" {
		if !hasPermission(d.Permissions(ctx), t.permission) {
			slog.WarnContext(ctx, "transition refused: missing permission",
				"workflow", d.name, "transition", t.name, "permission", t.permission)
			return d.mapErr(errors.WithMessagef(ErrPermission,
				"transition %q requires permission %q", t.name, t.permission))
		}
	}
	if err := body(ctx); err != nil {
		return err
	}
	after, err := d.readState(w.doc)
	if err != nil {
		return err
	}
	if !isComparable(after) {
		return d.mapErr(errors.WithMessagef(ErrConfiguration,
			"handler for transition %q set a non-comparable state value", t.name))
	}
	if after != before {
		// The handler set the state itself; that explicit set is
		// authoritative and is not overwritten.
		d.notify(ctx, TransitionEvent{Workflow: d.name, Transition: t.name, Document: w.doc, From: before, To: after})
		slog.DebugContext(ctx, "transition executed with explicit state",
			"workflow", d.name, "transition", t.name, "from", before, "to", after)
		return nil
	}
	if len(t.to) != 1 {
		return d.mapErr(errors.WithMessagef(ErrTransition,
			"transition %q declares %d destinations; its handler must set the state explicitly", t.name, len(t.to)))
	}
	if err := d.writeState(w.doc, t.to[0].value); err != nil {
		return err
	}
	d.notify(ctx, TransitionEvent{Workflow: d.name, Transition: t.name, Document: w.doc, From: before, To: t.to[0].value})
	slog.DebugContext(ctx, "transition executed",
		"workflow", d.name, "transition", t.name, "from", before, "to", t.to[0].value)
	return nil
}

func hasPermission(perms []string, want string) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}
