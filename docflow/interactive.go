package docflow

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// FormField describes one input an interactive transition needs from the
// user. Rules is a validator/v10 tag expression (e.g. "required,min=1")
// applied by the default Validate implementation; UI rendering of the field
// is left to the caller.
type FormField struct {
	Name  string
	Title string
	Rules string
}

// Form is the description of the inputs an interactive transition requires.
type Form []FormField

// StaticForm builds a Form function returning a fixed field list, the common
// case for TransitionSpec.Form.
func StaticForm(fields ...FormField) func(ctx context.Context) Form {
	return func(ctx context.Context) Form { return Form(fields) }
}

// Interactive drives a transition that needs user-supplied data collected by
// an external UI layer. It is created through Workflow.Interactive, which
// re-runs the state and permission checks, and exposes the three
// sub-operations: Form describes the required inputs, Validate checks
// submitted data without committing, Submit validates and executes as one
// unit.
type Interactive struct {
	t *Transition
	w *Workflow
}

// Interactive prepares the named interactive transition for execution. The
// state and permission checks run here as well as at Submit, so a caller
// can refuse to render a form the user is not allowed to submit.
func (w *Workflow) Interactive(ctx context.Context, transition string) (*Interactive, error) {
	t, ok := w.def.byTransName[transition]
	if !ok {
		return nil, w.def.mapErr(errors.WithMessagef(ErrConfiguration,
			"workflow %q has no transition %q", w.def.name, transition))
	}
	if !t.IsInteractive() {
		return nil, w.def.mapErr(errors.WithMessagef(ErrConfiguration,
			"transition %q is not interactive", transition))
	}
	cur, err := w.State()
	if err != nil {
		return nil, err
	}
	if _, ok := t.fromValues[cur.value]; !ok {
		return nil, w.def.mapErr(errors.WithMessagef(ErrTransition,
			"transition %q is not available from state %q", t.name, cur.name))
	}
	if t.permission != "" && !hasPermission(w.def.Permissions(ctx), t.permission) {
		return nil, w.def.mapErr(errors.WithMessagef(ErrPermission,
			"transition %q requires permission %q", t.name, t.permission))
	}
	return &Interactive{t: t, w: w}, nil
}

func (i *Interactive) Transition() *Transition { return i.t }

func (i *Interactive) String() string {
	return fmt.Sprintf("<Interactive %s>", i.t.name)
}

// Form returns the description of the inputs this transition requires.
func (i *Interactive) Form(ctx context.Context) Form {
	if i.t.form == nil {
		return nil
	}
	return i.t.form(ctx)
}

// Validate checks submitted data without committing anything. A custom
// Validate function on the TransitionSpec decides alone; otherwise each
// declared form field's Rules expression is applied to the submitted value.
func (i *Interactive) Validate(ctx context.Context, data map[string]any) error {
	if i.t.validate != nil {
		return i.t.validate(ctx, data)
	}
	if i.t.form == nil {
		return nil
	}
	for _, field := range i.t.form(ctx) {
		if field.Rules == "" {
			continue
		}
		if err := validatorUtil.VarCtx(ctx, data[field.Name], field.Rules); err != nil {
			return errors.Wrapf(err, "field %q of transition %q is invalid", field.Name, i.t.name)
		}
	}
	return nil
}

// Submit validates the data and executes the transition as one unit. The
// usual execution contract applies: state and permission are re-checked, the
// submit handler's error aborts with no state change, and the declared
// destination is committed once the handler returns nil.
func (i *Interactive) Submit(ctx context.Context, data map[string]any) error {
	if err := i.Validate(ctx, data); err != nil {
		return err
	}
	return i.t.run(ctx, i.w, func(ctx context.Context) error {
		if i.t.submit == nil {
			return nil
		}
		return i.t.submit(ctx, i.w, data)
	})
}
