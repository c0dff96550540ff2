package docflow

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newReviewDefinition declares pending -> draft as an interactive "return for
// review" transition that collects reviewer comments.
func newReviewDefinition(t *testing.T) *Definition {
	t.Helper()
	d := NewDefinition("review",
		WithStateField("Status"),
		WithPermissions(func(ctx context.Context) []string {
			perms, _ := ctx.Value(permsKey{}).([]string)
			return perms
		}),
	)
	draft, err := d.AddState("draft", 0, "Draft", "")
	require.NoError(t, err)
	pending, err := d.AddState("pending", 1, "Pending", "")
	require.NoError(t, err)

	_, err = pending.Transition(draft, TransitionSpec{
		Name:       "return_for_review",
		Title:      "Return for review",
		Permission: "can_return",
		Form: StaticForm(
			FormField{Name: "comments", Title: "Comments", Rules: "required,min=1"},
		),
		Submit: func(ctx context.Context, w *Workflow, data map[string]any) error {
			w.Document().(*testDoc).Comments = data["comments"].(string)
			return nil
		},
	})
	require.NoError(t, err)
	return d
}

func TestInteractiveTransition(t *testing.T) {
	d := newReviewDefinition(t)

	t.Run("wrong state refused at preparation", func(t *testing.T) {
		doc := &testDoc{Status: 0}
		w, _ := New(d, doc)
		_, err := w.Interactive(ctxWithPerms("can_return"), "return_for_review")
		assert.True(t, errors.Is(err, ErrTransition))
	})

	t.Run("missing permission refused at preparation", func(t *testing.T) {
		doc := &testDoc{Status: 1}
		w, _ := New(d, doc)
		_, err := w.Interactive(context.Background(), "return_for_review")
		assert.True(t, errors.Is(err, ErrPermission))
	})

	t.Run("form, validate, submit", func(t *testing.T) {
		ctx := ctxWithPerms("can_return")
		doc := &testDoc{Status: 1}
		w, _ := New(d, doc)

		it, err := w.Interactive(ctx, "return_for_review")
		require.NoError(t, err)

		form := it.Form(ctx)
		require.Len(t, form, 1)
		assert.Equal(t, "comments", form[0].Name)

		assert.Error(t, it.Validate(ctx, map[string]any{}))
		assert.Error(t, it.Validate(ctx, map[string]any{"comments": ""}))
		assert.NoError(t, it.Validate(ctx, map[string]any{"comments": "test comment"}))

		// Validation failures commit nothing.
		err = it.Submit(ctx, map[string]any{})
		require.Error(t, err)
		assert.Equal(t, 1, doc.Status)
		assert.Empty(t, doc.Comments)

		require.NoError(t, it.Submit(ctx, map[string]any{"comments": "test comment"}))
		assert.Equal(t, 0, doc.Status)
		assert.Equal(t, "test comment", doc.Comments)
	})

	t.Run("submit re-checks state", func(t *testing.T) {
		ctx := ctxWithPerms("can_return")
		doc := &testDoc{Status: 1}
		w, _ := New(d, doc)
		it, err := w.Interactive(ctx, "return_for_review")
		require.NoError(t, err)

		// Someone else moved the document between form and submit.
		doc.Status = 0
		err = it.Submit(ctx, map[string]any{"comments": "late"})
		assert.True(t, errors.Is(err, ErrTransition))
		assert.Empty(t, doc.Comments)
	})

	t.Run("custom validate wins over field rules", func(t *testing.T) {
		d2 := NewDefinition("custom", WithStateField("Status"))
		a, _ := d2.AddState("a", 1, "", "")
		b, _ := d2.AddState("b", 2, "", "")
		_, err := a.Transition(b, TransitionSpec{
			Name: "go",
			Validate: func(ctx context.Context, data map[string]any) error {
				if data["magic"] != true {
					return errors.New("no magic")
				}
				return nil
			},
			Submit: func(ctx context.Context, w *Workflow, data map[string]any) error { return nil },
		})
		require.NoError(t, err)

		doc := &testDoc{Status: 1}
		w, _ := New(d2, doc)
		it, err := w.Interactive(context.Background(), "go")
		require.NoError(t, err)
		assert.Error(t, it.Validate(context.Background(), map[string]any{}))
		require.NoError(t, it.Submit(context.Background(), map[string]any{"magic": true}))
		assert.Equal(t, 2, doc.Status)
	})

	t.Run("plain Execute refuses interactive transitions", func(t *testing.T) {
		doc := &testDoc{Status: 1}
		w, _ := New(d, doc)
		err := w.Apply(ctxWithPerms("can_return"), "return_for_review")
		assert.True(t, errors.Is(err, ErrConfiguration))
		assert.Equal(t, 1, doc.Status)
	})

	t.Run("non-interactive transitions cannot be prepared", func(t *testing.T) {
		d2 := NewDefinition("plain", WithStateField("Status"))
		a, _ := d2.AddState("a", 1, "", "")
		b, _ := d2.AddState("b", 2, "", "")
		a.Transition(b, TransitionSpec{Name: "go"})

		doc := &testDoc{Status: 1}
		w, _ := New(d2, doc)
		_, err := w.Interactive(context.Background(), "go")
		assert.True(t, errors.Is(err, ErrConfiguration))
	})
}
