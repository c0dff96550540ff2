package docflow

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	type report struct{ Status int }

	d := newArticleDefinition(t)
	require.NoError(t, Bind(d, (*report)(nil)))

	t.Run("bound documents resolve their workflow", func(t *testing.T) {
		doc := &report{Status: 0}
		w, err := For(doc)
		require.NoError(t, err)
		ok, err := w.Is("draft")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, w.Apply(context.Background(), "submit"))
		assert.Equal(t, 1, doc.Status)

		// Instances are transient wrappers; a fresh one sees the new state.
		w2, err := For(doc)
		require.NoError(t, err)
		ok, err = w2.Is("pending")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rebinding the same name fails", func(t *testing.T) {
		err := Bind(d.Extend("article"), (*report)(nil))
		assert.True(t, errors.Is(err, ErrConfiguration))
	})

	t.Run("distinct names coexist on one host type", func(t *testing.T) {
		second := NewDefinition("audit", WithStateField("Status"))
		_, err := second.AddState("open", 0, "", "")
		require.NoError(t, err)
		_, err = second.AddState("closed", 1, "", "")
		require.NoError(t, err)
		require.NoError(t, Bind(second, (*report)(nil)))

		doc := &report{Status: 0}
		_, err = For(doc)
		assert.True(t, errors.Is(err, ErrConfiguration), "ambiguous binding must be explicit")

		w, err := ForName(doc, "audit")
		require.NoError(t, err)
		assert.Equal(t, "audit", w.Definition().Name())

		w, err = ForName(doc, "article")
		require.NoError(t, err)
		assert.Equal(t, "article", w.Definition().Name())
	})

	t.Run("unbound type", func(t *testing.T) {
		type loose struct{ Status int }
		_, err := For(&loose{})
		assert.True(t, errors.Is(err, ErrConfiguration))
		_, err = ForName(&loose{}, "article")
		assert.True(t, errors.Is(err, ErrConfiguration))
	})
}
