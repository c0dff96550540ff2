package docflow

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// Host-type bindings. Bind registers a definition against a document type so
// code holding only the document can obtain its workflow instance; the host
// type itself never learns about workflows. Multiple definitions may be
// bound to one type under distinct workflow names.
var (
	bindingsMu sync.Mutex
	bindings   = make(map[reflect.Type]map[string]*Definition)
)

func hostType(doc any) reflect.Type {
	t := reflect.TypeOf(doc)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Bind registers the definition against the prototype's type. Binding a
// second definition with the same workflow name to one type fails, so an
// accidental re-application cannot silently clobber an existing binding.
func Bind(def *Definition, prototype any) error {
	if def == nil {
		return errors.WithMessage(ErrConfiguration, "cannot bind a nil definition")
	}
	t := hostType(prototype)
	if t == nil {
		return def.mapErr(errors.WithMessage(ErrConfiguration, "cannot bind to a nil host prototype"))
	}
	bindingsMu.Lock()
	defer bindingsMu.Unlock()
	byName := bindings[t]
	if byName == nil {
		byName = make(map[string]*Definition)
		bindings[t] = byName
	}
	if _, ok := byName[def.name]; ok {
		return def.mapErr(errors.WithMessagef(ErrConfiguration,
			"host type %s already has a workflow named %q", t, def.name))
	}
	byName[def.name] = def
	return nil
}

// For returns the workflow instance for a document whose type has exactly
// one bound definition. With several bound workflows use ForName.
func For(doc any) (*Workflow, error) {
	t := hostType(doc)
	bindingsMu.Lock()
	byName := bindings[t]
	var only *Definition
	for _, d := range byName {
		if only != nil {
			only = nil
			break
		}
		only = d
	}
	n := len(byName)
	bindingsMu.Unlock()
	if n == 0 {
		return nil, errors.WithMessagef(ErrConfiguration, "host type %s has no bound workflow", t)
	}
	if only == nil {
		return nil, errors.WithMessagef(ErrConfiguration,
			"host type %s has %d bound workflows, use ForName", t, n)
	}
	return New(only, doc)
}

// ForName returns the instance of the named workflow for the document.
func ForName(doc any, workflow string) (*Workflow, error) {
	t := hostType(doc)
	bindingsMu.Lock()
	def := bindings[t][workflow]
	bindingsMu.Unlock()
	if def == nil {
		return nil, errors.WithMessagef(ErrConfiguration,
			"host type %s has no bound workflow named %q", t, workflow)
	}
	return New(def, doc)
}
