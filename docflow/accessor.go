package docflow

import (
	"reflect"

	"github.com/pkg/errors"
)

// stateAccessor is the single read/write capability behind a definition's
// state field. Exactly one of the three variants (struct field, map key,
// get/set function pair) is chosen at definition build time.
type stateAccessor interface {
	read(doc any) (any, error)
	write(doc any, value any) error
}

type fieldAccessor struct {
	field string
}

func (a *fieldAccessor) read(doc any) (any, error) {
	v := reflect.Indirect(reflect.ValueOf(doc))
	if !v.IsValid() {
		return nil, errors.WithMessagef(ErrConfiguration, "document is nil, cannot read field %q", a.field)
	}
	if v.Kind() != reflect.Struct {
		return nil, errors.WithMessagef(ErrConfiguration,
			"document of type %T is not a struct, cannot read field %q", doc, a.field)
	}
	fv := v.FieldByName(a.field)
	if !fv.IsValid() {
		return nil, errors.WithMessagef(ErrConfiguration,
			"document of type %T has no field %q", doc, a.field)
	}
	if !fv.CanInterface() {
		return nil, errors.WithMessagef(ErrConfiguration,
			"field %q of document type %T is not exported", a.field, doc)
	}
	return fv.Interface(), nil
}

func (a *fieldAccessor) write(doc any, value any) error {
	v := reflect.ValueOf(doc)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return errors.WithMessagef(ErrConfiguration,
			"document of type %T must be a non-nil pointer to write field %q", doc, a.field)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return errors.WithMessagef(ErrConfiguration,
			"document of type %T is not a struct, cannot write field %q", doc, a.field)
	}
	fv := v.FieldByName(a.field)
	if !fv.IsValid() {
		return errors.WithMessagef(ErrConfiguration,
			"document of type %T has no field %q", doc, a.field)
	}
	if !fv.CanSet() {
		return errors.WithMessagef(ErrConfiguration,
			"field %q of document type %T is not settable", a.field, doc)
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	if !rv.Type().AssignableTo(fv.Type()) {
		if !rv.Type().ConvertibleTo(fv.Type()) {
			return errors.WithMessagef(ErrConfiguration,
				"state value of type %T cannot be stored in field %q of type %s", value, a.field, fv.Type())
		}
		rv = rv.Convert(fv.Type())
	}
	fv.Set(rv)
	return nil
}

type keyAccessor struct {
	key string
}

func (a *keyAccessor) read(doc any) (any, error) {
	switch m := doc.(type) {
	case map[string]any:
		v, ok := m[a.key]
		if !ok {
			return nil, errors.WithMessagef(ErrConfiguration, "document has no key %q", a.key)
		}
		return v, nil
	case *MapDocument:
		v, ok := m.Get(a.key)
		if !ok {
			return nil, errors.WithMessagef(ErrConfiguration, "document has no key %q", a.key)
		}
		return v, nil
	default:
		return nil, errors.WithMessagef(ErrConfiguration,
			"document of type %T is not a map document, cannot read key %q", doc, a.key)
	}
}

func (a *keyAccessor) write(doc any, value any) error {
	switch m := doc.(type) {
	case map[string]any:
		m[a.key] = value
		return nil
	case *MapDocument:
		return m.Set([]string{a.key}, value)
	default:
		return errors.WithMessagef(ErrConfiguration,
			"document of type %T is not a map document, cannot write key %q", doc, a.key)
	}
}

type funcAccessor struct {
	get func(doc any) (any, error)
	set func(doc any, value any) error
}

func (a *funcAccessor) read(doc any) (any, error) {
	if a.get == nil {
		return nil, errors.WithMessage(ErrConfiguration, "state get function is nil")
	}
	return a.get(doc)
}

func (a *funcAccessor) write(doc any, value any) error {
	if a.set == nil {
		return errors.WithMessage(ErrConfiguration, "state set function is nil")
	}
	return a.set(doc, value)
}

// isComparable reports whether v can be used as a tracking value: a non-nil
// value whose dynamic type supports ==.
func isComparable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Comparable()
}
