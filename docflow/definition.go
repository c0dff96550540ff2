package docflow

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validatorUtil = validator.New()

// PermissionsFunc resolves the permission tokens granted to the caller in the
// given context. The context is opaque to the library: it is passed through
// unchanged from the caller of a transition down to this resolver.
type PermissionsFunc func(ctx context.Context) []string

// TransitionEvent is delivered to subscribers after every successful
// transition.
type TransitionEvent struct {
	Workflow   string
	Transition string
	Document   any
	From       any
	To         any
}

// Option configures a Definition at build time.
type Option func(*Definition)

// WithStateField stores the tracking value in the named struct field of the
// host document. The document must be a pointer to a struct for writes.
func WithStateField(field string) Option {
	return func(d *Definition) { d.accessor = &fieldAccessor{field: field} }
}

// WithStateKey stores the tracking value under the given key of a map
// document (map[string]any or *MapDocument).
func WithStateKey(key string) Option {
	return func(d *Definition) { d.accessor = &keyAccessor{key: key} }
}

// WithStateFuncs delegates state reads and writes to a caller-supplied
// get/set pair.
func WithStateFuncs(get func(doc any) (any, error), set func(doc any, value any) error) Option {
	return func(d *Definition) { d.accessor = &funcAccessor{get: get, set: set} }
}

// WithPermissions sets the definition's permission resolver. Without it the
// resolved permission set is always empty and every permission-gated
// transition is refused.
func WithPermissions(fn PermissionsFunc) Option {
	return func(d *Definition) { d.permissions = fn }
}

// WithErrorMapper substitutes the concrete errors the definition returns, so
// a host framework can surface its own error hierarchy. The mapper receives
// every configuration, transition and permission error before it is returned;
// the triggering conditions and the no-partial-commit guarantee are
// unaffected.
func WithErrorMapper(fn func(error) error) Option {
	return func(d *Definition) { d.errmap = fn }
}

// Definition is a reusable workflow template: named states, state groups and
// transitions accumulated through explicit declarations. Build it once at
// program start; afterwards it is treated as immutable and may be shared by
// any number of Workflow instances.
type Definition struct {
	name        string
	states      map[string]*State
	groups      map[string]*StateGroup
	byValue     map[any]*State
	ordered     []*State
	transitions []*Transition
	byTransName map[string]*Transition
	accessor    stateAccessor
	permissions PermissionsFunc
	errmap      func(error) error
	subscribers []func(ctx context.Context, ev TransitionEvent)
	nextOrder   int
}

// NewDefinition creates an empty workflow definition. The name distinguishes
// multiple workflows bound to one host type.
func NewDefinition(name string, opts ...Option) *Definition {
	d := &Definition{
		name:        name,
		states:      make(map[string]*State),
		groups:      make(map[string]*StateGroup),
		byValue:     make(map[any]*State),
		byTransName: make(map[string]*Transition),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Definition) Name() string { return d.name }

func (d *Definition) String() string {
	return fmt.Sprintf("<Workflow %s>", d.name)
}

// AddState declares a state with the given tracking value. The value must be
// comparable and unique within the definition; names are shared between
// states and groups and must be unique too.
func (d *Definition) AddState(name string, value any, title, description string) (*State, error) {
	if name == "" {
		return nil, d.mapErr(errors.WithMessage(ErrConfiguration, "state name is empty"))
	}
	if !isComparable(value) {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration,
			"state %q has a non-comparable tracking value %v", name, value))
	}
	if _, ok := d.states[name]; ok {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration, "state %q already declared", name))
	}
	if _, ok := d.groups[name]; ok {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration, "name %q already declared as a state group", name))
	}
	if prev, ok := d.byValue[value]; ok {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration,
			"tracking value %v already used by state %q", value, prev.name))
	}
	s := &State{
		def:         d,
		name:        name,
		value:       value,
		title:       title,
		description: description,
		order:       d.nextOrder,
	}
	d.nextOrder++
	d.states[name] = s
	d.byValue[value] = s
	d.ordered = append(d.ordered, s)
	return s, nil
}

// AddGroup declares a state group over the given members. A member may be a
// *State or a raw tracking value; either way only the tracking value is
// recorded. Membership against declared states is validated lazily when the
// group is tested, so forward references are fine.
func (d *Definition) AddGroup(name string, members []any, title, description string) (*StateGroup, error) {
	if name == "" {
		return nil, d.mapErr(errors.WithMessage(ErrConfiguration, "state group name is empty"))
	}
	if _, ok := d.groups[name]; ok {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration, "state group %q already declared", name))
	}
	if _, ok := d.states[name]; ok {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration, "name %q already declared as a state", name))
	}
	values := make([]any, 0, len(members))
	for _, m := range members {
		v := m
		if st, ok := m.(*State); ok {
			v = st.value
		}
		if !isComparable(v) {
			return nil, d.mapErr(errors.WithMessagef(ErrConfiguration,
				"state group %q has a non-comparable member %v", name, v))
		}
		values = append(values, v)
	}
	g := &StateGroup{
		def:         d,
		name:        name,
		values:      values,
		title:       title,
		description: description,
	}
	d.groups[name] = g
	return g, nil
}

// AddTransition registers a transition from the given source states to the
// given destinations. State.Transition and State.TransitionFrom are
// shorthands for the common single-source and single-destination forms;
// declaring more than one destination requires the handler to set the state
// itself (see Handler).
func (d *Definition) AddTransition(from, to []*State, spec TransitionSpec) (*Transition, error) {
	if err := validatorUtil.Struct(&spec); err != nil {
		return nil, d.mapErr(errors.Wrapf(ErrConfiguration, "invalid transition spec: %v", err))
	}
	if len(from) == 0 {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration, "transition %q has no source states", spec.Name))
	}
	if len(to) == 0 {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration, "transition %q has no destination states", spec.Name))
	}
	if _, ok := d.byTransName[spec.Name]; ok {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration, "transition %q already declared", spec.Name))
	}
	if spec.Handler != nil && spec.Submit != nil {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration,
			"transition %q declares both Handler and Submit", spec.Name))
	}
	fromValues := make(map[any]struct{}, len(from))
	for _, s := range from {
		if s == nil {
			return nil, d.mapErr(errors.WithMessagef(ErrConfiguration, "transition %q has a nil source state", spec.Name))
		}
		if s.def != d {
			return nil, d.mapErr(errors.WithMessagef(ErrConfiguration,
				"transition %q source state %q belongs to workflow %q, not %q", spec.Name, s.name, s.def.name, d.name))
		}
		fromValues[s.value] = struct{}{}
	}
	for _, s := range to {
		if s == nil {
			return nil, d.mapErr(errors.WithMessagef(ErrConfiguration, "transition %q has a nil destination state", spec.Name))
		}
		if s.def != d {
			return nil, d.mapErr(errors.WithMessagef(ErrConfiguration,
				"transition %q destination state %q belongs to workflow %q, not %q", spec.Name, s.name, s.def.name, d.name))
		}
	}
	t := &Transition{
		def:         d,
		name:        spec.Name,
		title:       spec.Title,
		description: spec.Description,
		permission:  spec.Permission,
		from:        append([]*State(nil), from...),
		fromValues:  fromValues,
		to:          append([]*State(nil), to...),
		handler:     spec.Handler,
		form:        spec.Form,
		validate:    spec.Validate,
		submit:      spec.Submit,
		order:       len(d.transitions),
	}
	d.transitions = append(d.transitions, t)
	d.byTransName[spec.Name] = t
	return t, nil
}

// Extend creates a child definition that inherits every state, group and
// transition of the parent, in the parent's declaration order. States added
// to the child are appended after the inherited ones. Accessor, permission
// resolver and error mapper are inherited unless overridden by opts; an
// accessor option fully replaces the parent's choice. Subscribers registered
// on the parent before Extend are carried over; later registrations on
// either side stay local. Adding a child state
// that reuses an inherited tracking value fails like any other duplicate.
func (d *Definition) Extend(name string, opts ...Option) *Definition {
	child := &Definition{
		name:        name,
		states:      make(map[string]*State, len(d.states)),
		groups:      make(map[string]*StateGroup, len(d.groups)),
		byValue:     make(map[any]*State, len(d.byValue)),
		byTransName: make(map[string]*Transition, len(d.byTransName)),
		accessor:    d.accessor,
		permissions: d.permissions,
		errmap:      d.errmap,
		subscribers: append(([]func(ctx context.Context, ev TransitionEvent))(nil), d.subscribers...),
		nextOrder:   d.nextOrder,
	}
	for _, s := range d.ordered {
		cp := &State{
			def:         child,
			name:        s.name,
			value:       s.value,
			title:       s.title,
			description: s.description,
			order:       s.order,
		}
		child.states[cp.name] = cp
		child.byValue[cp.value] = cp
		child.ordered = append(child.ordered, cp)
	}
	for _, g := range d.groups {
		child.groups[g.name] = &StateGroup{
			def:         child,
			name:        g.name,
			values:      append([]any(nil), g.values...),
			title:       g.title,
			description: g.description,
		}
	}
	for _, t := range d.transitions {
		from := make([]*State, len(t.from))
		fromValues := make(map[any]struct{}, len(t.from))
		for i, s := range t.from {
			from[i] = child.states[s.name]
			fromValues[s.value] = struct{}{}
		}
		to := make([]*State, len(t.to))
		for i, s := range t.to {
			to[i] = child.states[s.name]
		}
		cp := &Transition{
			def:         child,
			name:        t.name,
			title:       t.title,
			description: t.description,
			permission:  t.permission,
			from:        from,
			fromValues:  fromValues,
			to:          to,
			handler:     t.handler,
			form:        t.form,
			validate:    t.validate,
			submit:      t.submit,
			order:       t.order,
		}
		child.transitions = append(child.transitions, cp)
		child.byTransName[cp.name] = cp
	}
	for _, opt := range opts {
		opt(child)
	}
	return child
}

// States returns every declared state in declaration order, inherited states
// first.
func (d *Definition) States() []*State {
	out := make([]*State, len(d.ordered))
	copy(out, d.ordered)
	return out
}

// State looks up a state by name.
func (d *Definition) State(name string) (*State, bool) {
	s, ok := d.states[name]
	return s, ok
}

// Group looks up a state group by name.
func (d *Definition) Group(name string) (*StateGroup, bool) {
	g, ok := d.groups[name]
	return g, ok
}

// Transitions returns every declared transition in declaration order.
func (d *Definition) Transitions() []*Transition {
	out := make([]*Transition, len(d.transitions))
	copy(out, d.transitions)
	return out
}

// Transition looks up a transition by name.
func (d *Definition) Transition(name string) (*Transition, bool) {
	t, ok := d.byTransName[name]
	return t, ok
}

// Permissions resolves the caller's permission tokens. Without a configured
// resolver the set is empty.
func (d *Definition) Permissions(ctx context.Context) []string {
	if d.permissions == nil {
		return nil
	}
	return d.permissions(ctx)
}

// Subscribe registers a hook called after every successful transition on any
// workflow instance of this definition. Register subscribers at build time;
// the subscriber list is not safe for mutation once instances are running.
func (d *Definition) Subscribe(fn func(ctx context.Context, ev TransitionEvent)) {
	d.subscribers = append(d.subscribers, fn)
}

func (d *Definition) notify(ctx context.Context, ev TransitionEvent) {
	for _, fn := range d.subscribers {
		fn(ctx, ev)
	}
}

// SortDocuments buckets the given documents by the name of their current
// state. Every declared state appears in the result, empty states included.
func (d *Definition) SortDocuments(docs []any) (map[string][]any, error) {
	out := make(map[string][]any, len(d.ordered))
	for _, s := range d.ordered {
		out[s.name] = []any{}
	}
	for _, doc := range docs {
		raw, err := d.readState(doc)
		if err != nil {
			return nil, err
		}
		s, err := d.stateForValue(raw)
		if err != nil {
			return nil, err
		}
		out[s.name] = append(out[s.name], doc)
	}
	return out, nil
}

// stateForValue reverse-maps a raw tracking value to its declared state.
func (d *Definition) stateForValue(raw any) (*State, error) {
	if !isComparable(raw) {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration,
			"document state value %v is not comparable", raw))
	}
	s, ok := d.byValue[raw]
	if !ok {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration,
			"document state value %v matches no declared state of workflow %q", raw, d.name))
	}
	return s, nil
}

func (d *Definition) readState(doc any) (any, error) {
	if d.accessor == nil {
		return nil, d.mapErr(errors.WithMessagef(ErrConfiguration,
			"workflow %q has no state accessor configured", d.name))
	}
	raw, err := d.accessor.read(doc)
	if err != nil {
		return nil, d.mapErr(err)
	}
	return raw, nil
}

func (d *Definition) writeState(doc any, value any) error {
	if d.accessor == nil {
		return d.mapErr(errors.WithMessagef(ErrConfiguration,
			"workflow %q has no state accessor configured", d.name))
	}
	if err := d.accessor.write(doc, value); err != nil {
		return d.mapErr(err)
	}
	return nil
}

func (d *Definition) mapErr(err error) error {
	if err == nil || d.errmap == nil {
		return err
	}
	return d.errmap(err)
}
