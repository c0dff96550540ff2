package docflow

import "github.com/pkg/errors"

var (
	// ErrConfiguration reports a malformed definition or binding: no state
	// accessor configured, a duplicate tracking value, a transition attached
	// to a state group, a host type that is already bound, or a document
	// whose raw state value matches no declared state.
	ErrConfiguration = errors.New("workflow configuration error")
	// ErrTransition reports a transition invoked while the document is not
	// in one of the transition's declared source states.
	ErrTransition = errors.New("transition not allowed from current state")
	// ErrPermission reports a transition invoked without the required
	// permission token in the resolved permission set.
	ErrPermission = errors.New("permission not available")
	// ErrVeto is the cause of errors returned by Veto. Handlers return it to
	// abort a transition after the state and permission checks have passed;
	// the document state is left unchanged.
	ErrVeto = errors.New("transition vetoed by handler")
)

// Veto builds an error a handler returns to abort an in-progress transition.
// The returned error satisfies errors.Is(err, ErrVeto).
func Veto(format string, args ...any) error {
	return errors.WithMessagef(ErrVeto, format, args...)
}

// IsConfigurationError reports whether err was caused by a malformed
// definition or binding.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
