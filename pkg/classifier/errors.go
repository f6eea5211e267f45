package classifier

import "errors"

// Classifier errors. Failures of the base reasoner are reported with the
// reasoner error kinds (reasoner.ErrInconsistent, reasoner.ErrInterrupted,
// ...) and can be told apart with errors.Is.
var (
	// ErrUnsupported is returned for an anonymous class expression where only
	// named classes are accepted.
	ErrUnsupported = errors.New("classifier: only named classes are supported")

	// ErrIllegalConfiguration is returned for an invalid configuration or an
	// unreadable snapshot.
	ErrIllegalConfiguration = errors.New("classifier: illegal configuration")

	// ErrInvariantViolation reports an internal inconsistency while building
	// or splicing a hierarchy. The hierarchy is discarded and the next
	// classification starts from scratch.
	ErrInvariantViolation = errors.New("classifier: internal invariant violated")

	// ErrDisposed is returned by every call after Dispose.
	ErrDisposed = errors.New("classifier: disposed")
)
