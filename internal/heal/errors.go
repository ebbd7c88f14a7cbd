package heal

import "errors"

// errBudget ends a session when one more heal attempt would exceed
// the configured maximum. The failing artifact is never executed again.
var errBudget = errors.New("heal attempt budget exhausted")

// errCancelled ends a session that was superseded by a newer event.
var errCancelled = errors.New("session cancelled")

// providerError wraps a gateway failure so finish can pick the right
// terminal verdict.
type providerError struct {
	err error
}

func (e *providerError) Error() string { return "provider: " + e.err.Error() }
func (e *providerError) Unwrap() error { return e.err }

// verdictFor maps a heal-path error to its terminal verdict string.
func verdictFor(err error) string {
	switch {
	case errors.Is(err, errBudget):
		return VerdictExhausted
	case errors.Is(err, errCancelled):
		return VerdictCancelled
	default:
		return VerdictProviderHalted
	}
}
