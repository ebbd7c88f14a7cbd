package executor

import "time"

// FailureKind partitions failures into the three families the triage
// layer acts on. The set is closed; parsing that matches nothing falls
// back to KindInfrastructure so an unknown failure is retried, not
// healed blindly.
type FailureKind string

const (
	// KindEnvironment covers failures of the test artifact itself:
	// missing imports, syntax errors, collection errors.
	KindEnvironment FailureKind = "environment"

	// KindAssertion covers real test failures: an assertion compared
	// expected against actual and lost.
	KindAssertion FailureKind = "assertion"

	// KindInfrastructure covers crashes, timeouts, signals, and
	// anything unrecognized.
	KindInfrastructure FailureKind = "infrastructure"
)

// Failure is the structured finding extracted from a failed run.
type Failure struct {
	Kind     FailureKind
	Message  string
	Location string // "file:line" where extractable
}

// Report is the immutable record of one test process invocation.
type Report struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	Truncated bool
	Duration  time.Duration
	StartedAt time.Time
	Timeout   bool
	Failure   *Failure // nil on success
}

// Passed reports a clean run.
func (r *Report) Passed() bool {
	return r.ExitCode == 0 && !r.Timeout
}

// Output joins both streams for prompt evidence.
func (r *Report) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}
