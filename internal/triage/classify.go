// Package triage decides what a test run's outcome means for the
// healing loop: the Classifier maps execution reports onto a closed
// set of classes, and the Judge arbitrates assertion failures.
package triage

import (
	"specter/internal/executor"
)

// Class is the classifier's output. The set is closed; every report
// maps to exactly one class.
type Class string

const (
	// ClassSuccess: the suite passed.
	ClassSuccess Class = "success"

	// ClassEnvironment: the test artifact itself is broken (imports,
	// syntax, collection). Heals directly, never reaches the Judge.
	ClassEnvironment Class = "environment"

	// ClassAssertion: a real expectation-vs-actual mismatch. Goes to
	// the Judge before any heal.
	ClassAssertion Class = "assertion"

	// ClassInfrastructure: crash, timeout, signal, or unrecognized
	// output. Retried on its own budget, not charged to heal attempts.
	ClassInfrastructure Class = "infrastructure"
)

// Classify maps a report to its class. Decided purely from the
// report's structured failure, so identical reports always classify
// identically.
func Classify(r *executor.Report) Class {
	if r.Passed() {
		return ClassSuccess
	}
	if r.Failure == nil {
		return ClassInfrastructure
	}
	switch r.Failure.Kind {
	case executor.KindEnvironment:
		return ClassEnvironment
	case executor.KindAssertion:
		return ClassAssertion
	default:
		return ClassInfrastructure
	}
}
