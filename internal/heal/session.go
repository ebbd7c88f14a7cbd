// Package heal drives the generate-execute-classify-repair loop for
// one source unit at a time. A Session is the state machine instance;
// the Orchestrator runs it; the Coordinator admits events into
// sessions under per-unit exclusivity.
package heal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the session state machine's position.
type State string

const (
	StateIdle        State = "idle"
	StateGenerating  State = "generating"
	StateExecuting   State = "executing"
	StateClassifying State = "classifying"
	StateHealing     State = "healing"
	StateJudging     State = "judging"

	// Terminal states.
	StateSucceeded         State = "succeeded"
	StateAttemptsExhausted State = "attempts_exhausted"
	StateHaltedAlert       State = "halted_alert"
	StateCancelled         State = "cancelled"
)

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateAttemptsExhausted, StateHaltedAlert, StateCancelled:
		return true
	}
	return false
}

// Transition records one state change for the session record.
type Transition struct {
	From      State
	To        State
	Note      string
	Timestamp time.Time
}

// TestArtifact is a generated test suite bound to the unit revision it
// was written against.
type TestArtifact struct {
	Content    string
	OutputPath string // project-relative suite path
	Revision   int    // monotonic per session
	UnitPath   string
	UnitHash   string
}

// Stale reports whether the unit content has moved past this artifact.
func (a *TestArtifact) Stale(currentHash string) bool {
	return a.UnitHash != currentHash
}

// Session is one healing run for one unit. Created by the coordinator
// before analysis so cancellation can land while the worker is still
// starting up.
type Session struct {
	ID       string
	UnitPath string

	mu           sync.Mutex
	unitHash     string
	state        State
	attempts     int
	infraRetries int
	artifact     *TestArtifact
	history      []Transition
	startedAt    time.Time

	cancelled atomic.Bool
}

// NewSession creates an idle session for a unit path.
func NewSession(unitPath string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UnitPath:  unitPath,
		state:     StateIdle,
		startedAt: time.Now(),
	}
}

// Cancel marks the session for cancellation. Checked between state
// transitions only; whatever is in flight finishes first.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts returns the heal-attempt counter.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// InfraRetries returns the infrastructure retry counter.
func (s *Session) InfraRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infraRetries
}

// Artifact returns the current test artifact, nil before generation.
func (s *Session) Artifact() *TestArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

// History returns a copy of the transition log.
func (s *Session) History() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transition{}, s.history...)
}

// Elapsed returns time since the session started.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.startedAt)
}

// transition records a state change.
func (s *Session) transition(to State, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Transition{
		From:      s.state,
		To:        to,
		Note:      note,
		Timestamp: time.Now(),
	})
	s.state = to
}

// bindUnit records the unit content hash once analysis has run.
func (s *Session) bindUnit(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unitHash = hash
}

// setArtifact installs a new artifact revision. The attempt counter is
// the caller's concern; this only tracks content.
func (s *Session) setArtifact(content, outputPath string) *TestArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev := 1
	if s.artifact != nil {
		rev = s.artifact.Revision + 1
	}
	s.artifact = &TestArtifact{
		Content:    content,
		OutputPath: outputPath,
		Revision:   rev,
		UnitPath:   s.UnitPath,
		UnitHash:   s.unitHash,
	}
	return s.artifact
}

// chargeAttempt increments the heal counter, returning the new value.
func (s *Session) chargeAttempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return s.attempts
}

// chargeInfraRetry increments the infrastructure counter.
func (s *Session) chargeInfraRetry() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infraRetries++
	return s.infraRetries
}
