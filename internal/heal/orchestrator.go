package heal

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"specter/internal/analyze"
	"specter/internal/config"
	"specter/internal/executor"
	"specter/internal/logging"
	"specter/internal/prompt"
	"specter/internal/triage"
)

// Generator is the slice of the provider gateway the loop needs.
type Generator interface {
	Generate(ctx context.Context, req prompt.GenerateRequest) (string, error)
	Heal(ctx context.Context, req prompt.HealRequest) (string, error)
}

// TestExecutor runs a suite and reports. The runner implements it.
type TestExecutor interface {
	Execute(ctx context.Context, relPath string, content []byte) (*executor.Report, error)
}

// Arbiter rules on assertion failures. The judge implements it.
type Arbiter interface {
	Adjudicate(ctx context.Context, req prompt.JudgeRequest) (triage.Verdict, string, error)
}

// Summary is the terminal record of one session, emitted exactly once.
type Summary struct {
	SessionID    string
	UnitPath     string
	Verdict      string // healed | attempts-exhausted | judge-halted | cancelled | provider-halted
	Rationale    string
	Attempts     int
	InfraRetries int
	Elapsed      time.Duration
	History      []Transition
}

// SummarySink receives every terminal summary. The store adapter
// implements it; nil disables persistence.
type SummarySink interface {
	Record(ctx context.Context, s Summary) error
}

// AlertSink is notified on the escalating terminals only.
type AlertSink interface {
	Alert(ctx context.Context, s Summary)
}

// Terminal verdict strings.
const (
	VerdictHealed         = "healed"
	VerdictExhausted      = "attempts-exhausted"
	VerdictJudgeHalted    = "judge-halted"
	VerdictCancelled      = "cancelled"
	VerdictProviderHalted = "provider-halted"

	// VerdictSkipped is alerted, never stored: the unit was not
	// admitted into a session because its content does not parse.
	VerdictSkipped = "skipped-unparseable"
)

// Orchestrator runs healing sessions.
type Orchestrator struct {
	root      string
	cfg       *config.Config
	graph     *analyze.ContextGraph
	tree      func() string
	gen       Generator
	exec      TestExecutor
	judge     Arbiter
	summaries SummarySink
	alerts    AlertSink
}

// NewOrchestrator wires the loop. summaries and alerts may be nil.
func NewOrchestrator(root string, cfg *config.Config, graph *analyze.ContextGraph, tree func() string,
	gen Generator, exec TestExecutor, judge Arbiter, summaries SummarySink, alerts AlertSink) *Orchestrator {
	return &Orchestrator{
		root:      root,
		cfg:       cfg,
		graph:     graph,
		tree:      tree,
		gen:       gen,
		exec:      exec,
		judge:     judge,
		summaries: summaries,
		alerts:    alerts,
	}
}

// RunSession drives one session to a terminal state and returns its
// summary. The session's test file is only ever mutated on the healing
// path, which is reachable solely from an environment classification
// or a test-expectation-wrong ruling.
func (o *Orchestrator) RunSession(ctx context.Context, session *Session, unit *analyze.SourceUnit, source string) Summary {
	session.bindUnit(unit.ContentHash)
	outputPath := o.outputPath(unit)

	genReq := prompt.GenerateRequest{
		Unit:         unit,
		Source:       source,
		Neighborhood: o.graph.Neighborhood(unit.Path, o.cfg.Heal.GraphDepth),
		Framework:    o.cfg.Tests.Framework,
		ExistingTest: o.readExisting(outputPath),
	}
	if o.tree != nil {
		genReq.ProjectTree = o.tree()
	}

	if session.Cancelled() {
		return o.finish(ctx, session, VerdictCancelled, "superseded before generation")
	}
	session.transition(StateGenerating, "")
	logging.Heal("session %s: generating suite for %s", session.ID, unit.Path)

	content, err := o.gen.Generate(ctx, genReq)
	if err != nil {
		return o.finish(ctx, session, VerdictProviderHalted, "generation failed: "+err.Error())
	}
	artifact := session.setArtifact(content, outputPath)

	for {
		if session.Cancelled() {
			return o.finish(ctx, session, VerdictCancelled, "superseded mid-session")
		}

		session.transition(StateExecuting, revNote(artifact))
		report, err := o.exec.Execute(ctx, artifact.OutputPath, []byte(artifact.Content))
		if err != nil {
			if o.chargeInfra(session, "executor: "+err.Error()) {
				continue
			}
			return o.finish(ctx, session, VerdictExhausted, "infrastructure retries exhausted: "+err.Error())
		}

		session.transition(StateClassifying, "")
		class := triage.Classify(report)
		logging.HealDebug("session %s: %s classified %s (exit=%d)", session.ID, artifact.OutputPath, class, report.ExitCode)

		switch class {
		case triage.ClassSuccess:
			return o.finish(ctx, session, VerdictHealed, "")

		case triage.ClassInfrastructure:
			msg := "infrastructure failure"
			if report.Failure != nil {
				msg = report.Failure.Message
			}
			if o.chargeInfra(session, msg) {
				continue
			}
			return o.finish(ctx, session, VerdictExhausted, "infrastructure retries exhausted: "+msg)

		case triage.ClassEnvironment:
			// Broken artifact, not a disputed expectation. Heal
			// directly, the Judge never sees these.
			artifact, err = o.healArtifact(ctx, session, genReq, artifact, report)
			if err != nil {
				return o.finish(ctx, session, verdictFor(err), err.Error())
			}

		case triage.ClassAssertion:
			if session.Cancelled() {
				return o.finish(ctx, session, VerdictCancelled, "superseded before judgement")
			}
			session.transition(StateJudging, "")
			verdict, reason, err := o.judge.Adjudicate(ctx, prompt.JudgeRequest{
				Unit:        unit,
				Source:      source,
				TestContent: artifact.Content,
				Report:      report,
			})
			if err != nil {
				return o.finish(ctx, session, VerdictProviderHalted, "judge failed: "+err.Error())
			}
			if !verdict.PermitsHealing() {
				return o.finish(ctx, session, VerdictJudgeHalted,
					string(verdict)+": "+reason)
			}
			artifact, err = o.healArtifact(ctx, session, genReq, artifact, report)
			if err != nil {
				return o.finish(ctx, session, verdictFor(err), err.Error())
			}
		}
	}
}

// healArtifact charges one attempt and asks for a repaired suite.
// Returns errBudget when the attempt would exceed the budget.
func (o *Orchestrator) healArtifact(ctx context.Context, session *Session, genReq prompt.GenerateRequest,
	artifact *TestArtifact, report *executor.Report) (*TestArtifact, error) {
	if session.Cancelled() {
		return nil, errCancelled
	}
	if session.Attempts()+1 > o.cfg.Heal.MaxAttempts {
		return nil, errBudget
	}
	attempt := session.chargeAttempt()
	session.transition(StateHealing, revNote(artifact))
	logging.Heal("session %s: heal attempt %d/%d for %s", session.ID, attempt, o.cfg.Heal.MaxAttempts, session.UnitPath)

	content, err := o.gen.Heal(ctx, prompt.HealRequest{
		GenerateRequest: genReq,
		TestContent:     artifact.Content,
		Report:          report,
	})
	if err != nil {
		return nil, &providerError{err}
	}
	return session.setArtifact(content, artifact.OutputPath), nil
}

// chargeInfra consumes one infrastructure retry. Returns false when
// the budget is spent.
func (o *Orchestrator) chargeInfra(session *Session, msg string) bool {
	n := session.chargeInfraRetry()
	if n > o.cfg.Heal.InfraRetries {
		return false
	}
	logging.Heal("session %s: infrastructure retry %d/%d: %s", session.ID, n, o.cfg.Heal.InfraRetries, msg)
	return true
}

// finish moves the session to its terminal state and emits the
// summary and, for escalating terminals, the alert. Exactly once per
// session by construction: every return path of RunSession funnels
// through here.
func (o *Orchestrator) finish(ctx context.Context, session *Session, verdict, rationale string) Summary {
	switch verdict {
	case VerdictHealed:
		session.transition(StateSucceeded, "")
	case VerdictExhausted:
		session.transition(StateAttemptsExhausted, rationale)
	case VerdictCancelled:
		session.transition(StateCancelled, rationale)
	default:
		session.transition(StateHaltedAlert, rationale)
	}

	summary := Summary{
		SessionID:    session.ID,
		UnitPath:     session.UnitPath,
		Verdict:      verdict,
		Rationale:    rationale,
		Attempts:     session.Attempts(),
		InfraRetries: session.InfraRetries(),
		Elapsed:      session.Elapsed(),
		History:      session.History(),
	}

	if verdict == VerdictHealed {
		logging.HealDebug("session %s: %s healed in %v (%d attempts)", session.ID, session.UnitPath, summary.Elapsed, summary.Attempts)
	} else {
		logging.Heal("session %s: %s finished %s: %s", session.ID, session.UnitPath, verdict, rationale)
	}

	if o.summaries != nil {
		if err := o.summaries.Record(ctx, summary); err != nil {
			logging.Get(logging.CategoryHeal).Error("record summary for %s: %v", session.UnitPath, err)
		}
	}
	if o.alerts != nil && (verdict == VerdictJudgeHalted || verdict == VerdictExhausted || verdict == VerdictProviderHalted) {
		o.alerts.Alert(ctx, summary)
	}
	return summary
}

// outputPath names the generated suite for a unit.
func (o *Orchestrator) outputPath(unit *analyze.SourceUnit) string {
	stem := strings.TrimSuffix(unit.Path, filepath.Ext(unit.Path))
	if unit.Language == "go" {
		return stem + "_gen_test.go"
	}
	flat := strings.ReplaceAll(stem, "/", "_")
	return filepath.ToSlash(filepath.Join(o.cfg.Tests.Dir, "test_"+flat+".py"))
}

// readExisting returns the previous suite content, if any.
func (o *Orchestrator) readExisting(relPath string) string {
	data, err := os.ReadFile(filepath.Join(o.root, filepath.FromSlash(relPath)))
	if err != nil {
		return ""
	}
	return string(data)
}

func revNote(a *TestArtifact) string {
	if a == nil {
		return ""
	}
	return "rev " + strconv.Itoa(a.Revision)
}
