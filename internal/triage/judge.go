package triage

import (
	"context"
	"strings"

	"specter/internal/logging"
	"specter/internal/prompt"
)

// Verdict is the Judge's three-way ruling on an assertion failure.
type Verdict string

const (
	// VerdictTestWrong: the test's expectation is wrong. The only
	// verdict that permits mutating the test.
	VerdictTestWrong Verdict = "test-expectation-wrong"

	// VerdictSourceBug: the source under test is likely buggy. The
	// loop halts and alerts; the test is preserved as evidence.
	VerdictSourceBug Verdict = "source-likely-buggy"

	// VerdictInconclusive: no confident ruling. Treated like a source
	// bug for safety: halt and alert.
	VerdictInconclusive Verdict = "inconclusive"
)

// PermitsHealing reports whether the verdict allows test mutation.
func (v Verdict) PermitsHealing() bool {
	return v == VerdictTestWrong
}

// Completer is the slice of the gateway the Judge needs.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Judge arbitrates assertion failures through an LLM call.
type Judge struct {
	completer Completer
}

// NewJudge builds a Judge over a completer (normally the gateway).
func NewJudge(c Completer) *Judge {
	return &Judge{completer: c}
}

// Adjudicate rules on an assertion failure. The model's answer is
// parsed against a strict contract; anything unparseable is
// Inconclusive. Every invocation is logged with its ruling.
func (j *Judge) Adjudicate(ctx context.Context, req prompt.JudgeRequest) (Verdict, string, error) {
	system, user := prompt.Judge(req)
	out, err := j.completer.Complete(ctx, system, user)
	if err != nil {
		return VerdictInconclusive, "", err
	}

	verdict, reason := parseVerdict(out)
	logging.Judge("ruling for %s: %s (%s)", req.Unit.Path, verdict, reason)
	return verdict, reason, nil
}

// parseVerdict extracts the verdict and reason lines. The contract is
// strict: a VERDICT line naming one of the three tokens, else
// Inconclusive.
func parseVerdict(out string) (Verdict, string) {
	verdict := VerdictInconclusive
	reason := ""
	found := false

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "VERDICT:") && !found:
			token := strings.TrimSpace(strings.TrimPrefix(upper, "VERDICT:"))
			switch token {
			case "TEST_WRONG":
				verdict = VerdictTestWrong
				found = true
			case "SOURCE_BUG":
				verdict = VerdictSourceBug
				found = true
			case "INCONCLUSIVE":
				verdict = VerdictInconclusive
				found = true
			}
		case strings.HasPrefix(upper, "REASON:"):
			reason = strings.TrimSpace(line[len("REASON:"):])
		}
	}

	if !found {
		return VerdictInconclusive, "unparseable judge response"
	}
	return verdict, reason
}
