// Package prompt assembles the system/user prompt pairs sent through
// the provider gateway. All assembly is deterministic string building;
// no provider types leak in here.
package prompt

import (
	"fmt"
	"strings"

	"specter/internal/analyze"
	"specter/internal/executor"
)

// GenerateRequest carries everything needed to ask for a test suite.
type GenerateRequest struct {
	Unit         *analyze.SourceUnit
	Source       string
	Neighborhood []*analyze.SourceUnit
	ProjectTree  string
	Framework    string
	ExistingTest string // previous suite content, empty for first generation
}

// HealRequest extends a generation request with failure evidence.
type HealRequest struct {
	GenerateRequest
	TestContent string
	Report      *executor.Report
}

// JudgeRequest carries the evidence for an assertion-failure verdict.
type JudgeRequest struct {
	Unit        *analyze.SourceUnit
	Source      string
	TestContent string
	Report      *executor.Report
}

const generationSystem = `You are an expert test engineer. You write focused, deterministic
unit tests for the file you are shown. Respond with the complete test
file content only. No explanations, no markdown fences.`

// Generation builds the prompt pair for a fresh or updated suite.
func Generation(req GenerateRequest) (string, string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a %s test suite for the file %s.\n\n", frameworkName(req.Framework), req.Unit.Path)
	fmt.Fprintf(&b, "Structural summary:\n%s\n\n", req.Unit.Summary())
	fmt.Fprintf(&b, "Source:\n%s\n", fenced(req.Source))

	writeNeighborhood(&b, req.Neighborhood)

	if req.ProjectTree != "" {
		fmt.Fprintf(&b, "\nProject layout:\n%s\n", req.ProjectTree)
	}
	if req.ExistingTest != "" {
		fmt.Fprintf(&b, "\nAn earlier suite exists. Update it to match the current source, keeping tests that still apply:\n%s\n", fenced(req.ExistingTest))
	}

	b.WriteString("\nCover every public function and method. Test edge cases where the structure suggests them. Only test behavior visible from the source shown. Output the complete test file.")
	return generationSystem, b.String()
}

const healSystem = `You are an expert test engineer repairing a broken test file.
The source under test is correct; only the test file may change.
Respond with the complete corrected test file content only. No
explanations, no markdown fences.`

// Healing builds the prompt pair for a repair attempt.
func Healing(req HealRequest) (string, string) {
	var b strings.Builder

	fmt.Fprintf(&b, "The %s suite for %s failed. Fix the test file.\n\n", frameworkName(req.Framework), req.Unit.Path)
	fmt.Fprintf(&b, "Source under test (do not change it, it is correct):\n%s\n", fenced(req.Source))
	fmt.Fprintf(&b, "\nFailing test file:\n%s\n", fenced(req.TestContent))
	fmt.Fprintf(&b, "\nFailure output:\n%s\n", fenced(trimOutput(req.Report.Output())))

	if req.Report.Failure != nil && req.Report.Failure.Location != "" {
		fmt.Fprintf(&b, "\nFailure location: %s\n", req.Report.Failure.Location)
	}
	writeNeighborhood(&b, req.Neighborhood)

	b.WriteString("\nOutput the complete corrected test file.")
	return healSystem, b.String()
}

const judgeSystem = `You are an impartial software engineering judge. A test failed with
an assertion error. Decide whether the test's expectation is wrong or
the source code has a bug. Answer in exactly two lines:
VERDICT: TEST_WRONG or VERDICT: SOURCE_BUG or VERDICT: INCONCLUSIVE
REASON: one sentence.`

// Judge builds the prompt pair for verdict arbitration.
func Judge(req JudgeRequest) (string, string) {
	var b strings.Builder

	fmt.Fprintf(&b, "File under test: %s\n\n", req.Unit.Path)
	fmt.Fprintf(&b, "Source:\n%s\n", fenced(req.Source))
	fmt.Fprintf(&b, "\nTest file:\n%s\n", fenced(req.TestContent))
	fmt.Fprintf(&b, "\nFailure output:\n%s\n", fenced(trimOutput(req.Report.Output())))
	b.WriteString("\nIs the test's expectation wrong, or does the source have a bug?")
	return judgeSystem, b.String()
}

// CleanResponse strips markdown code fences the model may wrap around
// file content despite instructions.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	// Drop the opening fence with its optional language tag.
	lines = lines[1:]
	// Drop everything from the closing fence on.
	for i, line := range lines {
		if strings.TrimSpace(line) == "```" {
			lines = lines[:i]
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func writeNeighborhood(b *strings.Builder, hood []*analyze.SourceUnit) {
	if len(hood) == 0 {
		return
	}
	b.WriteString("\nRelated project files (summaries):\n")
	for _, u := range hood {
		fmt.Fprintf(b, "- %s\n  %s\n", u.Path, strings.ReplaceAll(u.Summary(), "\n", "\n  "))
	}
}

func frameworkName(fw string) string {
	switch fw {
	case "gotest":
		return "Go (go test)"
	case "", "pytest":
		return "pytest"
	}
	return fw
}

func fenced(s string) string {
	return "```\n" + strings.TrimRight(s, "\n") + "\n```"
}

// trimOutput bounds failure evidence so prompts stay within reason.
func trimOutput(s string) string {
	const max = 8 * 1024
	if len(s) <= max {
		return s
	}
	return s[:max/2] + "\n[... output elided ...]\n" + s[len(s)-max/2:]
}
