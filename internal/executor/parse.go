package executor

import (
	"regexp"
	"strings"
)

// Framework-specific patterns for structured failure extraction. Kept
// deliberately coarse: triage only needs the kind and a location, the
// full output still travels with the report.
var (
	pyEnvPattern      = regexp.MustCompile(`(?m)^(?:E\s+)?(ModuleNotFoundError|ImportError|SyntaxError|IndentationError|NameError|AttributeError)(?::\s*(.*))?`)
	pyCollectPattern  = regexp.MustCompile(`(?m)^ERROR(?:S)?\s+collecting\b.*`)
	pyAssertPattern   = regexp.MustCompile(`(?m)^(?:E\s+)?(AssertionError.*|assert\b.*)$`)
	pyLocationPattern = regexp.MustCompile(`(?m)^(\S+\.py):(\d+)`)

	goBuildPattern    = regexp.MustCompile(`(?m)^(?:.*\.go:\d+:\d+: .*|# .*|.*\[build failed\])$`)
	goUndefined       = regexp.MustCompile(`(?m)undefined: \S+`)
	goFailPattern     = regexp.MustCompile(`(?m)^\s*--- FAIL: (\S+)`)
	goPanicPattern    = regexp.MustCompile(`(?m)^panic: .*`)
	goLocationPattern = regexp.MustCompile(`(?m)(\S+\.go):(\d+)`)

	signalPattern = regexp.MustCompile(`(?mi)(segmentation fault|killed|signal: \w+)`)
)

// extractFailure classifies a non-zero exit by inspecting the report's
// output with framework-specific patterns.
func extractFailure(framework string, r *Report) *Failure {
	out := r.Output()

	if m := signalPattern.FindString(out); m != "" {
		return &Failure{Kind: KindInfrastructure, Message: strings.TrimSpace(m)}
	}

	switch framework {
	case "gotest":
		return extractGoFailure(out)
	default:
		return extractPytestFailure(out)
	}
}

func extractPytestFailure(out string) *Failure {
	if m := pyEnvPattern.FindStringSubmatch(out); m != nil {
		f := &Failure{Kind: KindEnvironment, Message: strings.TrimSpace(m[0])}
		f.Location = firstLocation(pyLocationPattern, out)
		return f
	}
	if m := pyCollectPattern.FindString(out); m != "" {
		return &Failure{Kind: KindEnvironment, Message: strings.TrimSpace(m)}
	}
	if m := pyAssertPattern.FindString(out); m != "" {
		return &Failure{
			Kind:     KindAssertion,
			Message:  strings.TrimSpace(m),
			Location: firstLocation(pyLocationPattern, out),
		}
	}
	// pytest reports plain FAILED lines even when -tb hides the assert.
	if strings.Contains(out, "FAILED") {
		return &Failure{
			Kind:     KindAssertion,
			Message:  firstLineContaining(out, "FAILED"),
			Location: firstLocation(pyLocationPattern, out),
		}
	}
	return &Failure{Kind: KindInfrastructure, Message: "unrecognized test failure"}
}

func extractGoFailure(out string) *Failure {
	if m := goPanicPattern.FindString(out); m != "" {
		return &Failure{Kind: KindInfrastructure, Message: strings.TrimSpace(m)}
	}
	if m := goUndefined.FindString(out); m != "" {
		return &Failure{
			Kind:     KindEnvironment,
			Message:  m,
			Location: firstLocation(goLocationPattern, out),
		}
	}
	if goBuildPattern.MatchString(out) && !goFailPattern.MatchString(out) {
		return &Failure{
			Kind:     KindEnvironment,
			Message:  strings.TrimSpace(goBuildPattern.FindString(out)),
			Location: firstLocation(goLocationPattern, out),
		}
	}
	if m := goFailPattern.FindStringSubmatch(out); m != nil {
		return &Failure{
			Kind:     KindAssertion,
			Message:  "--- FAIL: " + m[1],
			Location: firstLocation(goLocationPattern, out),
		}
	}
	return &Failure{Kind: KindInfrastructure, Message: "unrecognized test failure"}
}

func firstLocation(pattern *regexp.Regexp, out string) string {
	if m := pattern.FindStringSubmatch(out); m != nil {
		return m[1] + ":" + m[2]
	}
	return ""
}

func firstLineContaining(out, substr string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, substr) {
			return strings.TrimSpace(line)
		}
	}
	return substr
}
