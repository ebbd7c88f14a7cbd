// Package executor runs generated test suites in isolated processes
// and turns their output into structured reports. Artifacts are
// written atomically so a crash mid-write never leaves a torn file for
// the test framework to pick up.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"specter/internal/config"
	"specter/internal/logging"
)

// Runner executes test suites under the project root.
type Runner struct {
	root string
	cfg  config.TestsConfig
}

// NewRunner builds a runner from the tests config section.
func NewRunner(root string, cfg config.TestsConfig) *Runner {
	return &Runner{root: root, cfg: cfg}
}

// WriteArtifact writes content to relPath (project-relative) via a
// temp file and rename in the same directory. Returns the absolute
// path written.
func (r *Runner) WriteArtifact(relPath string, content []byte) (string, error) {
	abs := filepath.Join(r.root, filepath.FromSlash(relPath))
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create test dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".specter-*")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename artifact: %w", err)
	}
	return abs, nil
}

// Execute writes the artifact and runs the configured test command
// against it. The returned error covers infrastructure of the runner
// itself; test failures are expressed in the Report.
func (r *Runner) Execute(ctx context.Context, relPath string, content []byte) (*Report, error) {
	if _, err := r.WriteArtifact(relPath, content); err != nil {
		return nil, err
	}
	return r.Run(ctx, relPath)
}

// Run executes the test command for an already-written suite.
func (r *Runner) Run(ctx context.Context, relPath string) (*Report, error) {
	argv := r.command(relPath)
	if len(argv) == 0 {
		return nil, fmt.Errorf("no test command for framework %q", r.cfg.Framework)
	}

	timeout := r.cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.Executor("running %v (timeout %v)", argv, timeout)

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = r.root

	stdout := newLimitedBuffer(r.cfg.MaxOutputBytes)
	stderr := newLimitedBuffer(r.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	report := &Report{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Truncated() || stderr.Truncated(),
		Duration:  elapsed,
		StartedAt: started,
	}

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	switch {
	case timedOut:
		report.ExitCode = -1
		report.Timeout = true
		report.Failure = &Failure{
			Kind:    KindInfrastructure,
			Message: fmt.Sprintf("test run exceeded %v", timeout),
		}
	case err == nil:
		report.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Spawn failure: missing interpreter, bad argv.
			return nil, fmt.Errorf("spawn %s: %w", argv[0], err)
		}
		report.ExitCode = exitErr.ExitCode()
		report.Failure = extractFailure(r.cfg.Framework, report)
	}

	logging.ExecutorDebug("run finished: exit=%d timeout=%v truncated=%v in %v",
		report.ExitCode, report.Timeout, report.Truncated, elapsed)
	return report, nil
}

// command resolves the argv for a suite path, expanding {file}.
func (r *Runner) command(relPath string) []string {
	file := filepath.FromSlash(relPath)

	if len(r.cfg.Command) > 0 {
		argv := make([]string, len(r.cfg.Command))
		for i, a := range r.cfg.Command {
			argv[i] = strings.ReplaceAll(a, "{file}", file)
		}
		return argv
	}

	switch r.cfg.Framework {
	case "pytest":
		return []string{"python", "-m", "pytest", file, "-v", "--tb=short", "-x"}
	case "gotest":
		dir := filepath.Dir(file)
		return []string{"go", "test", "./" + filepath.ToSlash(dir) + "/..."}
	}
	return nil
}

// limitedBuffer captures up to max bytes and counts the rest.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       strings.Builder
	max       int64
	discarded int64
}

func newLimitedBuffer(max int64) *limitedBuffer {
	if max <= 0 {
		max = 64 * 1024
	}
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.max - int64(b.buf.Len())
	if remaining <= 0 {
		b.discarded += int64(len(p))
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.discarded += int64(len(p)) - remaining
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.discarded > 0
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.discarded > 0 {
		return b.buf.String() + fmt.Sprintf("\n[output truncated, %d bytes discarded]", b.discarded)
	}
	return b.buf.String()
}
