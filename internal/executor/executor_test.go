package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specter/internal/config"
)

func testRunner(t *testing.T, command ...string) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.TestsConfig{
		Framework:      "pytest",
		Dir:            "tests",
		Command:        command,
		Timeout:        10 * time.Second,
		MaxOutputBytes: 64 * 1024,
	}
	return NewRunner(dir, cfg), dir
}

func TestWriteArtifactAtomic(t *testing.T) {
	r, dir := testRunner(t)

	abs, err := r.WriteArtifact("tests/test_sample.py", []byte("def test_a():\n    pass\n"))
	require.NoError(t, err)

	content, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Contains(t, string(content), "def test_a")

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Join(dir, "tests"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "test_sample.py", entries[0].Name())
}

func TestWriteArtifactOverwrites(t *testing.T) {
	r, _ := testRunner(t)

	_, err := r.WriteArtifact("tests/test_sample.py", []byte("old"))
	require.NoError(t, err)
	abs, err := r.WriteArtifact("tests/test_sample.py", []byte("new"))
	require.NoError(t, err)

	content, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestExecuteSuccess(t *testing.T) {
	r, _ := testRunner(t, "sh", "-c", "echo 1 passed")

	report, err := r.Execute(context.Background(), "tests/test_ok.py", []byte("def test_a():\n    pass\n"))
	require.NoError(t, err)

	assert.True(t, report.Passed())
	assert.Equal(t, 0, report.ExitCode)
	assert.Nil(t, report.Failure)
	assert.Contains(t, report.Stdout, "1 passed")
}

func TestExecuteEnvironmentFailure(t *testing.T) {
	r, _ := testRunner(t, "sh", "-c", `echo "E   ModuleNotFoundError: No module named 'widgets'"; exit 1`)

	report, err := r.Execute(context.Background(), "tests/test_env.py", []byte("import widgets\n"))
	require.NoError(t, err)

	assert.False(t, report.Passed())
	require.NotNil(t, report.Failure)
	assert.Equal(t, KindEnvironment, report.Failure.Kind)
	assert.Contains(t, report.Failure.Message, "ModuleNotFoundError")
}

func TestExecuteAssertionFailure(t *testing.T) {
	script := `printf 'tests/test_calc.py:7: AssertionError\nE       assert 3 == 4\n'; exit 1`
	r, _ := testRunner(t, "sh", "-c", script)

	report, err := r.Execute(context.Background(), "tests/test_calc.py", []byte("def test_a():\n    assert add(1,2) == 4\n"))
	require.NoError(t, err)

	require.NotNil(t, report.Failure)
	assert.Equal(t, KindAssertion, report.Failure.Kind)
	assert.Equal(t, "tests/test_calc.py:7", report.Failure.Location)
}

func TestExecuteTimeout(t *testing.T) {
	r, dir := testRunner(t, "sh", "-c", "sleep 30")
	r.cfg.Timeout = 200 * time.Millisecond
	_ = dir

	report, err := r.Execute(context.Background(), "tests/test_slow.py", []byte(""))
	require.NoError(t, err)

	assert.True(t, report.Timeout)
	assert.False(t, report.Passed())
	require.NotNil(t, report.Failure)
	assert.Equal(t, KindInfrastructure, report.Failure.Kind)
}

func TestExecuteOutputTruncation(t *testing.T) {
	r, _ := testRunner(t, "sh", "-c", "yes x | head -c 100000; echo; exit 0")
	r.cfg.MaxOutputBytes = 1024

	report, err := r.Execute(context.Background(), "tests/test_noise.py", []byte(""))
	require.NoError(t, err)

	assert.True(t, report.Truncated)
	assert.Contains(t, report.Stdout, "output truncated")
	assert.Less(t, len(report.Stdout), 2048)
}

func TestExecuteSpawnFailure(t *testing.T) {
	r, _ := testRunner(t, "definitely-not-a-real-binary-specter")

	_, err := r.Execute(context.Background(), "tests/test_x.py", []byte(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spawn")
}

func TestCommandTemplateExpansion(t *testing.T) {
	r, _ := testRunner(t, "pytest", "{file}", "-v")

	argv := r.command("tests/test_app.py")
	assert.Equal(t, []string{"pytest", filepath.FromSlash("tests/test_app.py"), "-v"}, argv)
}

func TestDefaultCommands(t *testing.T) {
	r, _ := testRunner(t)

	argv := r.command("tests/test_app.py")
	require.NotEmpty(t, argv)
	assert.Equal(t, "python", argv[0])
	assert.True(t, strings.Contains(strings.Join(argv, " "), "pytest"))

	r.cfg.Framework = "gotest"
	r.cfg.Command = nil
	argv = r.command("internal/calc/calc_test.go")
	assert.Equal(t, []string{"go", "test", "./internal/calc/..."}, argv)
}
