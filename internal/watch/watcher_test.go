package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// pyFilter mimics the scanner's rules for a Python project.
type pyFilter struct{}

func (pyFilter) IgnoreDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__pycache__" || name == "tests"
}

func (pyFilter) IgnoreFile(rel string) bool {
	base := filepath.Base(rel)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasPrefix(base, "test_") {
		return true
	}
	return !strings.HasSuffix(base, ".py")
}

func startWatcher(t *testing.T, debounce time.Duration) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()

	w, err := NewWatcher(dir, pyFilter{}, debounce)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w, dir
}

func waitEvent(t *testing.T, w *Watcher, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestWatcherEmitsWrite(t *testing.T) {
	w, dir := startWatcher(t, 200*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("x = 1\n"), 0644))

	ev := waitEvent(t, w, 5*time.Second)
	assert.Equal(t, "app.py", ev.Path)
	assert.Equal(t, KindWrite, ev.Kind)
	assert.Equal(t, "x = 1\n", string(ev.Content))
}

func TestWatcherCoalescesRapidSaves(t *testing.T) {
	w, dir := startWatcher(t, 400*time.Millisecond)
	path := filepath.Join(dir, "app.py")

	// Five versions in quick succession; only the last should surface.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("#", i+1)+"\n"), 0644))
		time.Sleep(50 * time.Millisecond)
	}

	ev := waitEvent(t, w, 5*time.Second)
	assert.Equal(t, "app.py", ev.Path)
	assert.Equal(t, "#####\n", string(ev.Content))

	// And nothing else for that burst.
	select {
	case extra := <-w.Events():
		t.Fatalf("unexpected second event: %+v", extra)
	case <-time.After(800 * time.Millisecond):
	}
}

func TestWatcherEmitsRemove(t *testing.T) {
	w, dir := startWatcher(t, 200*time.Millisecond)
	path := filepath.Join(dir, "app.py")

	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))
	ev := waitEvent(t, w, 5*time.Second)
	require.Equal(t, KindWrite, ev.Kind)

	require.NoError(t, os.Remove(path))
	ev = waitEvent(t, w, 5*time.Second)
	assert.Equal(t, "app.py", ev.Path)
	assert.Equal(t, KindRemove, ev.Kind)
	assert.Nil(t, ev.Content)
}

func TestWatcherIgnoresFilteredPaths(t *testing.T) {
	w, dir := startWatcher(t, 150*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_app.py"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py~"), []byte("ignored"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.py"), []byte("x = 1\n"), 0644))

	ev := waitEvent(t, w, 5*time.Second)
	assert.Equal(t, "real.py", ev.Path)

	select {
	case extra := <-w.Events():
		t.Fatalf("filtered path leaked through: %+v", extra)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	w, dir := startWatcher(t, 200*time.Millisecond)

	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	// Give the watcher a beat to register the new directory.
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "mod.py"), []byte("y = 2\n"), 0644))

	ev := waitEvent(t, w, 5*time.Second)
	assert.Equal(t, "pkg/mod.py", ev.Path)
}

func TestWatcherStopIdempotent(t *testing.T) {
	w, _ := startWatcher(t, 100*time.Millisecond)
	w.Stop()
	w.Stop()
}
