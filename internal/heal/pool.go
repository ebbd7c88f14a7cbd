package heal

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"specter/internal/analyze"
	"specter/internal/logging"
	"specter/internal/watch"
)

// Refresher re-analyzes changed files. The scanner implements it.
type Refresher interface {
	Refresh(ctx context.Context, relPath string, content []byte) (*analyze.SourceUnit, error)
	Forget(ctx context.Context, relPath string) error
}

// Coordinator admits watcher events into healing sessions. Per-unit
// exclusivity holds throughout: a unit has at most one active session,
// and at most one parked pending event (latest-only); distinct units
// heal concurrently up to the worker bound.
type Coordinator struct {
	orch      *Orchestrator
	refresher Refresher
	sem       *semaphore.Weighted

	mu      sync.Mutex
	active  map[string]*Session
	pending map[string]watch.Event

	wg sync.WaitGroup
}

// NewCoordinator builds a coordinator with maxWorkers concurrent
// sessions.
func NewCoordinator(orch *Orchestrator, refresher Refresher, maxWorkers int) *Coordinator {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Coordinator{
		orch:      orch,
		refresher: refresher,
		sem:       semaphore.NewWeighted(int64(maxWorkers)),
		active:    make(map[string]*Session),
		pending:   make(map[string]watch.Event),
	}
}

// Run consumes events until the channel closes or ctx ends, then
// waits for in-flight sessions.
func (c *Coordinator) Run(ctx context.Context, events <-chan watch.Event) {
	for {
		select {
		case <-ctx.Done():
			c.wg.Wait()
			return
		case ev, ok := <-events:
			if !ok {
				c.wg.Wait()
				return
			}
			c.Dispatch(ctx, ev)
		}
	}
}

// Dispatch routes one event. Safe for concurrent use.
func (c *Coordinator) Dispatch(ctx context.Context, ev watch.Event) {
	if ev.Kind == watch.KindRemove {
		c.handleRemove(ctx, ev.Path)
		return
	}

	c.mu.Lock()
	if running, ok := c.active[ev.Path]; ok {
		// An editor re-save with identical bytes changes nothing the
		// running session is working against. Drop it.
		if a := running.Artifact(); a != nil && !a.Stale(analyze.HashContent(ev.Content)) {
			c.mu.Unlock()
			logging.HealDebug("dropping event for %s: content unchanged under session %s", ev.Path, running.ID)
			return
		}
		// The unit already has a session. Flag it and park this event
		// as the unit's single pending slot; a newer arrival simply
		// overwrites it, intermediate versions are never processed.
		running.Cancel()
		c.pending[ev.Path] = ev
		c.mu.Unlock()
		logging.HealDebug("parked event for %s, session %s flagged", ev.Path, running.ID)
		return
	}
	session := NewSession(ev.Path)
	c.active[ev.Path] = session
	c.mu.Unlock()

	c.wg.Add(1)
	go c.work(ctx, session, ev)
}

// handleRemove forgets the unit and cancels any session on it.
func (c *Coordinator) handleRemove(ctx context.Context, path string) {
	c.mu.Lock()
	delete(c.pending, path)
	if running, ok := c.active[path]; ok {
		running.Cancel()
	}
	c.mu.Unlock()

	if err := c.refresher.Forget(ctx, path); err != nil {
		logging.Get(logging.CategoryHeal).Error("forget %s: %v", path, err)
	}
}

// work runs one session under the worker semaphore. A panic in one
// unit's session never takes down the coordinator or other sessions.
func (c *Coordinator) work(ctx context.Context, session *Session, ev watch.Event) {
	defer c.wg.Done()
	defer c.release(ctx, session.UnitPath)
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryHeal).Error("session %s for %s panicked: %v", session.ID, session.UnitPath, r)
		}
	}()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer c.sem.Release(1)

	unit, err := c.refresher.Refresh(ctx, ev.Path, ev.Content)
	if err != nil {
		logging.Get(logging.CategoryHeal).Error("refresh %s: %v", ev.Path, err)
		return
	}
	if unit.Degraded {
		logging.Heal("skipping %s: unparseable content", ev.Path)
		// Surface the skip to the operator, not just the debug log.
		if c.orch.alerts != nil {
			c.orch.alerts.Alert(ctx, Summary{
				SessionID: session.ID,
				UnitPath:  ev.Path,
				Verdict:   VerdictSkipped,
				Rationale: "file does not parse, suite not regenerated",
			})
		}
		return
	}

	c.orch.RunSession(ctx, session, unit, string(ev.Content))
}

// release frees the unit's active slot and re-dispatches its pending
// event, if one parked while the session ran.
func (c *Coordinator) release(ctx context.Context, path string) {
	c.mu.Lock()
	delete(c.active, path)
	ev, ok := c.pending[path]
	if ok {
		delete(c.pending, path)
	}
	c.mu.Unlock()

	if ok && ctx.Err() == nil {
		c.Dispatch(ctx, ev)
	}
}

// ActiveSessions returns the paths with a running session.
func (c *Coordinator) ActiveSessions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.active))
	for p := range c.active {
		paths = append(paths, p)
	}
	return paths
}
