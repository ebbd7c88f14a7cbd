package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"specter/internal/analyze"
	"specter/internal/config"
	"specter/internal/executor"
	"specter/internal/heal"
	"specter/internal/logging"
	"specter/internal/provider"
	"specter/internal/store"
	"specter/internal/triage"
)

// app holds the wired pipeline for one project root.
type app struct {
	root    string
	cfg     *config.Config
	store   *store.Store
	graph   *analyze.ContextGraph
	scanner *analyze.Scanner
	gateway *provider.Gateway
	orch    *heal.Orchestrator
	coord   *heal.Coordinator
}

// newApp loads config and wires every layer. withProvider false skips
// the LLM backend, for commands that only touch local state.
func newApp(path string, withProvider bool) (*app, error) {
	root, err := resolveRoot(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if err := logging.Initialize(root); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}

	st, err := store.Open(filepath.Join(config.StateDir(root), store.DBFileName))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	graph := analyze.NewContextGraph()
	analyzer := analyze.NewAnalyzer(
		analyze.NewGoAnalyzer(root),
		analyze.NewPythonAnalyzer(root),
	)
	scanner := analyze.NewScanner(root, cfg, analyzer, graph, st)

	a := &app{
		root:    root,
		cfg:     cfg,
		store:   st,
		graph:   graph,
		scanner: scanner,
	}
	if !withProvider {
		return a, nil
	}

	backend, err := provider.New(cfg.AI)
	if err != nil {
		st.Close()
		return nil, err
	}
	a.gateway = provider.NewGateway(backend, cfg.AI)
	judge := triage.NewJudge(a.gateway)
	runner := executor.NewRunner(root, cfg.Tests)

	a.orch = heal.NewOrchestrator(root, cfg, graph, scanner.ProjectTree,
		a.gateway, runner, judge,
		&sessionRecorder{st}, &logAlerts{logger})
	a.coord = heal.NewCoordinator(a.orch, scanner, cfg.Heal.MaxWorkers)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func resolveRoot(path string) (string, error) {
	if path == "" {
		path = "."
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("project root %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", root)
	}
	return root, nil
}

// sessionRecorder persists terminal session summaries to the store.
type sessionRecorder struct {
	st *store.Store
}

func (r *sessionRecorder) Record(ctx context.Context, s heal.Summary) error {
	return r.st.PutSession(ctx, store.SessionRecord{
		ID:           s.SessionID,
		UnitPath:     s.UnitPath,
		Verdict:      s.Verdict,
		Attempts:     s.Attempts,
		InfraRetries: s.InfraRetries,
		Elapsed:      s.Elapsed,
		FinishedAt:   time.Now(),
	})
}

// logAlerts surfaces escalating terminals on the console logger.
type logAlerts struct {
	logger *zap.Logger
}

func (l *logAlerts) Alert(_ context.Context, s heal.Summary) {
	l.logger.Warn("unit needs attention",
		zap.String("unit", s.UnitPath),
		zap.String("verdict", s.Verdict),
		zap.String("reason", s.Rationale),
		zap.Int("attempts", s.Attempts),
		zap.Duration("elapsed", s.Elapsed),
	)
}
