package heal

import (
	"context"
	"sync"

	"specter/internal/analyze"
	"specter/internal/executor"
	"specter/internal/prompt"
	"specter/internal/triage"
)

// MockGenerator scripts gateway behavior and records calls.
type MockGenerator struct {
	mu            sync.Mutex
	GenerateFunc  func(ctx context.Context, req prompt.GenerateRequest) (string, error)
	HealFunc      func(ctx context.Context, req prompt.HealRequest) (string, error)
	GenerateCalls int
	HealCalls     int
}

func (m *MockGenerator) Generate(ctx context.Context, req prompt.GenerateRequest) (string, error) {
	m.mu.Lock()
	m.GenerateCalls++
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "def test_default():\n    assert True\n", nil
}

func (m *MockGenerator) Heal(ctx context.Context, req prompt.HealRequest) (string, error) {
	m.mu.Lock()
	m.HealCalls++
	m.mu.Unlock()
	if m.HealFunc != nil {
		return m.HealFunc(ctx, req)
	}
	return "def test_healed():\n    assert True\n", nil
}

// MockExecutor scripts run outcomes and keeps the content history.
type MockExecutor struct {
	mu          sync.Mutex
	ExecuteFunc func(ctx context.Context, relPath string, content []byte) (*executor.Report, error)
	Calls       int
	History     []string
}

func (m *MockExecutor) Execute(ctx context.Context, relPath string, content []byte) (*executor.Report, error) {
	m.mu.Lock()
	m.Calls++
	m.History = append(m.History, string(content))
	m.mu.Unlock()
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, relPath, content)
	}
	return passReport(), nil
}

func (m *MockExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockArbiter scripts judge verdicts.
type MockArbiter struct {
	mu             sync.Mutex
	AdjudicateFunc func(ctx context.Context, req prompt.JudgeRequest) (triage.Verdict, string, error)
	Calls          int
}

func (m *MockArbiter) Adjudicate(ctx context.Context, req prompt.JudgeRequest) (triage.Verdict, string, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.AdjudicateFunc != nil {
		return m.AdjudicateFunc(ctx, req)
	}
	return triage.VerdictInconclusive, "", nil
}

// recordingSinks captures summaries and alerts.
type recordingSinks struct {
	mu        sync.Mutex
	summaries []Summary
	alerts    []Summary
}

func (r *recordingSinks) Record(_ context.Context, s Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
	return nil
}

func (r *recordingSinks) Alert(_ context.Context, s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, s)
}

func (r *recordingSinks) Summaries() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Summary{}, r.summaries...)
}

func (r *recordingSinks) Alerts() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Summary{}, r.alerts...)
}

func passReport() *executor.Report {
	return &executor.Report{ExitCode: 0}
}

func envFailReport() *executor.Report {
	return &executor.Report{
		ExitCode: 1,
		Failure:  &executor.Failure{Kind: executor.KindEnvironment, Message: "ModuleNotFoundError: widgets"},
	}
}

func assertFailReport() *executor.Report {
	return &executor.Report{
		ExitCode: 1,
		Stdout:   "E       assert 3 == 4",
		Failure:  &executor.Failure{Kind: executor.KindAssertion, Message: "assert 3 == 4"},
	}
}

func infraFailReport() *executor.Report {
	return &executor.Report{
		ExitCode: -1,
		Timeout:  true,
		Failure:  &executor.Failure{Kind: executor.KindInfrastructure, Message: "test run exceeded 120s"},
	}
}

func sampleUnit(path string) *analyze.SourceUnit {
	return &analyze.SourceUnit{
		Path:        path,
		ContentHash: analyze.HashContent([]byte(path + "-v1")),
		Language:    "python",
		Signatures:  []analyze.Signature{{Name: "add", Params: []string{"a", "b"}}},
	}
}
