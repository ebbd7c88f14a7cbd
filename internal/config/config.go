// Package config loads and validates specter.yaml, the per-project
// configuration file. Every section has a Default* constructor so the
// tool runs with no config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the well-known config file at the project root.
const ConfigFileName = "specter.yaml"

// StateDirName is the per-project state directory.
const StateDirName = ".specter"

// Config holds all specter configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	AI      AIConfig      `yaml:"ai"`
	Scanner ScannerConfig `yaml:"scanner"`
	Tests   TestsConfig   `yaml:"tests"`
	Heal    HealConfig    `yaml:"heal"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// ScannerConfig controls which files the analyzer and watcher consider.
type ScannerConfig struct {
	// IgnoreDirs are directory names skipped during walks and watches.
	IgnoreDirs []string `yaml:"ignore_dirs"`

	// IgnoreFiles are exact file names never analyzed.
	IgnoreFiles []string `yaml:"ignore_files"`

	// Extensions are the source file extensions considered, with dot.
	Extensions []string `yaml:"extensions"`
}

// TestsConfig controls test generation and execution.
type TestsConfig struct {
	// Framework is the test framework identifier (pytest, gotest).
	Framework string `yaml:"framework"`

	// Dir is the directory, relative to the project root, where generated
	// suites are written.
	Dir string `yaml:"dir"`

	// Command overrides the framework's run command. "{file}" expands to
	// the suite path. Empty means the framework default.
	Command []string `yaml:"command"`

	// Timeout bounds a single test process run.
	Timeout time.Duration `yaml:"timeout"`

	// MaxOutputBytes caps captured stdout/stderr per stream.
	MaxOutputBytes int64 `yaml:"max_output_bytes"`
}

// HealConfig bounds the repair loop.
type HealConfig struct {
	// MaxAttempts is the heal-attempt budget per session.
	MaxAttempts int `yaml:"max_attempts"`

	// InfraRetries is the separate, smaller budget for infrastructure
	// failures (timeouts, crashes). Not charged against MaxAttempts.
	InfraRetries int `yaml:"infra_retries"`

	// MaxWorkers bounds concurrent healing sessions.
	MaxWorkers int `yaml:"max_workers"`

	// GraphDepth bounds context-graph traversal during prompt assembly.
	GraphDepth int `yaml:"graph_depth"`
}

// WatchConfig controls event coalescing.
type WatchConfig struct {
	// Debounce is how long a path must stay quiet before its latest
	// event is emitted.
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig mirrors internal/logging's expectations.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the configuration used when specter.yaml is absent.
func DefaultConfig() *Config {
	return &Config{
		Name:    "specter",
		Version: "1.0",
		AI:      DefaultAIConfig(),
		Scanner: ScannerConfig{
			IgnoreDirs: []string{
				".git", ".specter", "__pycache__", ".venv", "venv",
				"node_modules", ".pytest_cache", ".idea", "vendor",
			},
			IgnoreFiles: []string{"conftest.py"},
			Extensions:  []string{".py", ".go"},
		},
		Tests: TestsConfig{
			Framework:      "pytest",
			Dir:            "tests",
			Timeout:        120 * time.Second,
			MaxOutputBytes: 64 * 1024,
		},
		Heal: HealConfig{
			MaxAttempts:  3,
			InfraRetries: 2,
			MaxWorkers:   4,
			GraphDepth:   3,
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads specter.yaml from root, layering it over defaults.
// A missing file is not an error: defaults apply.
func Load(root string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to root/specter.yaml.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(root, ConfigFileName), data, 0644)
}

// Validate rejects configurations the loop cannot safely run with.
func (c *Config) Validate() error {
	if c.Heal.MaxAttempts < 1 {
		return fmt.Errorf("heal.max_attempts must be >= 1, got %d", c.Heal.MaxAttempts)
	}
	if c.Heal.InfraRetries < 0 {
		return fmt.Errorf("heal.infra_retries must be >= 0, got %d", c.Heal.InfraRetries)
	}
	if c.Heal.MaxWorkers < 1 {
		return fmt.Errorf("heal.max_workers must be >= 1, got %d", c.Heal.MaxWorkers)
	}
	if c.AI.RateLimitRPM < 1 {
		return fmt.Errorf("ai.rate_limit_rpm must be >= 1, got %d", c.AI.RateLimitRPM)
	}
	if c.Tests.Timeout <= 0 {
		return fmt.Errorf("tests.timeout must be positive, got %v", c.Tests.Timeout)
	}
	return nil
}

// applyEnv layers environment overrides over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("SPECTER_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := os.Getenv("SPECTER_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("SPECTER_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
}

// StateDir returns the .specter directory under root.
func StateDir(root string) string {
	return filepath.Join(root, StateDirName)
}
