package analyze

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"specter/internal/config"
	"specter/internal/logging"
)

// SummarySink receives unit summaries as the scanner produces them.
// internal/store implements it; a nil sink disables persistence.
type SummarySink interface {
	PutUnit(ctx context.Context, path, hash, summary string) error
	DeleteUnit(ctx context.Context, path string) error
}

// Scanner walks a project tree, analyzes every source file, and feeds
// the context graph and summary sink. It owns the ignore rules shared
// with the watcher.
type Scanner struct {
	root     string
	cfg      config.ScannerConfig
	testsDir string
	analyzer *Analyzer
	graph    *ContextGraph
	sink     SummarySink
}

// NewScanner builds a scanner over root. sink may be nil.
func NewScanner(root string, cfg *config.Config, analyzer *Analyzer, graph *ContextGraph, sink SummarySink) *Scanner {
	return &Scanner{
		root:     root,
		cfg:      cfg.Scanner,
		testsDir: cfg.Tests.Dir,
		analyzer: analyzer,
		graph:    graph,
		sink:     sink,
	}
}

// IgnoreDir reports whether a directory name is excluded from walks.
func (s *Scanner) IgnoreDir(name string) bool {
	for _, d := range s.cfg.IgnoreDirs {
		if name == d {
			return true
		}
	}
	return strings.HasPrefix(name, ".")
}

// IgnoreFile reports whether a project-relative file path is excluded.
// Generated test files and anything under the tests dir never re-enter
// the loop.
func (s *Scanner) IgnoreFile(relPath string) bool {
	base := filepath.Base(relPath)
	for _, f := range s.cfg.IgnoreFiles {
		if base == f {
			return true
		}
	}
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return true
	}
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.go") {
		return true
	}
	rel := filepath.ToSlash(relPath)
	if s.testsDir != "" && (rel == s.testsDir || strings.HasPrefix(rel, s.testsDir+"/")) {
		return true
	}

	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range s.cfg.Extensions {
		if ext == e {
			return false
		}
	}
	return true
}

// Scan walks the tree and analyzes every source file, replacing the
// graph's contents for the paths it visits. Returns the number of
// units analyzed.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	start := time.Now()
	count := 0

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != s.root && s.IgnoreDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if s.IgnoreFile(rel) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logging.Analyze("scan: skipping unreadable file %s: %v", rel, err)
			return nil
		}
		if _, err := s.Refresh(ctx, rel, content); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("scan %s: %w", s.root, err)
	}

	logging.Analyze("scan complete: %d units in %v", count, time.Since(start))
	return count, nil
}

// Refresh analyzes one file's content and updates graph and sink.
// This is the incremental path used on watch events.
func (s *Scanner) Refresh(ctx context.Context, relPath string, content []byte) (*SourceUnit, error) {
	unit := s.analyzer.Analyze(relPath, content)
	s.graph.Put(unit)
	if s.sink != nil {
		if err := s.sink.PutUnit(ctx, unit.Path, unit.ContentHash, unit.Summary()); err != nil {
			return unit, fmt.Errorf("persist unit %s: %w", unit.Path, err)
		}
	}
	return unit, nil
}

// Forget removes a deleted file from graph and sink.
func (s *Scanner) Forget(ctx context.Context, relPath string) error {
	rel := filepath.ToSlash(relPath)
	s.graph.Remove(rel)
	if s.sink != nil {
		if err := s.sink.DeleteUnit(ctx, rel); err != nil {
			return fmt.Errorf("forget unit %s: %w", rel, err)
		}
	}
	return nil
}

// ProjectTree renders the project's source layout as an indented list,
// honoring the ignore rules. Used for prompt context.
func (s *Scanner) ProjectTree() string {
	var b strings.Builder
	filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == s.root {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if s.IgnoreDir(d.Name()) {
				return filepath.SkipDir
			}
			fmt.Fprintf(&b, "%s%s/\n", strings.Repeat("  ", strings.Count(rel, string(filepath.Separator))), d.Name())
			return nil
		}
		if s.IgnoreFile(rel) {
			return nil
		}
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", strings.Count(rel, string(filepath.Separator))), d.Name())
		return nil
	})
	return b.String()
}
