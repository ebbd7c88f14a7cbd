package analyze

import (
	"path/filepath"
	"strings"
	"time"

	"specter/internal/logging"
)

// LanguageAnalyzer is the contract for language-specific structural
// analysis. Implementations must be total: a parse failure produces a
// degraded unit, never an error, so one broken file cannot stall the loop.
type LanguageAnalyzer interface {
	// Analyze builds a SourceUnit from raw file content. The path is
	// project-relative and used for import resolution and identity.
	Analyze(path string, content []byte) *SourceUnit

	// SupportedExtensions returns the extensions this analyzer handles,
	// with leading dot. The first is the canonical one.
	SupportedExtensions() []string

	// Language is the short identifier stored on produced units.
	Language() string
}

// Analyzer dispatches to a LanguageAnalyzer by file extension.
type Analyzer struct {
	byExt map[string]LanguageAnalyzer
}

// NewAnalyzer builds a dispatcher over the given language analyzers.
// Later analyzers win extension conflicts.
func NewAnalyzer(langs ...LanguageAnalyzer) *Analyzer {
	a := &Analyzer{byExt: make(map[string]LanguageAnalyzer)}
	for _, lang := range langs {
		for _, ext := range lang.SupportedExtensions() {
			a.byExt[ext] = lang
		}
	}
	return a
}

// Supports reports whether some registered analyzer handles the path.
func (a *Analyzer) Supports(path string) bool {
	_, ok := a.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Analyze produces the structural unit for path. Unknown extensions and
// parse failures both yield a degraded unit with the content hash set,
// so staleness tracking keeps working.
func (a *Analyzer) Analyze(path string, content []byte) *SourceUnit {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(path))

	lang, ok := a.byExt[ext]
	if !ok {
		logging.AnalyzeDebug("no analyzer for %s, emitting degraded unit", path)
		return &SourceUnit{
			Path:        filepath.ToSlash(path),
			ContentHash: HashContent(content),
			Language:    "unknown",
			Degraded:    true,
		}
	}

	unit := lang.Analyze(path, content)
	logging.AnalyzeDebug("analyzed %s: %d signatures, %d classes, %d imports, degraded=%v in %v",
		path, len(unit.Signatures), len(unit.Classes), len(unit.Imports), unit.Degraded, time.Since(start))
	return unit
}
