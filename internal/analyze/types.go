// Package analyze builds structural maps of source files. A SourceUnit
// is the analyzer's output: the callable surface, class layout, and
// import edges of one file, keyed by a content hash. Units feed prompt
// assembly and the context graph; they are never mutated after build.
package analyze

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SourceUnit is the structural summary of a single source file.
// Rebuilt wholesale whenever the file's content changes.
type SourceUnit struct {
	// Path is the project-relative, slash-separated file path.
	Path string

	// ContentHash is the sha256 of the file content, hex encoded.
	ContentHash string

	// Language identifies the analyzer that produced the unit ("go", "python").
	Language string

	// Signatures are the file's top-level callables, in source order.
	Signatures []Signature

	// Classes are the file's type/class declarations with their methods.
	Classes []Class

	// Imports are the file's import edges, internal ones resolved.
	Imports []ImportEdge

	// Degraded is set when the file could not be parsed. A degraded unit
	// has empty structure but remains usable downstream.
	Degraded bool
}

// Signature describes one callable.
type Signature struct {
	Name     string
	Receiver string // receiver type or owning class, empty for free functions
	Params   []string
	Results  []string
	Line     int
}

// Class describes a type with methods (Go struct, Python class).
type Class struct {
	Name    string
	Methods []Signature
	Line    int
}

// ImportEdge records one import. Internal edges carry the resolved
// project-relative path; external ones only the opaque name.
type ImportEdge struct {
	Name     string
	Path     string // project-relative target, empty when external
	Internal bool
}

// HashContent returns the canonical content hash used for staleness checks.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// String renders the signature as a single declaration-like line.
func (s Signature) String() string {
	var b strings.Builder
	if s.Receiver != "" {
		b.WriteString(s.Receiver)
		b.WriteString(".")
	}
	b.WriteString(s.Name)
	b.WriteString("(")
	b.WriteString(strings.Join(s.Params, ", "))
	b.WriteString(")")
	if len(s.Results) > 0 {
		b.WriteString(" -> ")
		b.WriteString(strings.Join(s.Results, ", "))
	}
	return b.String()
}

// Summary renders the unit in the compact form used by prompt assembly.
func (u *SourceUnit) Summary() string {
	if u.Degraded {
		return fmt.Sprintf("%s: unparseable (degraded)", u.Path)
	}

	var parts []string

	var funcs []string
	for _, s := range u.Signatures {
		if s.Receiver == "" {
			funcs = append(funcs, s.String())
		}
	}
	if len(funcs) > 0 {
		parts = append(parts, "Functions: "+strings.Join(funcs, "; "))
	}

	var classes []string
	for _, c := range u.Classes {
		names := make([]string, 0, len(c.Methods))
		for _, m := range c.Methods {
			names = append(names, m.Name)
		}
		classes = append(classes, fmt.Sprintf("%s [%s]", c.Name, strings.Join(names, ", ")))
	}
	if len(classes) > 0 {
		parts = append(parts, "Classes: "+strings.Join(classes, "; "))
	}

	var imports []string
	for _, e := range u.Imports {
		if e.Internal {
			imports = append(imports, e.Path)
		}
	}
	if len(imports) > 0 {
		parts = append(parts, "Internal imports: "+strings.Join(imports, ", "))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%s: no top-level structure", u.Path)
	}
	return strings.Join(parts, "\n")
}

// InternalDeps returns the resolved paths of the unit's internal imports.
func (u *SourceUnit) InternalDeps() []string {
	var deps []string
	for _, e := range u.Imports {
		if e.Internal && e.Path != "" {
			deps = append(deps, e.Path)
		}
	}
	return deps
}
