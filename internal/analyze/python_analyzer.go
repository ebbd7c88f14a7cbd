package analyze

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"specter/internal/logging"
)

// PythonAnalyzer implements LanguageAnalyzer for Python files using
// Tree-sitter.
type PythonAnalyzer struct {
	projectRoot string
}

// NewPythonAnalyzer creates a Python analyzer rooted at projectRoot.
func NewPythonAnalyzer(projectRoot string) *PythonAnalyzer {
	return &PythonAnalyzer{projectRoot: projectRoot}
}

// Language returns "python".
func (p *PythonAnalyzer) Language() string {
	return "python"
}

// SupportedExtensions returns [".py", ".pyw"].
func (p *PythonAnalyzer) SupportedExtensions() []string {
	return []string{".py", ".pyw"}
}

// Analyze builds the structural unit for a Python file.
func (p *PythonAnalyzer) Analyze(path string, content []byte) *SourceUnit {
	unit := &SourceUnit{
		Path:        filepath.ToSlash(path),
		ContentHash: HashContent(content),
		Language:    "python",
	}

	// Tree-sitter parsers hold mutable C state and are not safe for
	// concurrent use; Analyze runs on every pool worker, so each call
	// gets its own parser.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		logging.Analyze("python parse failed for %s: %v", path, err)
		unit.Degraded = true
		return unit
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		logging.Analyze("python syntax errors in %s, emitting degraded unit", path)
		unit.Degraded = true
		return unit
	}

	p.walk(root, content, "", unit)
	p.extractImports(root, content, unit)
	return unit
}

// walk collects top-level functions and classes. class bodies are
// visited once with the class name as receiver; deeper nesting is
// intentionally skipped, closures are not part of the unit surface.
func (p *PythonAnalyzer) walk(node *sitter.Node, content []byte, class string, unit *SourceUnit) {
	text := func(n *sitter.Node) string {
		return string(content[n.StartByte():n.EndByte()])
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		nodeType := child.Type()

		// Unwrap decorated definitions.
		if nodeType == "decorated_definition" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				inner := child.NamedChild(j)
				if t := inner.Type(); t == "function_definition" || t == "class_definition" {
					child = inner
					nodeType = t
					break
				}
			}
		}

		switch nodeType {
		case "function_definition":
			sig := p.parseFunction(child, content, class, text)
			if sig != nil {
				unit.Signatures = append(unit.Signatures, *sig)
				if class != "" {
					idx := len(unit.Classes) - 1
					unit.Classes[idx].Methods = append(unit.Classes[idx].Methods, *sig)
				}
			}

		case "class_definition":
			if class != "" {
				continue
			}
			nameNode := child.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := text(nameNode)
			unit.Classes = append(unit.Classes, Class{
				Name: name,
				Line: int(child.StartPoint().Row) + 1,
			})
			if body := child.ChildByFieldName("body"); body != nil {
				p.walk(body, content, name, unit)
			}
		}
	}
}

func (p *PythonAnalyzer) parseFunction(node *sitter.Node, content []byte, class string, text func(*sitter.Node) string) *Signature {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	sig := &Signature{
		Name:     text(nameNode),
		Receiver: class,
		Line:     int(node.StartPoint().Row) + 1,
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			param := params.NamedChild(i)
			name := text(param)
			// Typed and default parameters carry the bare name first.
			if id := param.ChildByFieldName("name"); id != nil {
				name = text(id)
			} else if param.Type() == "typed_parameter" && param.NamedChildCount() > 0 {
				name = text(param.NamedChild(0))
			}
			if name == "self" || name == "cls" {
				continue
			}
			sig.Params = append(sig.Params, name)
		}
	}

	if ret := node.ChildByFieldName("return_type"); ret != nil {
		sig.Results = []string{text(ret)}
	}

	return sig
}

// extractImports walks top-level import statements and resolves them
// against the project tree. `import a.b` and `from a.b import c` both
// resolve a/b.py or a/b/__init__.py when present.
func (p *PythonAnalyzer) extractImports(root *sitter.Node, content []byte, unit *SourceUnit) {
	text := func(n *sitter.Node) string {
		return string(content[n.StartByte():n.EndByte()])
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "import_statement":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				name := child.NamedChild(j)
				mod := text(name)
				if name.Type() == "aliased_import" {
					if n := name.ChildByFieldName("name"); n != nil {
						mod = text(n)
					}
				}
				unit.Imports = append(unit.Imports, p.resolveModule(mod))
			}

		case "import_from_statement":
			if mod := child.ChildByFieldName("module_name"); mod != nil {
				unit.Imports = append(unit.Imports, p.resolveModule(text(mod)))
			}
		}
	}
}

// resolveModule maps a dotted module name to an internal edge when a
// matching file exists under the project root.
func (p *PythonAnalyzer) resolveModule(module string) ImportEdge {
	edge := ImportEdge{Name: module}
	// Relative imports resolve within the package, already internal.
	module = strings.TrimLeft(module, ".")
	if module == "" {
		edge.Internal = true
		return edge
	}

	rel := filepath.FromSlash(strings.ReplaceAll(module, ".", "/"))
	for _, candidate := range []string{rel + ".py", filepath.Join(rel, "__init__.py")} {
		if _, err := os.Stat(filepath.Join(p.projectRoot, candidate)); err == nil {
			edge.Internal = true
			edge.Path = filepath.ToSlash(candidate)
			return edge
		}
	}
	return edge
}
