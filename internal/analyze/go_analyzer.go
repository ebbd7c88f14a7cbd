package analyze

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"specter/internal/logging"
)

// GoAnalyzer implements LanguageAnalyzer for Go files using go/ast.
type GoAnalyzer struct {
	projectRoot string
	modulePath  string
}

// NewGoAnalyzer creates a Go analyzer rooted at projectRoot. The module
// path is read from go.mod for internal import resolution; without a
// go.mod all imports are treated as external.
func NewGoAnalyzer(projectRoot string) *GoAnalyzer {
	return &GoAnalyzer{
		projectRoot: projectRoot,
		modulePath:  readModulePath(projectRoot),
	}
}

// Language returns "go".
func (g *GoAnalyzer) Language() string {
	return "go"
}

// SupportedExtensions returns [".go"].
func (g *GoAnalyzer) SupportedExtensions() []string {
	return []string{".go"}
}

// Analyze builds the structural unit for a Go file.
func (g *GoAnalyzer) Analyze(path string, content []byte) *SourceUnit {
	unit := &SourceUnit{
		Path:        filepath.ToSlash(path),
		ContentHash: HashContent(content),
		Language:    "go",
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.SkipObjectResolution)
	if err != nil {
		logging.Analyze("go parse failed for %s: %v", path, err)
		unit.Degraded = true
		return unit
	}

	// First pass: struct types, so methods can be attached in order.
	classIdx := make(map[string]int)
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			if _, isStruct := typeSpec.Type.(*ast.StructType); !isStruct {
				continue
			}
			classIdx[typeSpec.Name.Name] = len(unit.Classes)
			unit.Classes = append(unit.Classes, Class{
				Name: typeSpec.Name.Name,
				Line: fset.Position(typeSpec.Pos()).Line,
			})
		}
	}

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		sig := Signature{
			Name:    fn.Name.Name,
			Params:  fieldListTypes(fn.Type.Params),
			Results: fieldListTypes(fn.Type.Results),
			Line:    fset.Position(fn.Pos()).Line,
		}
		if fn.Recv != nil && len(fn.Recv.List) > 0 {
			sig.Receiver = receiverTypeName(fn.Recv.List[0].Type)
		}
		unit.Signatures = append(unit.Signatures, sig)
		if sig.Receiver != "" {
			if idx, ok := classIdx[sig.Receiver]; ok {
				unit.Classes[idx].Methods = append(unit.Classes[idx].Methods, sig)
			}
		}
	}

	for _, imp := range file.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		unit.Imports = append(unit.Imports, g.resolveImport(importPath))
	}

	return unit
}

// resolveImport maps a Go import path to an edge, resolving paths under
// the project's module to project-relative directories.
func (g *GoAnalyzer) resolveImport(importPath string) ImportEdge {
	edge := ImportEdge{Name: importPath}
	if g.modulePath == "" {
		return edge
	}
	if importPath == g.modulePath {
		edge.Internal = true
		edge.Path = "."
		return edge
	}
	if strings.HasPrefix(importPath, g.modulePath+"/") {
		edge.Internal = true
		edge.Path = strings.TrimPrefix(importPath, g.modulePath+"/")
	}
	return edge
}

// fieldListTypes renders each field's type, repeated per name.
func fieldListTypes(fields *ast.FieldList) []string {
	if fields == nil {
		return nil
	}
	var types []string
	for _, f := range fields.List {
		typ := exprString(f.Type)
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			types = append(types, typ)
		}
	}
	return types
}

// exprString renders a type expression. Covers the forms that appear in
// signatures; anything else falls back to a placeholder.
func exprString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.MapType:
		return "map[" + exprString(t.Key) + "]" + exprString(t.Value)
	case *ast.ChanType:
		return "chan " + exprString(t.Value)
	case *ast.FuncType:
		return "func"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	}
	return "?"
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	}
	return ""
}

func readModulePath(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}
	return ""
}
