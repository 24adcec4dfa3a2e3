package analyze

import (
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/graphlint/graphlint/internal/lang"
	"github.com/graphlint/graphlint/internal/parser"
)

// extractImports collects import bindings for a source file.
func extractImports(root *tree_sitter.Node, source []byte, language lang.Language) []ImportDecl {
	switch language {
	case lang.Python:
		return extractPythonImports(root, source)
	case lang.Go:
		return extractGoImports(root, source)
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		return extractJSImports(root, source)
	default:
		return nil
	}
}

// Python import AST structures:
//
//	import_statement:
//	  dotted_name children (e.g., "import foo.bar")
//	  aliased_import with alias (e.g., "import foo as f")
//
//	import_from_statement:
//	  module_name: dotted_name or relative_import
//	  name: dotted_name (what's being imported), possibly several
func extractPythonImports(root *tree_sitter.Node, source []byte) []ImportDecl {
	var imports []ImportDecl

	parser.Walk(root, func(node *tree_sitter.Node) bool {
		switch node.Kind() {
		case "import_statement":
			imports = append(imports, pythonPlainImports(node, source)...)
			return false
		case "import_from_statement":
			imports = append(imports, pythonFromImports(node, source)...)
			return false
		}
		return true
	})
	return imports
}

func pythonPlainImports(node *tree_sitter.Node, source []byte) []ImportDecl {
	var out []ImportDecl
	line := lineOf(node.StartPosition().Row)

	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			out = append(out, ImportDecl{Path: parser.NodeText(child, source), Line: line})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil {
				continue
			}
			imp := ImportDecl{Path: parser.NodeText(nameNode, source), Line: line}
			if aliasNode != nil {
				imp.Alias = parser.NodeText(aliasNode, source)
			}
			out = append(out, imp)
		}
	}
	return out
}

func pythonFromImports(node *tree_sitter.Node, source []byte) []ImportDecl {
	line := lineOf(node.StartPosition().Row)

	modulePath := ""
	if moduleNode := node.ChildByFieldName("module_name"); moduleNode != nil {
		modulePath = parser.NodeText(moduleNode, source)
	} else if strings.HasPrefix(parser.NodeText(node, source), "from .") {
		// Bare relative import: "from . import X"
		modulePath = "."
	}

	var out []ImportDecl
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			name := parser.NodeText(child, source)
			if name == modulePath {
				continue // the module_name itself
			}
			out = append(out, ImportDecl{Path: modulePath, Symbol: name, Line: line})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil {
				continue
			}
			imp := ImportDecl{Path: modulePath, Symbol: parser.NodeText(nameNode, source), Line: line}
			if aliasNode != nil {
				imp.Alias = parser.NodeText(aliasNode, source)
			}
			out = append(out, imp)
		case "wildcard_import":
			out = append(out, ImportDecl{Path: modulePath, Symbol: "*", Line: line})
		}
	}
	return out
}

func extractGoImports(root *tree_sitter.Node, source []byte) []ImportDecl {
	var imports []ImportDecl

	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if node.Kind() != "import_declaration" {
			return true
		}
		parser.Walk(node, func(child *tree_sitter.Node) bool {
			if child.Kind() != "import_spec" {
				return true
			}
			pathNode := child.ChildByFieldName("path")
			if pathNode == nil {
				return false
			}
			importPath := stripQuotes(parser.NodeText(pathNode, source))
			if importPath == "" {
				return false
			}
			imp := ImportDecl{Path: importPath, Line: lineOf(child.StartPosition().Row)}
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				alias := parser.NodeText(nameNode, source)
				if alias != "" && alias != "." && alias != "_" {
					imp.Alias = alias
				}
			}
			imports = append(imports, imp)
			return false
		})
		return false
	})
	return imports
}

// JS/TS import forms:
//
//	import Default from "mod"
//	import { a, b as c } from "mod"
//	import * as ns from "mod"
func extractJSImports(root *tree_sitter.Node, source []byte) []ImportDecl {
	var imports []ImportDecl

	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if node.Kind() != "import_statement" {
			return true
		}
		srcNode := node.ChildByFieldName("source")
		if srcNode == nil {
			return false
		}
		modPath := stripQuotes(parser.NodeText(srcNode, source))
		line := lineOf(node.StartPosition().Row)

		found := false
		parser.Walk(node, func(child *tree_sitter.Node) bool {
			switch child.Kind() {
			case "import_clause":
				return true
			case "identifier":
				// default import: local name binds the module itself
				if p := child.Parent(); p != nil && p.Kind() == "import_clause" {
					imports = append(imports, ImportDecl{Path: modPath, Alias: parser.NodeText(child, source), Line: line})
					found = true
				}
				return false
			case "namespace_import":
				if id := firstChildOfKind(child, "identifier"); id != nil {
					imports = append(imports, ImportDecl{Path: modPath, Alias: parser.NodeText(id, source), Line: line})
					found = true
				}
				return false
			case "import_specifier":
				imp := ImportDecl{Path: modPath, Line: line}
				if nn := child.ChildByFieldName("name"); nn != nil {
					imp.Symbol = parser.NodeText(nn, source)
				}
				if an := child.ChildByFieldName("alias"); an != nil {
					imp.Alias = parser.NodeText(an, source)
				}
				if imp.Symbol != "" {
					imports = append(imports, imp)
					found = true
				}
				return false
			case "named_imports":
				return true
			}
			return child.Kind() == "import_statement"
		})

		// Side-effect import: `import "mod"` — still a module reference.
		if !found {
			imports = append(imports, ImportDecl{Path: modPath, Line: line})
		}
		return false
	})
	return imports
}

// ResolveModule converts an import path to a repository-scoped module QN.
// Relative paths (Python leading dots, JS ./..) resolve against the importing
// file's directory; absolute paths are prefixed with the repository name.
func ResolveModule(repo, relPath string, imp ImportDecl) string {
	switch {
	case strings.HasPrefix(imp.Path, "."):
		if strings.HasPrefix(imp.Path, "./") || strings.HasPrefix(imp.Path, "../") {
			return resolveJSRelative(repo, relPath, imp.Path)
		}
		return resolvePythonRelative(repo, relPath, imp.Path)
	case strings.Contains(imp.Path, "/"):
		return resolveSlashPath(repo, imp.Path)
	case imp.Path == "":
		return repo
	default:
		// A dotted path already rooted at the repository name stays as-is.
		if imp.Path == repo || strings.HasPrefix(imp.Path, repo+".") {
			return imp.Path
		}
		return repo + "." + imp.Path
	}
}

// resolvePythonRelative resolves "from ..pkg import X" against the current file.
func resolvePythonRelative(repo, relPath, modulePath string) string {
	dots := 0
	for _, ch := range modulePath {
		if ch != '.' {
			break
		}
		dots++
	}
	remainder := strings.TrimLeft(modulePath, ".")

	dir := filepath.Dir(relPath)
	for i := 1; i < dots; i++ {
		dir = filepath.Dir(dir)
	}

	base := repo
	if dir != "." && dir != "" {
		base = repo + "." + strings.ReplaceAll(filepath.ToSlash(dir), "/", ".")
	}
	if remainder != "" {
		return base + "." + remainder
	}
	return base
}

// resolveJSRelative resolves "./sibling" / "../lib/util" against the current file.
func resolveJSRelative(repo, relPath, modulePath string) string {
	joined := filepath.ToSlash(filepath.Join(filepath.Dir(relPath), modulePath))
	joined = strings.TrimSuffix(joined, filepath.Ext(joined))
	joined = strings.TrimSuffix(joined, "/index")
	if joined == "." || joined == "" {
		return repo
	}
	return repo + "." + strings.ReplaceAll(joined, "/", ".")
}

// resolveSlashPath handles Go-style import paths. When a path segment matches
// the repository name, the remainder is repo-internal; otherwise the path is
// external and kept dotted as-is.
func resolveSlashPath(repo, importPath string) string {
	parts := strings.Split(importPath, "/")
	for i, part := range parts {
		if part == repo {
			return strings.Join(parts[i:], ".")
		}
	}
	return strings.Join(parts, ".")
}

// LocalName returns the name an import binds in the importing scope:
// the alias when present, else the symbol, else the last path segment.
func (imp ImportDecl) LocalName() string {
	if imp.Alias != "" {
		return imp.Alias
	}
	if imp.Symbol != "" {
		return imp.Symbol
	}
	return lastSegment(imp.Path)
}

// Target returns the repo-scoped QN the import binds to: the module QN, or
// module QN + symbol for from-style imports.
func (imp ImportDecl) Target(repo, relPath string) string {
	moduleQN := ResolveModule(repo, relPath, imp)
	if imp.Symbol != "" && imp.Symbol != "*" {
		return moduleQN + "." + imp.Symbol
	}
	return moduleQN
}

// ImportTable builds the local binding table for a file's imports:
// local name → repo-scoped qualified name.
func ImportTable(repo, relPath string, imports []ImportDecl) map[string]string {
	table := make(map[string]string, len(imports))
	for _, imp := range imports {
		local := imp.LocalName()
		if local == "" || local == "*" {
			continue
		}
		table[local] = imp.Target(repo, relPath)
	}
	return table
}

// stripQuotes removes surrounding quotes from a string literal.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
		if s[0] == '`' && s[len(s)-1] == '`' {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// lastSegment returns the final component of a dotted or slash path.
func lastSegment(path string) string {
	if idx := strings.LastIndexAny(path, "./"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
