// Package analyze converts source text into a language-agnostic declaration
// tree: classes with base names, functions and methods with ordered parameter
// lists, statically-declared attributes, and import bindings. It is shared by
// the repository indexer and the script validator.
package analyze

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/graphlint/graphlint/internal/lang"
	"github.com/graphlint/graphlint/internal/parser"
)

// Param describes one ordered parameter of a function or method.
type Param struct {
	Name       string
	HasDefault bool
	Annotation string
}

// FuncDecl is a function or method declaration.
type FuncDecl struct {
	Name       string
	Params     []Param
	Variadic   bool
	Returns    string
	Decorators []string
	StartLine  int
	EndLine    int
}

// AttrDecl is a statically-declared attribute on a class.
type AttrDecl struct {
	Name       string
	Annotation string
	Line       int
}

// ClassDecl is a class/struct declaration with its members.
type ClassDecl struct {
	Name       string
	Bases      []string
	Methods    []FuncDecl
	Attributes []AttrDecl
	Decorators []string
	StartLine  int
	EndLine    int
}

// ImportDecl is one imported binding as written in the source.
type ImportDecl struct {
	Path   string // dotted or slash-separated module path, may be relative (".pkg")
	Symbol string // imported symbol for from-style imports, "" for whole-module imports
	Alias  string // local alias, "" if none
	Line   int
}

// ModuleDecl is the declaration tree for one source file.
type ModuleDecl struct {
	RelPath   string
	Language  lang.Language
	Classes   []ClassDecl
	Functions []FuncDecl
	Imports   []ImportDecl
}

// File parses source text and extracts its declaration tree.
// A malformed construct is skipped, never fatal; only a whole-file parse
// failure returns an error, so batch indexing tolerates broken files.
func File(relPath string, language lang.Language, source []byte) (*ModuleDecl, error) {
	spec := lang.ForLanguage(language)
	if spec == nil {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}

	source = stripBOM(source)
	tree, err := parser.Parse(language, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	defer tree.Close()

	mod := &ModuleDecl{RelPath: relPath, Language: language}
	root := tree.RootNode()

	classTypes := toSet(spec.ClassNodeTypes)
	funcTypes := toSet(spec.FunctionNodeTypes)

	parser.Walk(root, func(node *tree_sitter.Node) bool {
		kind := node.Kind()

		if classTypes[kind] {
			collectClass(mod, node, source, language, spec, "")
			return false
		}

		if funcTypes[kind] {
			// Go methods carry their own receiver; attach to the receiver's class
			// after the walk. Everything else at this point is a module function.
			if language == lang.Go && kind == "method_declaration" {
				attachGoMethod(mod, node, source)
				return false
			}
			if fd, ok := extractFunc(node, source, language, spec); ok {
				mod.Functions = append(mod.Functions, fd)
			}
			return false
		}

		return true
	})

	mod.Imports = extractImports(root, source, language)
	return mod, nil
}

// collectClass extracts a class declaration and appends it to the module,
// recursing into nested classes. Nested class names are dotted onto their
// owner ("Outer.Inner") so qualified names stay unique.
func collectClass(mod *ModuleDecl, node *tree_sitter.Node, source []byte, language lang.Language, spec *lang.LanguageSpec, prefix string) {
	cd, ok := extractClass(mod, node, source, language, spec, prefix)
	if !ok {
		return
	}
	mod.Classes = append(mod.Classes, cd)
}

// extractClass pulls a class declaration with bases, methods, and attributes.
func extractClass(mod *ModuleDecl, node *tree_sitter.Node, source []byte, language lang.Language, spec *lang.LanguageSpec, prefix string) (ClassDecl, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ClassDecl{}, false
	}
	name := parser.NodeText(nameNode, source)
	if name == "" {
		return ClassDecl{}, false
	}

	// Go type_spec: only struct and interface types act as classes here.
	if language == lang.Go {
		typeNode := node.ChildByFieldName("type")
		if typeNode == nil {
			return ClassDecl{}, false
		}
		switch typeNode.Kind() {
		case "struct_type", "interface_type":
		default:
			return ClassDecl{}, false
		}
	}

	if prefix != "" {
		name = prefix + "." + name
	}

	cd := ClassDecl{
		Name:      name,
		Bases:     extractBases(node, source, language),
		StartLine: lineOf(node.StartPosition().Row),
		EndLine:   lineOf(node.EndPosition().Row),
	}
	cd.Decorators = extractDecorators(node, source, spec)

	extractClassMembers(mod, &cd, node, source, language, spec)
	return cd, true
}

// extractClassMembers walks a class body for methods and attribute declarations.
func extractClassMembers(mod *ModuleDecl, cd *ClassDecl, classNode *tree_sitter.Node, source []byte, language lang.Language, spec *lang.LanguageSpec) {
	funcTypes := toSet(spec.FunctionNodeTypes)
	fieldTypes := toSet(spec.FieldNodeTypes)
	classTypes := toSet(spec.ClassNodeTypes)

	parser.Walk(classNode, func(child *tree_sitter.Node) bool {
		if child.Id() == classNode.Id() {
			return true
		}
		kind := child.Kind()

		if classTypes[kind] {
			collectClass(mod, child, source, language, spec, cd.Name)
			return false
		}

		if funcTypes[kind] {
			if fd, ok := extractFunc(child, source, language, spec); ok {
				if language == lang.Python {
					fd.Params = dropReceiverParam(fd.Params)
				}
				cd.Methods = append(cd.Methods, fd)
				// Python instance attributes: self.x = ... inside the method body.
				if language == lang.Python {
					collectSelfAssignments(cd, child, source)
				}
			}
			return false
		}

		if fieldTypes[kind] {
			if ad, ok := extractField(child, source); ok {
				cd.Attributes = append(cd.Attributes, ad)
			}
			return false
		}

		// Python class-body attribute: `x: int = 0` or `x = 0` directly in the body.
		if language == lang.Python && kind == "assignment" {
			if ad, ok := extractPythonClassAttr(child, source); ok {
				cd.Attributes = append(cd.Attributes, ad)
			}
			return false
		}

		return true
	})

	dedupeAttributes(cd)
}

// extractFunc pulls a function/method declaration with its parameter list.
func extractFunc(node *tree_sitter.Node, source []byte, language lang.Language, spec *lang.LanguageSpec) (FuncDecl, bool) {
	nameNode := funcNameNode(node, language)
	if nameNode == nil {
		return FuncDecl{}, false
	}
	name := parser.NodeText(nameNode, source)
	if name == "" {
		return FuncDecl{}, false
	}

	fd := FuncDecl{
		Name:      name,
		StartLine: lineOf(node.StartPosition().Row),
		EndLine:   lineOf(node.EndPosition().Row),
	}

	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		fd.Params, fd.Variadic = extractParams(paramsNode, source, language)
	}

	for _, field := range []string{"return_type", "result", "type"} {
		if rt := node.ChildByFieldName(field); rt != nil {
			fd.Returns = trimAnnotation(parser.NodeText(rt, source))
			break
		}
	}

	fd.Decorators = extractDecorators(node, source, spec)
	return fd, true
}

// funcNameNode resolves the name node for a function, handling arrow functions
// assigned to a const/variable (JS/TS).
func funcNameNode(node *tree_sitter.Node, language lang.Language) *tree_sitter.Node {
	if nn := node.ChildByFieldName("name"); nn != nil {
		return nn
	}
	switch language {
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		if node.Kind() == "arrow_function" || node.Kind() == "function_expression" {
			if p := node.Parent(); p != nil && p.Kind() == "variable_declarator" {
				return p.ChildByFieldName("name")
			}
		}
	}
	return nil
}

// attachGoMethod associates a Go method_declaration with the class of its
// receiver type, creating a bodiless placeholder class when the receiver type
// is declared in another file of the same package.
func attachGoMethod(mod *ModuleDecl, node *tree_sitter.Node, source []byte) {
	recvNode := node.ChildByFieldName("receiver")
	if recvNode == nil {
		return
	}
	recvType := goReceiverType(recvNode, source)
	if recvType == "" {
		return
	}

	spec := lang.ForLanguage(lang.Go)
	fd, ok := extractFunc(node, source, lang.Go, spec)
	if !ok {
		return
	}

	for i := range mod.Classes {
		if mod.Classes[i].Name == recvType {
			mod.Classes[i].Methods = append(mod.Classes[i].Methods, fd)
			return
		}
	}
	mod.Classes = append(mod.Classes, ClassDecl{
		Name:      recvType,
		Methods:   []FuncDecl{fd},
		StartLine: fd.StartLine,
		EndLine:   fd.EndLine,
	})
}

// goReceiverType extracts the bare type name from a Go receiver parameter list,
// stripping pointer and generic markers: `(s *Server[T])` → "Server".
func goReceiverType(recvNode *tree_sitter.Node, source []byte) string {
	var typeName string
	parser.Walk(recvNode, func(n *tree_sitter.Node) bool {
		if typeName != "" {
			return false
		}
		if n.Kind() == "type_identifier" {
			typeName = parser.NodeText(n, source)
			return false
		}
		return true
	})
	return typeName
}

// extractBases returns declared base-class names. They are recorded verbatim
// and resolved lazily when INHERITS_FROM edges are built.
func extractBases(node *tree_sitter.Node, source []byte, language lang.Language) []string {
	switch language {
	case lang.Python:
		supers := node.ChildByFieldName("superclasses")
		if supers == nil {
			return nil
		}
		var bases []string
		for i := uint(0); i < supers.NamedChildCount(); i++ {
			arg := supers.NamedChild(i)
			if arg == nil {
				continue
			}
			switch arg.Kind() {
			case "identifier", "attribute":
				bases = append(bases, parser.NodeText(arg, source))
			case "keyword_argument":
				// metaclass=..., not a base
			}
		}
		return bases
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		var bases []string
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil || child.Kind() != "class_heritage" {
				continue
			}
			parser.Walk(child, func(n *tree_sitter.Node) bool {
				switch n.Kind() {
				case "identifier", "member_expression":
					bases = append(bases, parser.NodeText(n, source))
					return false
				}
				return true
			})
		}
		return bases
	default:
		// Go has no inheritance; embedded fields are not member-resolution bases.
		return nil
	}
}

// extractField pulls a field/attribute declaration from a class body
// (TS public_field_definition, JS field_definition, Go field_declaration).
func extractField(node *tree_sitter.Node, source []byte) (AttrDecl, bool) {
	var nameNode *tree_sitter.Node
	for _, field := range []string{"name", "property"} {
		if nn := node.ChildByFieldName(field); nn != nil {
			nameNode = nn
			break
		}
	}
	if nameNode == nil {
		// Go struct fields use field_identifier children, no "name" field.
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() == "field_identifier" {
				nameNode = child
				break
			}
		}
	}
	if nameNode == nil {
		return AttrDecl{}, false
	}
	name := parser.NodeText(nameNode, source)
	if name == "" {
		return AttrDecl{}, false
	}

	ad := AttrDecl{Name: name, Line: lineOf(node.StartPosition().Row)}
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		ad.Annotation = trimAnnotation(parser.NodeText(typeNode, source))
	}
	return ad, true
}

// extractPythonClassAttr handles `x = 0` / `x: int = 0` in a class body.
func extractPythonClassAttr(node *tree_sitter.Node, source []byte) (AttrDecl, bool) {
	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return AttrDecl{}, false
	}
	ad := AttrDecl{
		Name: parser.NodeText(left, source),
		Line: lineOf(node.StartPosition().Row),
	}
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		ad.Annotation = parser.NodeText(typeNode, source)
	}
	return ad, true
}

// collectSelfAssignments records `self.<name> = ...` targets inside a method
// body as instance attributes of the owning class.
func collectSelfAssignments(cd *ClassDecl, methodNode *tree_sitter.Node, source []byte) {
	parser.Walk(methodNode, func(n *tree_sitter.Node) bool {
		if n.Kind() != "assignment" && n.Kind() != "augmented_assignment" {
			return true
		}
		left := n.ChildByFieldName("left")
		if left == nil || left.Kind() != "attribute" {
			return true
		}
		obj := left.ChildByFieldName("object")
		attr := left.ChildByFieldName("attribute")
		if obj == nil || attr == nil || parser.NodeText(obj, source) != "self" {
			return true
		}
		ad := AttrDecl{
			Name: parser.NodeText(attr, source),
			Line: lineOf(n.StartPosition().Row),
		}
		if typeNode := n.ChildByFieldName("type"); typeNode != nil {
			ad.Annotation = parser.NodeText(typeNode, source)
		}
		cd.Attributes = append(cd.Attributes, ad)
		return true
	})
}

// extractDecorators returns decorator names attached to a definition node.
// Python/TS decorators are siblings preceding the definition.
func extractDecorators(node *tree_sitter.Node, source []byte, spec *lang.LanguageSpec) []string {
	if len(spec.DecoratorNodeTypes) == 0 {
		return nil
	}
	decoTypes := toSet(spec.DecoratorNodeTypes)

	parent := node.Parent()
	if parent == nil {
		return nil
	}
	// Python wraps decorated defs in a decorated_definition node.
	scan := parent
	if parent.Kind() != "decorated_definition" {
		scan = node
	}

	var decorators []string
	for i := uint(0); i < scan.ChildCount(); i++ {
		child := scan.Child(i)
		if child == nil || !decoTypes[child.Kind()] {
			continue
		}
		text := parser.NodeText(child, source)
		text = trimDecorator(text)
		if text != "" {
			decorators = append(decorators, text)
		}
	}
	return decorators
}

// dropReceiverParam strips a leading self/cls parameter from a Python method.
func dropReceiverParam(params []Param) []Param {
	if len(params) > 0 && (params[0].Name == "self" || params[0].Name == "cls") {
		return params[1:]
	}
	return params
}

// dedupeAttributes removes repeated attribute names, keeping the first
// occurrence (a class-body annotation wins over a later self-assignment).
func dedupeAttributes(cd *ClassDecl) {
	if len(cd.Attributes) < 2 {
		return
	}
	seen := make(map[string]int, len(cd.Attributes))
	out := cd.Attributes[:0]
	for _, a := range cd.Attributes {
		if idx, ok := seen[a.Name]; ok {
			if out[idx].Annotation == "" && a.Annotation != "" {
				out[idx].Annotation = a.Annotation
			}
			continue
		}
		seen[a.Name] = len(out)
		out = append(out, a)
	}
	cd.Attributes = out
}
