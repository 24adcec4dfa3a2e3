package analyze

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/graphlint/graphlint/internal/lang"
	"github.com/graphlint/graphlint/internal/parser"
)

// extractParams returns a function's ordered parameter list and whether the
// signature accepts a variadic tail (*args/**kwargs, ...rest, variadic Go).
// Order is load-bearing: the validator's arity check depends on it.
func extractParams(paramsNode *tree_sitter.Node, source []byte, language lang.Language) ([]Param, bool) {
	switch language {
	case lang.Python:
		return extractPythonParams(paramsNode, source)
	case lang.Go:
		return extractGoParams(paramsNode, source)
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		return extractJSParams(paramsNode, source)
	default:
		return nil, false
	}
}

func extractPythonParams(paramsNode *tree_sitter.Node, source []byte) ([]Param, bool) {
	var params []Param
	variadic := false

	for i := uint(0); i < paramsNode.NamedChildCount(); i++ {
		child := paramsNode.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			params = append(params, Param{Name: parser.NodeText(child, source)})

		case "typed_parameter":
			p := Param{}
			if id := firstChildOfKind(child, "identifier"); id != nil {
				p.Name = parser.NodeText(id, source)
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.Annotation = parser.NodeText(t, source)
			}
			if p.Name != "" {
				params = append(params, p)
			}

		case "default_parameter", "typed_default_parameter":
			p := Param{HasDefault: true}
			if nn := child.ChildByFieldName("name"); nn != nil {
				p.Name = parser.NodeText(nn, source)
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.Annotation = parser.NodeText(t, source)
			}
			if p.Name != "" {
				params = append(params, p)
			}

		case "list_splat_pattern", "dictionary_splat_pattern":
			variadic = true
		}
	}
	return params, variadic
}

func extractGoParams(paramsNode *tree_sitter.Node, source []byte) ([]Param, bool) {
	var params []Param
	variadic := false

	for i := uint(0); i < paramsNode.NamedChildCount(); i++ {
		child := paramsNode.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "parameter_declaration", "variadic_parameter_declaration":
			if child.Kind() == "variadic_parameter_declaration" {
				variadic = true
			}
			annotation := ""
			if t := child.ChildByFieldName("type"); t != nil {
				annotation = parser.NodeText(t, source)
			}
			// `a, b int` declares two parameters sharing one type.
			named := false
			for j := uint(0); j < child.ChildCount(); j++ {
				idNode := child.Child(j)
				if idNode != nil && idNode.Kind() == "identifier" {
					named = true
					params = append(params, Param{
						Name:       parser.NodeText(idNode, source),
						Annotation: annotation,
					})
				}
			}
			// Unnamed parameter (interface method signatures): keep position.
			if !named && child.Kind() == "parameter_declaration" {
				params = append(params, Param{Annotation: annotation})
			}
		}
	}
	return params, variadic
}

func extractJSParams(paramsNode *tree_sitter.Node, source []byte) ([]Param, bool) {
	var params []Param
	variadic := false

	for i := uint(0); i < paramsNode.NamedChildCount(); i++ {
		child := paramsNode.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			params = append(params, Param{Name: parser.NodeText(child, source)})

		case "assignment_pattern":
			p := Param{HasDefault: true}
			if left := child.ChildByFieldName("left"); left != nil {
				p.Name = parser.NodeText(left, source)
			}
			if p.Name != "" {
				params = append(params, p)
			}

		case "rest_pattern":
			variadic = true

		case "required_parameter", "optional_parameter":
			// TS parameters wrap the pattern and carry a type annotation.
			pattern := child.ChildByFieldName("pattern")
			if pattern != nil && pattern.Kind() == "rest_pattern" {
				variadic = true
				continue
			}
			p := Param{HasDefault: child.Kind() == "optional_parameter"}
			if pattern != nil {
				p.Name = parser.NodeText(pattern, source)
			}
			if child.ChildByFieldName("value") != nil {
				p.HasDefault = true
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.Annotation = trimAnnotation(parser.NodeText(t, source))
			}
			if p.Name != "" {
				params = append(params, p)
			}
		}
	}
	return params, variadic
}

// RequiredParams returns the count of parameters without defaults.
func RequiredParams(params []Param) int {
	n := 0
	for _, p := range params {
		if !p.HasDefault {
			n++
		}
	}
	return n
}

func firstChildOfKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// trimAnnotation strips annotation punctuation: ": int" → "int", "-> str" → "str".
func trimAnnotation(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "->")
	s = strings.TrimPrefix(s, ":")
	return strings.TrimSpace(s)
}

// trimDecorator normalizes "@app.route(...)" to "app.route".
func trimDecorator(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "@"))
	if idx := strings.IndexByte(s, '('); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// lineOf converts a tree-sitter row (uint) to a 1-based line number.
func lineOf(row uint) int {
	const maxInt = int(^uint(0) >> 1)
	if row > uint(maxInt-1) {
		return maxInt
	}
	return int(row) + 1
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}

// stripBOM removes a UTF-8 BOM from the start of source; tree-sitter may
// choke on BOM bytes.
func stripBOM(source []byte) []byte {
	if len(source) >= 3 && source[0] == 0xEF && source[1] == 0xBB && source[2] == 0xBF {
		return source[3:]
	}
	return source
}
