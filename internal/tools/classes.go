package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphlint/graphlint/internal/store"
)

func (s *Server) handleListClasses(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	repo := getStringArg(args, "repository")
	if repo == "" {
		return errResult("repository is required"), nil
	}
	pattern := getStringArg(args, "pattern")
	limit := getIntArg(args, "limit", 50)

	var classes []*store.Node
	if pattern == "" {
		classes, err = s.store.FindNodesByLabel(repo, store.LabelClass)
		if err == nil && len(classes) > limit {
			classes = classes[:limit]
		}
	} else {
		classes, err = s.store.FindNodesByNameLike(repo, "%"+pattern+"%", store.LabelClass, limit)
	}
	if err != nil {
		return errResult(fmt.Sprintf("list classes: %v", err)), nil
	}

	type classInfo struct {
		Name          string   `json:"name"`
		QualifiedName string   `json:"qualified_name"`
		FilePath      string   `json:"file_path"`
		StartLine     int      `json:"start_line"`
		Bases         []string `json:"bases,omitempty"`
	}
	result := make([]classInfo, 0, len(classes))
	for _, c := range classes {
		result = append(result, classInfo{
			Name:          c.Name,
			QualifiedName: c.QualifiedName,
			FilePath:      c.FilePath,
			StartLine:     c.StartLine,
			Bases:         propStrings(c.Properties, "bases"),
		})
	}
	return jsonResult(result), nil
}

func (s *Server) handleGetClassMembers(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	repo := getStringArg(args, "repository")
	className := getStringArg(args, "class_name")
	if repo == "" || className == "" {
		return errResult("repository and class_name are required"), nil
	}

	cls, err := s.resolveClass(repo, className)
	if err != nil {
		return errResult(fmt.Sprintf("resolve class: %v", err)), nil
	}
	if cls == nil {
		return errResult(fmt.Sprintf("class not found: %s", className)), nil
	}

	ancestors, err := s.store.Ancestors(cls.ID, 10)
	if err != nil {
		return errResult(fmt.Sprintf("ancestors: %v", err)), nil
	}

	type memberInfo struct {
		Name      string `json:"name"`
		Label     string `json:"label"`
		DefinedOn string `json:"defined_on"`
		Inherited bool   `json:"inherited"`
		Signature string `json:"signature,omitempty"`
		StartLine int    `json:"start_line,omitempty"`
	}

	var members []memberInfo
	seen := map[string]bool{}
	for i, ancestor := range ancestors {
		edges, err := s.store.FindEdgesBySource(ancestor.ID)
		if err != nil {
			return errResult(fmt.Sprintf("members of %s: %v", ancestor.QualifiedName, err)), nil
		}
		for _, e := range edges {
			if e.Type != store.EdgeHasMethod && e.Type != store.EdgeHasAttribute {
				continue
			}
			node, err := s.store.FindNodeByID(e.TargetID)
			if err != nil || node == nil {
				continue
			}
			// Overrides shadow ancestor members of the same name.
			if seen[node.Name] {
				continue
			}
			seen[node.Name] = true
			members = append(members, memberInfo{
				Name:      node.Name,
				Label:     node.Label,
				DefinedOn: ancestor.QualifiedName,
				Inherited: i > 0,
				Signature: signatureOf(node),
				StartLine: node.StartLine,
			})
		}
	}

	ancestorQNs := make([]string, 0, len(ancestors)-1)
	for _, a := range ancestors[1:] {
		ancestorQNs = append(ancestorQNs, a.QualifiedName)
	}

	return jsonResult(map[string]any{
		"class":          cls.QualifiedName,
		"file_path":      cls.FilePath,
		"bases":          propStrings(cls.Properties, "bases"),
		"ancestors":      ancestorQNs,
		"members":        members,
	}), nil
}

// resolveClass accepts either a qualified or a simple class name; a simple
// name resolves to the lexicographically first match.
func (s *Server) resolveClass(repo, name string) (*store.Node, error) {
	if strings.Contains(name, ".") {
		node, err := s.store.FindNodeByQN(repo, name)
		if err != nil || node == nil {
			return node, err
		}
		if node.Label == store.LabelClass {
			return node, nil
		}
		return nil, nil
	}
	nodes, err := s.store.FindNodesByNameAndLabel(repo, name, store.LabelClass)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

// signatureOf renders a compact signature from recorded parameters.
func signatureOf(node *store.Node) string {
	params, ok := node.Properties["params"].([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		entry, ok := p.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		if ann, ok := entry["annotation"].(string); ok && ann != "" {
			name += ": " + ann
		}
		if def, _ := entry["has_default"].(bool); def {
			name += "=..."
		}
		parts = append(parts, name)
	}
	sig := "(" + strings.Join(parts, ", ") + ")"
	if variadic, _ := node.Properties["variadic"].(bool); variadic {
		sig = strings.TrimSuffix(sig, ")") + ", ...)"
	}
	return sig
}

// propStrings reads a string-slice property that round-tripped through JSON.
func propStrings(props map[string]any, key string) []string {
	items, ok := props[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
