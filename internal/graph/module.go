package graph

import (
	"path/filepath"

	"github.com/graphlint/graphlint/internal/analyze"
	"github.com/graphlint/graphlint/internal/fqn"
	"github.com/graphlint/graphlint/internal/store"
)

// buildModuleGraph converts one file's declaration tree into graph nodes and
// QN-keyed pending edges: Module DEFINES classes and functions, Class
// HAS_METHOD / HAS_ATTRIBUTE members, Module IMPORTS targets. Base class
// names land in class properties and are resolved lazily by passInherits.
func buildModuleGraph(repo string, mod *analyze.ModuleDecl) ([]*store.Node, []pendingEdge) {
	var nodes []*store.Node
	var edges []pendingEdge

	moduleQN := fqn.ModuleQN(repo, mod.RelPath)
	nodes = append(nodes, &store.Node{
		Repo:          repo,
		Label:         store.LabelModule,
		Name:          filepath.Base(mod.RelPath),
		QualifiedName: moduleQN,
		FilePath:      mod.RelPath,
		Properties: map[string]any{
			"language": string(mod.Language),
		},
	})

	for i := range mod.Classes {
		cls := &mod.Classes[i]
		classQN := fqn.Compute(repo, mod.RelPath, cls.Name)

		classProps := map[string]any{}
		if len(cls.Bases) > 0 {
			classProps["bases"] = toAnySlice(cls.Bases)
		}
		if len(cls.Decorators) > 0 {
			classProps["decorators"] = toAnySlice(cls.Decorators)
		}

		nodes = append(nodes, &store.Node{
			Repo:          repo,
			Label:         store.LabelClass,
			Name:          fqn.SimpleName(classQN),
			QualifiedName: classQN,
			FilePath:      mod.RelPath,
			StartLine:     cls.StartLine,
			EndLine:       cls.EndLine,
			Properties:    classProps,
		})
		edges = append(edges, pendingEdge{SourceQN: moduleQN, TargetQN: classQN, Type: store.EdgeDefines})

		for j := range cls.Methods {
			m := &cls.Methods[j]
			methodQN := fqn.Member(classQN, m.Name)
			nodes = append(nodes, &store.Node{
				Repo:          repo,
				Label:         store.LabelMethod,
				Name:          m.Name,
				QualifiedName: methodQN,
				FilePath:      mod.RelPath,
				StartLine:     m.StartLine,
				EndLine:       m.EndLine,
				Properties:    funcProps(m),
			})
			edges = append(edges, pendingEdge{SourceQN: classQN, TargetQN: methodQN, Type: store.EdgeHasMethod})
		}

		for j := range cls.Attributes {
			a := &cls.Attributes[j]
			attrQN := fqn.Member(classQN, a.Name)
			attrProps := map[string]any{}
			if a.Annotation != "" {
				attrProps["annotation"] = a.Annotation
			}
			nodes = append(nodes, &store.Node{
				Repo:          repo,
				Label:         store.LabelAttribute,
				Name:          a.Name,
				QualifiedName: attrQN,
				FilePath:      mod.RelPath,
				StartLine:     a.Line,
				EndLine:       a.Line,
				Properties:    attrProps,
			})
			edges = append(edges, pendingEdge{SourceQN: classQN, TargetQN: attrQN, Type: store.EdgeHasAttribute})
		}
	}

	for i := range mod.Functions {
		fn := &mod.Functions[i]
		funcQN := fqn.Compute(repo, mod.RelPath, fn.Name)
		nodes = append(nodes, &store.Node{
			Repo:          repo,
			Label:         store.LabelFunction,
			Name:          fn.Name,
			QualifiedName: funcQN,
			FilePath:      mod.RelPath,
			StartLine:     fn.StartLine,
			EndLine:       fn.EndLine,
			Properties:    funcProps(fn),
		})
		edges = append(edges, pendingEdge{SourceQN: moduleQN, TargetQN: funcQN, Type: store.EdgeDefines})
	}

	for _, imp := range mod.Imports {
		props := map[string]any{"path": imp.Path}
		if imp.Symbol != "" {
			props["symbol"] = imp.Symbol
		}
		if imp.Alias != "" {
			props["alias"] = imp.Alias
		}
		target := analyze.ResolveModule(repo, mod.RelPath, imp)
		edges = append(edges, pendingEdge{
			SourceQN:   moduleQN,
			TargetQN:   target,
			Type:       store.EdgeImports,
			Properties: props,
		})
	}

	return nodes, edges
}

// funcProps encodes a function/method signature into node properties.
// Parameter order is preserved; the validator's arity checks depend on it.
func funcProps(fn *analyze.FuncDecl) map[string]any {
	params := make([]any, 0, len(fn.Params))
	for _, p := range fn.Params {
		entry := map[string]any{
			"name":        p.Name,
			"has_default": p.HasDefault,
		}
		if p.Annotation != "" {
			entry["annotation"] = p.Annotation
		}
		params = append(params, entry)
	}

	props := map[string]any{
		"params":          params,
		"required_params": analyze.RequiredParams(fn.Params),
		"total_params":    len(fn.Params),
		"variadic":        fn.Variadic,
	}
	if fn.Returns != "" {
		props["returns"] = fn.Returns
	}
	if len(fn.Decorators) > 0 {
		props["decorators"] = toAnySlice(fn.Decorators)
	}
	return props
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
