package graph

import (
	"log/slog"

	"github.com/graphlint/graphlint/internal/fqn"
	"github.com/graphlint/graphlint/internal/store"
)

// passInherits rebuilds INHERITS_FROM edges from the bases property on Class
// nodes. Declared base names are resolved lazily here so classes can inherit
// from bases declared in files indexed later in the same pass (or not
// re-parsed at all). Runs inside the index transaction.
func (b *Builder) passInherits(tx *store.Store) error {
	slog.Info("pass.inherits", "repo", b.RepoName)

	if err := tx.DeleteEdgesByType(b.RepoName, store.EdgeInheritsFrom); err != nil {
		return err
	}

	classes, err := tx.FindNodesByLabel(b.RepoName, store.LabelClass)
	if err != nil {
		return err
	}

	// Name index over the repo's classes for base resolution.
	byName := make(map[string][]*store.Node, len(classes))
	byQN := make(map[string]*store.Node, len(classes))
	for _, c := range classes {
		byName[c.Name] = append(byName[c.Name], c)
		byQN[c.QualifiedName] = c
	}

	var edges []*store.Edge
	count := 0
	for _, c := range classes {
		bases, ok := c.Properties["bases"].([]any)
		if !ok {
			continue
		}
		moduleQN := fqn.Prefix(c.QualifiedName)

		for _, raw := range bases {
			baseName, ok := raw.(string)
			if !ok || baseName == "" {
				continue
			}
			target := resolveBase(baseName, moduleQN, byName, byQN)
			if target == nil || target.ID == c.ID {
				continue
			}
			edges = append(edges, &store.Edge{
				Repo:     b.RepoName,
				SourceID: c.ID,
				TargetID: target.ID,
				Type:     store.EdgeInheritsFrom,
			})
			count++
		}
	}

	if err := tx.InsertEdgeBatch(edges); err != nil {
		return err
	}
	slog.Info("pass.inherits.done", "repo", b.RepoName, "edges", count)
	return nil
}

// resolveBase maps a declared base name to a class node. Same-module classes
// win; otherwise a dotted base's last segment or a unique repo-wide name
// match resolves it. Ambiguous names with no same-module candidate pick the
// first match in name order.
func resolveBase(baseName, moduleQN string, byName map[string][]*store.Node, byQN map[string]*store.Node) *store.Node {
	// Same module, exact simple name: "Base" → module.Base
	if c, ok := byQN[fqn.Member(moduleQN, baseName)]; ok {
		return c
	}

	simple := fqn.SimpleName(baseName)
	if c, ok := byQN[fqn.Member(moduleQN, simple)]; ok {
		return c
	}

	candidates := byName[simple]
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, c := range candidates {
		if fqn.Prefix(c.QualifiedName) == moduleQN {
			return c
		}
		if c.QualifiedName < best.QualifiedName {
			best = c
		}
	}
	return best
}
