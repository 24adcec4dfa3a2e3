package store

import (
	"fmt"
	"sort"
)

// RepoStats summarizes an indexed repository's graph.
type RepoStats struct {
	Repository       string       `json:"repository"`
	IndexedAt        string       `json:"indexed_at"`
	NodeLabels       []LabelCount `json:"node_labels"`
	EdgeTypes        []TypeCount  `json:"edge_types"`
	SampleClassNames []string     `json:"sample_class_names"`
}

// LabelCount is a label with its count.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TypeCount is an edge type with its count.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// GetStats returns graph statistics for a repository.
func (s *Store) GetStats(repo string) (*RepoStats, error) {
	stats := &RepoStats{Repository: repo}

	if r, err := s.GetRepository(repo); err != nil {
		return nil, err
	} else if r != nil {
		stats.IndexedAt = r.IndexedAt
	}

	labelCounts, err := s.CountNodesByLabel(repo)
	if err != nil {
		return nil, err
	}
	for label, count := range labelCounts {
		stats.NodeLabels = append(stats.NodeLabels, LabelCount{Label: label, Count: count})
	}
	sort.Slice(stats.NodeLabels, func(i, j int) bool { return stats.NodeLabels[i].Count > stats.NodeLabels[j].Count })

	typeCounts, err := s.CountEdgesByType(repo)
	if err != nil {
		return nil, err
	}
	for edgeType, count := range typeCounts {
		stats.EdgeTypes = append(stats.EdgeTypes, TypeCount{Type: edgeType, Count: count})
	}
	sort.Slice(stats.EdgeTypes, func(i, j int) bool { return stats.EdgeTypes[i].Count > stats.EdgeTypes[j].Count })

	if stats.SampleClassNames, err = s.sampleNames(repo, LabelClass, 20); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) sampleNames(repo, label string, limit int) ([]string, error) {
	rows, err := s.q.Query("SELECT name FROM nodes WHERE repo=? AND label=? ORDER BY name LIMIT ?", repo, label, limit)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", label, err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
