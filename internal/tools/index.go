package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphlint/graphlint/internal/batch"
	"github.com/graphlint/graphlint/internal/graph"
)

func (s *Server) handleIndexRepository(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	repoPath := getStringArg(args, "repo_path")
	if repoPath == "" {
		return errResult("repo_path is required"), nil
	}
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return errResult(fmt.Sprintf("invalid path: %v", err)), nil
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	b := graph.New(s.store, absPath, nil)
	result, err := b.Index(ctx)
	if err != nil {
		return errResult(fmt.Sprintf("indexing failed: %v", err)), nil
	}

	nodeCount, _ := s.store.CountNodes(b.RepoName)
	edgeCount, _ := s.store.CountEdges(b.RepoName)

	return jsonResult(map[string]any{
		"repository": b.RepoName,
		"created":    result.Created,
		"updated":    result.Updated,
		"skipped":    result.Skipped,
		"pruned":     result.Pruned,
		"errors":     result.Errors,
		"nodes":      nodeCount,
		"edges":      edgeCount,
	}), nil
}

func (s *Server) handleIndexBatch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	locations := getStringSliceArg(args, "repo_paths")
	if len(locations) == 0 {
		return errResult("repo_paths is required"), nil
	}
	opts := &batch.Options{
		MaxConcurrency: getIntArg(args, "max_concurrency", batch.DefaultMaxConcurrency),
		MaxRetries:     getIntArg(args, "max_retries", batch.DefaultMaxRetries),
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	result := batch.IndexBatch(ctx, s.store, locations, opts)

	type repoOutcome struct {
		Repository string `json:"repository"`
		Location   string `json:"location"`
		Attempts   int    `json:"attempts"`
		Error      string `json:"error,omitempty"`
	}
	outcomes := make([]repoOutcome, 0, len(result.Results))
	for _, r := range result.Results {
		o := repoOutcome{Repository: r.Repo, Location: r.Location, Attempts: r.Attempts}
		if r.Err != nil {
			o.Error = r.Err.Error()
		}
		outcomes = append(outcomes, o)
	}

	return jsonResult(map[string]any{
		"succeeded":        result.Succeeded,
		"failed":           result.Failed,
		"retried":          result.Retried,
		"failed_locations": result.FailedLocations,
		"repositories":     outcomes,
	}), nil
}
