package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleListRepositories(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repos, err := s.store.ListRepositories()
	if err != nil {
		return errResult(fmt.Sprintf("list repositories: %v", err)), nil
	}

	type repoInfo struct {
		Name      string `json:"name"`
		RootPath  string `json:"root_path"`
		IndexedAt string `json:"indexed_at"`
		Nodes     int    `json:"nodes"`
		Edges     int    `json:"edges"`
	}

	result := make([]repoInfo, 0, len(repos))
	for _, r := range repos {
		nc, _ := s.store.CountNodes(r.Name)
		ec, _ := s.store.CountEdges(r.Name)
		result = append(result, repoInfo{
			Name:      r.Name,
			RootPath:  r.RootPath,
			IndexedAt: r.IndexedAt,
			Nodes:     nc,
			Edges:     ec,
		})
	}
	return jsonResult(result), nil
}

func (s *Server) handleDeleteRepository(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	name := getStringArg(args, "repository")
	if name == "" {
		return errResult("repository is required"), nil
	}

	repo, _ := s.store.GetRepository(name)
	if repo == nil {
		return errResult(fmt.Sprintf("repository not found: %s", name)), nil
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if err := s.store.DeleteRepository(name); err != nil {
		return errResult(fmt.Sprintf("delete failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"deleted": name,
		"status":  "ok",
	}), nil
}

func (s *Server) handleGetGraphStats(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	name := getStringArg(args, "repository")
	if name == "" {
		return errResult("repository is required"), nil
	}

	stats, err := s.store.GetStats(name)
	if err != nil {
		return errResult(fmt.Sprintf("stats failed: %v", err)), nil
	}
	return jsonResult(stats), nil
}
