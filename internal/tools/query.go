package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphlint/graphlint/internal/cypher"
)

func (s *Server) handleQueryGraph(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	query := getStringArg(args, "query")
	if query == "" {
		return errResult("query is required"), nil
	}

	exec := &cypher.Executor{Store: s.store}
	result, err := exec.Execute(query)
	if err != nil {
		return errResult(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(result), nil
}
