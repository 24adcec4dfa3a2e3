// Package tools exposes the graph and validator over MCP so coding agents
// can index repositories and check generated scripts before presenting them.
package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphlint/graphlint/internal/store"
)

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp     *mcp.Server
	store   *store.Store
	indexMu sync.Mutex // serializes writes; validation reads run freely
}

// NewServer creates the MCP server with all tools registered.
func NewServer(s *store.Store) *Server {
	srv := &Server{
		store: s,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "graphlint",
				Version: "0.1.0",
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_repository",
		Description: "Index a repository into the knowledge graph. Parses source files, extracts classes/methods/functions/attributes, resolves inheritance and imports, and stores the graph for validation. Re-indexing is incremental via content hashing.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repo_path": {
					"type": "string",
					"description": "Absolute path to the repository root to index."
				}
			},
			"required": ["repo_path"]
		}`),
	}, s.handleIndexRepository)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_batch",
		Description: "Index several repositories concurrently. Each repository is retried with backoff on failure; one failure never aborts the rest. Returns per-repository outcomes and the locations that failed permanently.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repo_paths": {
					"type": "array",
					"items": {"type": "string"},
					"description": "Absolute paths of the repository roots to index."
				},
				"max_concurrency": {
					"type": "integer",
					"description": "Worker budget (default 4)."
				},
				"max_retries": {
					"type": "integer",
					"description": "Retries per failing repository (default 2)."
				}
			},
			"required": ["repo_paths"]
		}`),
	}, s.handleIndexBatch)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "validate_script",
		Description: "Validate a candidate script against an indexed repository's knowledge graph. Flags calls to non-existent methods, wrong argument counts, and invented attributes. Returns a confidence score plus line-level findings; UNCERTAIN findings are listed separately from hallucinations.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repository": {
					"type": "string",
					"description": "Name of the indexed repository to validate against."
				},
				"script": {
					"type": "string",
					"description": "Full source text of the script to validate."
				},
				"language": {
					"type": "string",
					"description": "Script language: python, javascript, typescript, or go (default python).",
					"enum": ["python", "javascript", "typescript", "go"]
				}
			},
			"required": ["repository", "script"]
		}`),
	}, s.handleValidateScript)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_repositories",
		Description: "List indexed repositories with node/edge counts and index timestamps.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleListRepositories)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "delete_repository",
		Description: "Remove a repository and its entire graph from the store.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repository": {
					"type": "string",
					"description": "Name of the repository to delete."
				}
			},
			"required": ["repository"]
		}`),
	}, s.handleDeleteRepository)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_classes",
		Description: "List classes in an indexed repository, optionally filtered by a name substring.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repository": {
					"type": "string",
					"description": "Name of the indexed repository."
				},
				"pattern": {
					"type": "string",
					"description": "Case-insensitive substring filter on class names."
				},
				"limit": {
					"type": "integer",
					"description": "Maximum classes to return (default 50)."
				}
			},
			"required": ["repository"]
		}`),
	}, s.handleListClasses)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_class_members",
		Description: "Show a class with its methods, attributes, and inherited members walked breadth-first over the inheritance chain.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repository": {
					"type": "string",
					"description": "Name of the indexed repository."
				},
				"class_name": {
					"type": "string",
					"description": "Simple or qualified class name (e.g. 'Invoice' or 'billing.models.Invoice')."
				}
			},
			"required": ["repository", "class_name"]
		}`),
	}, s.handleGetClassMembers)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "query_graph",
		Description: "Run a read-only Cypher-subset query against the graph across all indexed repositories. Supports MATCH with labels, relationship types, variable-length paths, WHERE (=, =~, CONTAINS, STARTS WITH, numeric comparisons), RETURN with DISTINCT/COUNT/ORDER BY/LIMIT.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "Cypher query, e.g. MATCH (c:Class)-[:HAS_METHOD]->(m:Method) RETURN c.name, m.name"
				}
			},
			"required": ["query"]
		}`),
	}, s.handleQueryGraph)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_graph_stats",
		Description: "Summarize a repository's graph: node counts per label, edge counts per type, and sample class names.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repository": {
					"type": "string",
					"description": "Name of the indexed repository."
				}
			},
			"required": ["repository"]
		}`),
	}, s.handleGetGraphStats)
}

// jsonResult marshals data to JSON and returns it as a tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// getStringSliceArg extracts a string-array argument from parsed args.
func getStringSliceArg(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	items, ok := v.([]any)
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
