package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphlint/graphlint/internal/config"
	"github.com/graphlint/graphlint/internal/lang"
	"github.com/graphlint/graphlint/internal/report"
	"github.com/graphlint/graphlint/internal/usage"
	"github.com/graphlint/graphlint/internal/validate"
)

func (s *Server) handleValidateScript(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	repo := getStringArg(args, "repository")
	script := getStringArg(args, "script")
	if repo == "" || script == "" {
		return errResult("repository and script are required"), nil
	}

	cfg := config.Default()
	language := lang.Language(getStringArg(args, "language"))
	if language == "" {
		language = lang.Language(cfg.EffectiveLanguage())
	}

	usages, err := usage.Extract([]byte(script), language)
	if err != nil {
		return errResult(fmt.Sprintf("script does not parse as %s: %v", language, err)), nil
	}

	verdicts, err := validate.New(s.store, cfg).Validate(ctx, repo, usages)
	if err != nil {
		return errResult(fmt.Sprintf("validation failed: %v", err)), nil
	}

	return jsonResult(report.Summarize(verdicts)), nil
}
