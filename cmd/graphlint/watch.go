package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/graphlint/graphlint/internal/graph"
	"github.com/graphlint/graphlint/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch indexed repositories and re-index on change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			repos, err := s.ListRepositories()
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				return fmt.Errorf("no repositories indexed; run 'graphlint index' first")
			}
			for _, r := range repos {
				fmt.Printf("watching %s (%s)\n", r.Name, r.RootPath)
			}

			w := watcher.New(s, func(ctx context.Context, repoName, rootPath string) error {
				result, err := graph.New(s, rootPath, nil).Index(ctx)
				if err != nil {
					return err
				}
				slog.Info("reindexed", "repo", repoName,
					"created", result.Created, "updated", result.Updated, "pruned", result.Pruned)
				return nil
			})
			w.Run(cmd.Context())
			return nil
		},
	}
}
