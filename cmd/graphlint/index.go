package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/graphlint/graphlint/internal/batch"
	"github.com/graphlint/graphlint/internal/graph"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <repo-path>",
		Short: "Index one repository into the knowledge graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("invalid path: %w", err)
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			b := graph.New(s, absPath, nil)
			result, err := b.Index(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%s: created %d, updated %d, skipped %d, pruned %d\n",
				b.RepoName, result.Created, result.Updated, result.Skipped, result.Pruned)
			for _, e := range result.Errors {
				fmt.Println("  error:", e)
			}
			return nil
		},
	}
}

func newBatchCmd() *cobra.Command {
	var concurrency, retries int

	cmd := &cobra.Command{
		Use:   "batch <repo-path>...",
		Short: "Index several repositories concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			result := batch.IndexBatch(cmd.Context(), s, args, &batch.Options{
				MaxConcurrency: concurrency,
				MaxRetries:     retries,
			})

			fmt.Printf("succeeded %d, failed %d, retried %d\n", result.Succeeded, result.Failed, result.Retried)
			for _, loc := range result.FailedLocations {
				fmt.Println("  failed:", loc)
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d repositories failed", result.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", batch.DefaultMaxConcurrency, "worker budget")
	cmd.Flags().IntVar(&retries, "retries", batch.DefaultMaxRetries, "retries per failing repository")
	return cmd
}
