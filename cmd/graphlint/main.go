// graphlint indexes repositories into a knowledge graph and validates
// AI-generated scripts against it.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphlint/graphlint/internal/store"
)

var version = "dev"

var (
	flagDBPath  string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "graphlint",
		Short:         "Validate AI-generated code against a real codebase's structure",
		Long:          "graphlint compiles a repository into a knowledge graph of its classes, methods, functions, attributes, inheritance, and imports, then cross-checks candidate scripts against that graph to flag hallucinated symbols.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if flagVerbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&flagDBPath, "db", "", "graph database path (default ~/.cache/graphlint/graphlint.db)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIndexCmd(),
		newBatchCmd(),
		newValidateCmd(),
		newReposCmd(),
		newClassesCmd(),
		newQueryCmd(),
		newWatchCmd(),
		newServeCmd(),
		newUpdateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openStore opens the shared graph database honoring the --db flag.
func openStore() (*store.Store, error) {
	if flagDBPath != "" {
		return store.OpenPath(flagDBPath)
	}
	return store.Open()
}
