package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphlint/graphlint/internal/cypher"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <cypher>",
		Short: "Run a read-only Cypher query against the graph",
		Long:  `Run a Cypher-subset query across all indexed repositories, e.g.:
  graphlint query 'MATCH (c:Class)-[:INHERITS_FROM*1..3]->(a:Class) RETURN c.name, a.name'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			exec := &cypher.Executor{Store: s}
			result, err := exec.Execute(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
