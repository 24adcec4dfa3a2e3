package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphlint/graphlint/internal/store"
)

func newReposCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List indexed repositories",
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
				fmt.Println("no repositories indexed")
				return nil
			}
			for _, r := range repos {
				nc, _ := s.CountNodes(r.Name)
				ec, _ := s.CountEdges(r.Name)
				fmt.Printf("%s  %d nodes, %d edges  indexed %s  (%s)\n", r.Name, nc, ec, r.IndexedAt, r.RootPath)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <repository>",
		Short: "Remove a repository's graph from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			repo, err := s.GetRepository(args[0])
			if err != nil {
				return err
			}
			if repo == nil {
				return fmt.Errorf("repository not found: %s", args[0])
			}
			if err := s.DeleteRepository(args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		},
	})
	return cmd
}

func newClassesCmd() *cobra.Command {
	var pattern string
	var limit int

	cmd := &cobra.Command{
		Use:   "classes <repository>",
		Short: "List classes in an indexed repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			var classes []*store.Node
			if pattern == "" {
				classes, err = s.FindNodesByLabel(args[0], store.LabelClass)
				if err == nil && len(classes) > limit {
					classes = classes[:limit]
				}
			} else {
				classes, err = s.FindNodesByNameLike(args[0], "%"+pattern+"%", store.LabelClass, limit)
			}
			if err != nil {
				return err
			}
			for _, c := range classes {
				fmt.Printf("%s  %s:%d\n", c.QualifiedName, c.FilePath, c.StartLine)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "case-insensitive substring filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum classes to list")
	return cmd
}
