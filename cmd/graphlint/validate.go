package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/graphlint/graphlint/internal/config"
	"github.com/graphlint/graphlint/internal/lang"
	"github.com/graphlint/graphlint/internal/report"
	"github.com/graphlint/graphlint/internal/usage"
	"github.com/graphlint/graphlint/internal/validate"
)

func newValidateCmd() *cobra.Command {
	var language string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate <repository> <script-file>",
		Short: "Validate a script against an indexed repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, scriptPath := args[0], args[1]

			source, err := os.ReadFile(scriptPath)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}

			cfg := config.Default()
			l := lang.Language(language)
			if language == "" {
				l = lang.Language(cfg.EffectiveLanguage())
			}

			usages, err := usage.Extract(source, l)
			if err != nil {
				return fmt.Errorf("extract usages: %w", err)
			}

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			verdicts, err := validate.New(s, cfg).Validate(cmd.Context(), repo, usages)
			if err != nil {
				return err
			}
			r := report.Summarize(verdicts)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			fmt.Print(r.Render())
			if r.HallucinationCount > 0 {
				return fmt.Errorf("%d hallucinated references", r.HallucinationCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "script language (default python)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the full report as JSON")
	return cmd
}
