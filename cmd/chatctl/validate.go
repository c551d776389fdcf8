package main

import (
	"fmt"

	"rule-chatbot-be/internal/config"
	"rule-chatbot-be/pkg/knowledge"
	"rule-chatbot-be/pkg/placeholder"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the knowledge directory and report rules, facts and errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			loader := newLoader(cmd, cfg, placeholder.NewTable(nil, cfg.App.Location(), nil))

			base, err := loader.Load()
			if err != nil {
				color.Red("✗ %s: %v", loader.Dir, err)
				return err
			}

			rules, facts := base.Stats()
			color.Green("✓ %s: %d rules, %d facts", loader.Dir, rules, facts)

			verbose, _ := cmd.Flags().GetBool("verbose")
			if !verbose {
				return nil
			}
			for _, src := range base.Sources {
				fmt.Printf("  source  %s\n", src)
			}
			for _, r := range base.Rules {
				fmt.Printf("  rule    %-20s %d keywords, %d templates\n", r.ID, len(r.Keywords), len(r.Templates))
			}
			for _, f := range base.Facts {
				fn := f.Function
				if fn == "" {
					fn = "-"
				}
				fmt.Printf("  fact    %-20s %s\n", f.Key, fn)
			}
			return nil
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "List every rule and fact")
	return cmd
}

// newLoader applies the --dir and --rules-file flags over the environment.
func newLoader(cmd *cobra.Command, cfg *config.Config, functions knowledge.FunctionSet) *knowledge.Loader {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.Knowledge.Dir
	}
	rulesFile, _ := cmd.Flags().GetString("rules-file")
	if rulesFile == "" {
		rulesFile = cfg.Knowledge.RulesFile
	}
	return knowledge.NewLoader(dir, rulesFile, functions)
}
