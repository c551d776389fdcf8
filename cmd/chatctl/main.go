package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chatctl",
		Short:         "Inspect and try the chatbot knowledge base offline",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().String("dir", "", "Knowledge directory (default: KNOWLEDGE_DIR or ./knowledge)")
	cmd.PersistentFlags().String("rules-file", "", "Rules file name inside the directory (default: responses.json)")

	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newAskCmd())
	return cmd
}
