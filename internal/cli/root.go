// Package cli implements surveyctl, an offline checker for survey documents.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "surveyctl",
		Short: "Inspect survey documents before importing them",
		Long: `surveyctl loads a survey document (JSON or YAML, picked by file extension)
and checks its question flow the same way the server does on activation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(NewValidateCommand())
	root.AddCommand(NewGraphCommand())
	return root
}
