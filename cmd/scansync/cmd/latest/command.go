// Package latest provides the latest command.
package latest

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/scansync/cmd/application"
	"github.com/agentstation/scansync/internal/cmd/output"
)

// Result is the structured output of the latest command.
type Result struct {
	Study string `json:"study" yaml:"study"`
	File  string `json:"file" yaml:"file"`
}

// NewCommand creates the latest command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "latest <study>",
		GroupID: "core",
		Short:   "Ingest the newest file of a study",
		Long: `Latest ingests the most recently updated file of a study and prints its
file name. The file is empty when the newest file is already in the catalog.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.Resolve(app.OutputFormat())
			if err != nil {
				return err
			}

			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}

			name, err := client.DownloadLatest(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return output.WriteRecord(cmd.OutOrStdout(), format, Result{Study: args[0], File: name})
		},
	}
}
