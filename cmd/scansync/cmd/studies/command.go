// Package studies provides the studies command.
package studies

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/scansync/cmd/application"
	"github.com/agentstation/scansync/internal/cmd/output"
	"github.com/agentstation/scansync/internal/cmd/table"
)

// NewCommand creates the studies command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "studies",
		GroupID: "core",
		Short:   "List studies offered by the manifest",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.Resolve(app.OutputFormat())
			if err != nil {
				return err
			}

			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}

			studies, err := client.Studies(cmd.Context())
			if err != nil {
				return err
			}

			return output.Write(cmd.OutOrStdout(), format, table.StudiesToTableData(studies), studies)
		},
	}
}
