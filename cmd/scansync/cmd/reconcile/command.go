// Package reconcile provides the reconcile command.
package reconcile

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/scansync/cmd/application"
	"github.com/agentstation/scansync/internal/cmd/output"
	"github.com/agentstation/scansync/internal/cmd/table"
	"github.com/agentstation/scansync/pkg/selection"
)

// NewCommand creates the reconcile command.
func NewCommand(app application.Application) *cobra.Command {
	var policy selection.Policy

	cmd := &cobra.Command{
		Use:     "reconcile <study>",
		GroupID: "core",
		Short:   "Download and record new files of a study",
		Long: `Reconcile fetches the manifest, selects files of one study and ingests
every file whose fingerprint is not yet in the local catalog.

Each file is verified against its declared fingerprint before it is
recorded. A mismatch stops the run.

--count bounds the selection after sorting by update date: a positive
value keeps the oldest files, a negative value the newest, 0 keeps all.`,
		Example: `  scansync reconcile sonar.ssl                     # Ingest everything new
  scansync reconcile sonar.ssl -n -1               # Only the newest file
  scansync reconcile sonar.ssl -n -3 -f ipv4       # Three newest matching "ipv4"`,
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

			result, err := client.Reconcile(cmd.Context(), args[0], policy)
			if result == nil {
				return err
			}

			// Partial results are still reported before the error.
			out := cmd.OutOrStdout()
			if werr := output.Write(out, format, table.ResultToTableData(result), result); werr != nil {
				return werr
			}
			if format.IsTable() {
				fmt.Fprintln(out, result.Summary())
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&policy.Count, "count", "n", 0, "bound the selection: >0 oldest N, <0 newest N, 0 all")
	cmd.Flags().StringVarP(&policy.URLFilter, "filter", "f", "", "only files whose URL contains this substring")

	return cmd
}
