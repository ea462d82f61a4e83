// Package catalog provides commands that read the local catalog.
package catalog

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/scansync/cmd/application"
	"github.com/agentstation/scansync/internal/cmd/output"
	"github.com/agentstation/scansync/internal/cmd/table"
	"github.com/agentstation/scansync/pkg/errors"
)

// NewCommand creates the catalog command and its subcommands.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "catalog",
		GroupID: "management",
		Short:   "Inspect the local catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(NewListCommand(app))
	cmd.AddCommand(NewContainsCommand(app))

	return cmd
}

// NewListCommand creates the catalog list command.
func NewListCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "list [study]",
		Short: "List recorded files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.Resolve(app.OutputFormat())
			if err != nil {
				return err
			}

			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}

			cat, err := client.Catalog(cmd.Context())
			if err != nil {
				return err
			}

			var studyID string
			var raw any = cat
			if len(args) == 1 {
				studyID = args[0]
				study, ok := cat.Study(studyID)
				if !ok {
					return errors.NewNotFoundError("study", studyID)
				}
				raw = study
			}

			rows := table.CatalogToTableData(cat, studyID, format == output.FormatWide)
			return output.Write(cmd.OutOrStdout(), format, rows, raw)
		},
	}
}

// Presence is the structured output of catalog contains.
type Presence struct {
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	Present     bool   `json:"present" yaml:"present"`
}

// NewContainsCommand creates the catalog contains command.
func NewContainsCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "contains <fingerprint>",
		Short: "Report whether a fingerprint has been ingested",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.Resolve(app.OutputFormat())
			if err != nil {
				return err
			}

			client, err := app.Client(cmd.Context())
			if err != nil {
				return err
			}

			present, err := client.Contains(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return output.WriteRecord(cmd.OutOrStdout(), format, Presence{Fingerprint: args[0], Present: present})
		},
	}
}
