// Package watch provides the watch command.
package watch

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/scansync/cmd/application"
	"github.com/agentstation/scansync/pkg/reconciler"
	"github.com/agentstation/scansync/pkg/selection"
)

// NewCommand creates the watch command.
func NewCommand(app application.Application) *cobra.Command {
	var policy selection.Policy

	cmd := &cobra.Command{
		Use:     "watch <study>",
		GroupID: "core",
		Short:   "Reconcile a study periodically until interrupted",
		Long: `Watch runs a reconciliation immediately and then once per watch interval
(--watch-interval, default 24h) until the process receives SIGINT or
SIGTERM. Failed runs are logged and retried on the next tick.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := app.Client(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			onResult := func(r *reconciler.Result, err error) {
				if err == nil {
					fmt.Fprintln(out, r.Summary())
				}
			}
			if err := client.WatchOn(ctx, args[0], policy, onResult); err != nil {
				return err
			}

			app.Logger().Info().Str("study_id", args[0]).Dur("interval", app.WatchInterval()).Msg("Watching, press Ctrl+C to stop")
			<-ctx.Done()
			return client.WatchOff()
		},
	}

	cmd.Flags().IntVarP(&policy.Count, "count", "n", 0, "bound the selection: >0 oldest N, <0 newest N, 0 all")
	cmd.Flags().StringVarP(&policy.URLFilter, "filter", "f", "", "only files whose URL contains this substring")

	return cmd
}
