package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/scansync/cmd/scansync/cmd/catalog"
	"github.com/agentstation/scansync/cmd/scansync/cmd/latest"
	"github.com/agentstation/scansync/cmd/scansync/cmd/reconcile"
	"github.com/agentstation/scansync/cmd/scansync/cmd/studies"
	"github.com/agentstation/scansync/cmd/scansync/cmd/version"
	"github.com/agentstation/scansync/cmd/scansync/cmd/watch"
	"github.com/agentstation/scansync/internal/cmd/output"
	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/logging"
)

// Execute runs the scansync CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "scansync",
		Short:   "Mirror scans.io studies into a verified local catalog",
		Version: a.version,
		Long: `scansync downloads files of scans.io studies, verifies each one against
the fingerprint published in the study manifest, and records it in a
local catalog so later runs only fetch what is new.

Catalogs can live in a JSON file, an embedded bolt database, or an
Elasticsearch index.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	rootCmd.SetOut(a.out)

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	flags := rootCmd.PersistentFlags()
	flags.String(KeyConfig, "", "config file (default is $HOME/.scansync.yaml)")
	flags.BoolP(KeyVerbose, "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP(KeyQuiet, "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool(KeyNoColor, false, "disable colored output")
	flags.StringP(KeyFormat, "o", "", "output format: table, json, yaml, wide")
	flags.String(KeyLogLevel, "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	flags.String(KeyManifestURL, a.viper.GetString(KeyManifestURL), "study manifest URL")
	flags.StringP(KeyDownloadDir, "d", a.viper.GetString(KeyDownloadDir), "directory study files are written to")
	flags.StringP(KeyBackend, "b", a.viper.GetString(KeyBackend), "catalog backend: files, bolt, elastic, memory")
	flags.String(KeyCatalog, "", "catalog file for the files and bolt backends")
	flags.String(KeyClassifier, "", "catalog admission policy: accept-all, non-empty, archive, archive-or-raw (join with +)")
	flags.String(KeyAlgorithm, a.viper.GetString(KeyAlgorithm), "fingerprint algorithm: sha1, sha256, blake3")
	flags.Bool(KeyReuseLocal, a.viper.GetBool(KeyReuseLocal), "reuse verified files already in the download directory")
	flags.Duration(KeyTimeout, a.viper.GetDuration(KeyTimeout), "manifest request timeout")
	flags.Duration(KeyDownloadTimeout, a.viper.GetDuration(KeyDownloadTimeout), "per-file download timeout")
	flags.Duration(KeyWatchInterval, a.viper.GetDuration(KeyWatchInterval), "interval between watched reconciliations")

	rootCmd.SetVersionTemplate("scansync {{.Version}}\n")

	// Flags take precedence over env and config file
	if err := a.viper.BindPFlags(flags); err != nil {
		panic("programming error: binding flags: " + err.Error())
	}

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	// Reload so --config and the other bound flags are honored
	config, err := LoadConfig(a.viper)
	if err != nil {
		return err
	}
	if _, err := output.ParseFormat(config.Format); err != nil {
		return errors.NewValidationError("format", config.Format, err.Error())
	}
	a.config = config

	logger := NewLogger(a.config)
	a.logger = &logger
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(reconcile.NewCommand(a))
	rootCmd.AddCommand(latest.NewCommand(a))
	rootCmd.AddCommand(watch.NewCommand(a))
	rootCmd.AddCommand(studies.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(catalog.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(version.NewCommand(a))
}

// ExitCodeInterrupted is the status for runs stopped by SIGINT or SIGTERM.
const ExitCodeInterrupted = 130

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsCanceled(err):
		return ExitCodeInterrupted
	default:
		return 1
	}
}

// ExitOnError is a helper that prints an error and exits with its status.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	code := ExitCode(err)
	if code == 0 {
		return
	}
	if code == ExitCodeInterrupted {
		_, _ = os.Stderr.WriteString("interrupted\n")
	} else {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
	}
	os.Exit(code)
}
