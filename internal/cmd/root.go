// Package cmd implements the vepclient command line.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/3leaps/vepclient/internal/config"
	errwrap "github.com/3leaps/vepclient/internal/errors"
	"github.com/3leaps/vepclient/internal/observability"
)

// binaryName is used for the logger and help text.
const binaryName = "vepclient"

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
	portalURL  string

	// loadedConfig is set by the persistent pre-run of every command.
	loadedConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   binaryName,
	Short: "Submit and track batch variant-prediction jobs",
	Long: `vepclient submits variant files to the variant-prediction portal, tracks
the resulting jobs until they finish, and downloads their results.

Jobs are grouped in sessions identified by an 8-digit hex id. Reuse a
session id to add jobs to it or to follow jobs submitted earlier.

Examples:
  vepclient submit --input data/*.vcf --filter "AF < 0.01" --format vcf --genome GRCh38 --email me@example.org --watch
  vepclient submit --manifest batch.yaml
  vepclient watch 0a1b2c3d
  vepclient results job-42 --dest results/
  vepclient fields`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRuntime,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/vepclient/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Write JSONL records to stdout")
	rootCmd.PersistentFlags().StringVar(&portalURL, "portal-url", "", "Portal API root (overrides portal.base_url)")
}

func initRuntime(cmd *cobra.Command, _ []string) error {
	config.SetConfigFile(cfgFile)

	var overrides []map[string]any
	if portalURL != "" {
		overrides = append(overrides, map[string]any{
			"portal": map[string]any{"base_url": portalURL},
		})
	}

	cfg, err := config.Load(cmd.Context(), overrides...)
	if err != nil {
		// The logger is not configured yet.
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Error: invalid configuration:", err)
		return errwrap.NewExitError(errwrap.ExitInvalidArgument, "Invalid configuration", err)
	}
	observability.InitCLILoggerWithConfig(binaryName, cfg.Logging.Level, cfg.Logging.Format, verbose)
	loadedConfig = cfg
	return nil
}

// Execute runs the command line under ctx and returns the process exit
// code. Cancelling ctx (SIGINT) yields ExitSignalInt.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return errwrap.ExitSuccess
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return errwrap.ExitSignalInt
	}

	// Command failures are logged where they happen; only cobra's own
	// errors (unknown flags, bad args) still need printing.
	var exitErr *errwrap.ExitError
	if !errors.As(err, &exitErr) {
		_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return errwrap.ExitInvalidArgument
	}
	return exitErr.Code
}
