// Package cli implements the harvest command-line interface.
package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bankwatch-labs/harvest-cli/internal/adapters/driven/config/file"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driven"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driving"
	"github.com/bankwatch-labs/harvest-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// verbose enables debug logging.
var verbose bool

// configDir holds the --config flag value. The flag is registered here
// for help output but its value is read by main via ConfigDir before
// cobra parses anything, because the config store has to exist before
// the commands are wired.
var configDir string

// Services injected by main before Execute. Commands nil-check these so
// a partially wired binary fails with a clear message instead of a panic.
var (
	// buildIngestor constructs the orchestrator for one invocation;
	// dry-run changes its construction, so it cannot be a singleton.
	buildIngestor func(dryRun bool) (driving.Ingestor, error)

	documentStore driven.DocumentStore
	configStore   *file.ConfigStore
)

var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Ingest and normalise documents from external sources",
	Long: `harvest pulls candidate documents from configured sources (REST APIs,
RSS feeds and crawled pages), normalises them into a canonical form,
validates them against configurable rules and stores the survivors.

Sources and validation rules live in ~/.harvest/config.toml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "Config directory (default ~/.harvest)")
}

// ConfigDir extracts the --config value from raw arguments. Returns ""
// when the flag is absent, which callers treat as the default directory.
func ConfigDir(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

// SetServices wires the CLI to its collaborators.
func SetServices(
	ingestorBuilder func(dryRun bool) (driving.Ingestor, error),
	store driven.DocumentStore,
	config *file.ConfigStore,
) {
	buildIngestor = ingestorBuilder
	documentStore = store
	configStore = config
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
