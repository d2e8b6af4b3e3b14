// Command harvest ingests and normalises documents from configured
// external sources.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bankwatch-labs/harvest-cli/internal/adapters/driven/config/file"
	"github.com/bankwatch-labs/harvest-cli/internal/adapters/driven/storage/sqlite"
	"github.com/bankwatch-labs/harvest-cli/internal/adapters/driving/cli"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driving"
	"github.com/bankwatch-labs/harvest-cli/internal/core/services"
	"github.com/bankwatch-labs/harvest-cli/internal/extract"
	"github.com/bankwatch-labs/harvest-cli/internal/fetchers"
	"github.com/bankwatch-labs/harvest-cli/internal/logger"
	"github.com/bankwatch-labs/harvest-cli/internal/normalise"
)

// version is overridden at build time via
// -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// First interrupt cancels the batch gracefully (in-flight items
	// finish); a second one kills the process the usual way.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configDir := cli.ConfigDir(os.Args[1:])

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Hot reload so long batches pick up rule and keyword-table edits.
	if err := configStore.Watch(ctx); err != nil {
		logger.Warn("Config hot reload unavailable: %v", err)
	}

	dataDir := ""
	if configDir != "" {
		dataDir = filepath.Join(configDir, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Closing document store: %v", err)
		}
	}()

	buildIngestor := func(dryRun bool) (driving.Ingestor, error) {
		config := configStore.Config()

		registry := services.NewFetcherRegistry(fetchers.Options{
			MaxCandidates:     config.Pipeline.MaxCandidates,
			RequestsPerSecond: config.Pipeline.RequestsPerSecond,
			Timeout:           time.Duration(config.Pipeline.RequestTimeoutSeconds) * time.Second,
			MaxRetries:        config.Pipeline.MaxRetries,
		})
		normaliser := normalise.New(extract.New(config.Tables))

		return services.NewIngestOrchestrator(registry, store, normaliser, &config.Rules,
			services.IngestOptions{
				Concurrency: config.Pipeline.Concurrency,
				DryRun:      dryRun,
			}), nil
	}

	cli.SetVersion(version)
	cli.SetServices(buildIngestor, store, configStore)

	return cli.Execute(ctx)
}
