package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
)

var (
	ingestOutput string
	ingestDryRun bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source-id...]",
	Short: "Run an ingestion batch across configured sources",
	Long: `Fetches candidate documents from the configured sources, normalises
and validates them, and stores the survivors. Per-item failures are
recorded in the batch report and never abort the batch.

With source IDs given, only those sources are ingested. With none, all
configured sources run.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestOutput, "output", "o", "text", "Report format: text or json")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Fetch, normalise and validate without writing to the store")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if buildIngestor == nil || configStore == nil {
		return errors.New("ingest service not configured")
	}
	if ingestOutput != "text" && ingestOutput != "json" {
		return fmt.Errorf("unknown output format %q (want text or json)", ingestOutput)
	}

	sources, err := selectSources(configStore.Config().Sources, args)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		cmd.Println("No sources configured. Add [[sources]] entries to " + configStore.Path())
		return nil
	}

	ingestor, err := buildIngestor(ingestDryRun)
	if err != nil {
		return fmt.Errorf("configuring pipeline: %w", err)
	}

	if ingestDryRun {
		cmd.Println("Dry run: documents will not be stored.")
	}

	report, err := ingestor.Ingest(cmd.Context(), sources)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestOutput == "json" {
		return printJSON(cmd, report)
	}
	printReport(cmd, report)
	return nil
}

// selectSources filters the configured sources down to the requested IDs.
// Asking for an unconfigured ID is an error; silently ingesting nothing
// would mask a typo.
func selectSources(configured []domain.SourceSpec, ids []string) ([]domain.SourceSpec, error) {
	if len(ids) == 0 {
		return configured, nil
	}

	var selected []domain.SourceSpec
	for _, id := range ids {
		idx := slices.IndexFunc(configured, func(s domain.SourceSpec) bool { return s.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("source %q is not configured", id)
		}
		selected = append(selected, configured[idx])
	}
	return selected, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printReport(cmd *cobra.Command, report *domain.BatchReport) {
	cmd.Printf("Batch %s finished in %s\n",
		report.BatchID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	cmd.Printf("  Accepted: %d\n", report.Accepted)
	cmd.Printf("  Rejected: %d\n", report.Rejected)
	cmd.Printf("  Errors:   %d\n", len(report.Errors))

	if len(report.Rejections) > 0 {
		cmd.Println("\nRejections:")
		for _, r := range report.Rejections {
			cmd.Printf("  %s (score %.2f)\n", r.URL, r.Score)
			for _, reason := range r.Reasons {
				cmd.Printf("    - %s\n", reason)
			}
		}
	}

	if len(report.Errors) > 0 {
		cmd.Println("\nErrors:")
		for _, e := range report.Errors {
			if e.URL != "" {
				cmd.Printf("  [%s] %s %s: %s\n", e.SourceID, e.Stage, e.URL, e.Reason)
			} else {
				cmd.Printf("  [%s] %s: %s\n", e.SourceID, e.Stage, e.Reason)
			}
		}
	}
}
