package driving

import (
	"context"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
)

// Ingestor runs ingestion batches.
type Ingestor interface {
	// Ingest runs one batch across the given sources and returns a
	// complete report. Per-item failures are recorded in the report,
	// never returned as an error; the only error returns are pre-flight
	// configuration failures (invalid SourceSpec) and context
	// cancellation before the first source starts.
	//
	// On cancellation mid-batch, in-flight items finish, no new items
	// start, and the partial report is still returned.
	Ingest(ctx context.Context, sources []domain.SourceSpec) (*domain.BatchReport, error)

	// Status reports progress for the running batch, if any.
	Status() BatchStatus
}

// BatchStatus is a point-in-time snapshot of a running batch.
type BatchStatus struct {
	// Running is true while a batch is in flight.
	Running bool

	// Processed counts items that finished any terminal stage.
	Processed int

	// Accepted, Rejected and Errors mirror the eventual report counts.
	Accepted int
	Rejected int
	Errors   int
}
