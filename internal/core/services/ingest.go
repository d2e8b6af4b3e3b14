package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driven"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driving"
	"github.com/bankwatch-labs/harvest-cli/internal/logger"
	"github.com/bankwatch-labs/harvest-cli/internal/normalise"
	"github.com/bankwatch-labs/harvest-cli/internal/validate"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.Ingestor = (*IngestOrchestrator)(nil)

// DefaultConcurrency bounds how many document pipelines run at once.
const DefaultConcurrency = 4

// IngestOptions tunes one orchestrator.
type IngestOptions struct {
	// Concurrency limits how many in-flight document pipelines
	// (normalise, validate, store) run at once across all sources.
	// Zero means DefaultConcurrency.
	Concurrency int

	// DryRun runs fetch, normalise and validate but skips the store
	// write. The report is produced in full either way.
	DryRun bool
}

// IngestOrchestrator coordinates one ingestion batch: fetch, normalise,
// validate, store. Every source drains concurrently; the concurrency
// bound applies to in-flight document pipelines, so documents from one
// source are processed in parallel too.
type IngestOrchestrator struct {
	factory    driven.FetcherFactory
	store      driven.DocumentStore
	normaliser *normalise.Normaliser
	rules      *domain.ValidationRules
	opts       IngestOptions

	// Status tracking
	mu     sync.RWMutex
	status driving.BatchStatus
}

// NewIngestOrchestrator creates an orchestrator.
func NewIngestOrchestrator(
	factory driven.FetcherFactory,
	store driven.DocumentStore,
	normaliser *normalise.Normaliser,
	rules *domain.ValidationRules,
	opts IngestOptions,
) *IngestOrchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &IngestOrchestrator{
		factory:    factory,
		store:      store,
		normaliser: normaliser,
		rules:      rules,
		opts:       opts,
	}
}

// Ingest runs one batch across the given sources.
//
// Every spec is validated before any fetch starts: one bad spec aborts
// the whole batch up front, because a partially-configured batch is a
// configuration error, not a data error. After that point per-item
// failures are recorded in the report and never abort the batch.
//
// On cancellation, items already being processed finish and the partial
// report is returned. Errors appear in the report in completion order.
func (o *IngestOrchestrator) Ingest(ctx context.Context, sources []domain.SourceSpec) (*domain.BatchReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i := range sources {
		if err := sources[i].Validate(); err != nil {
			return nil, fmt.Errorf("source %q: %w", sources[i].ID, err)
		}
	}

	report := &domain.BatchReport{
		BatchID:   uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	o.beginBatch()
	defer o.endBatch()

	logger.Info("Starting batch %s across %d sources", report.BatchID, len(sources))

	// One mutex guards the report; items append as they complete.
	var reportMu sync.Mutex

	// Drains run one per source; the worker pool bounds in-flight
	// document pipelines across all of them. A full pool blocks the
	// drain loops, which is the backpressure that keeps fetch ahead of
	// processing by at most the pool size.
	drains := new(errgroup.Group)
	workers := new(errgroup.Group)
	workers.SetLimit(o.opts.Concurrency)
	for i := range sources {
		spec := sources[i]
		drains.Go(func() error {
			o.ingestSource(ctx, spec, workers, report, &reportMu)
			return nil
		})
	}
	drains.Wait()  //nolint:errcheck // drains never return errors
	workers.Wait() //nolint:errcheck // workers never return errors

	report.FinishedAt = time.Now().UTC()
	logger.Info("Batch %s finished: %d accepted, %d rejected, %d errors",
		report.BatchID, report.Accepted, report.Rejected, len(report.Errors))
	return report, nil
}

// Status returns a snapshot of the running batch.
func (o *IngestOrchestrator) Status() driving.BatchStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// ingestSource drains one source. Fetch errors arrive interleaved with
// records; both channels are read until closed so a slow error stream
// cannot deadlock the fetcher.
func (o *IngestOrchestrator) ingestSource(
	ctx context.Context,
	spec domain.SourceSpec,
	workers *errgroup.Group,
	report *domain.BatchReport,
	reportMu *sync.Mutex,
) {
	fetcher, err := o.factory.Create(spec)
	if err != nil {
		o.recordError(report, reportMu, domain.ItemError{
			SourceID: spec.ID,
			Stage:    "fetch",
			Reason:   err.Error(),
		})
		return
	}
	defer fetcher.Close()

	logger.Debug("Fetching source %s (%s)", spec.ID, spec.Kind)
	records, errs := fetcher.Fetch(ctx)

	for records != nil || errs != nil {
		select {
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			o.recordError(report, reportMu, itemError(spec.ID, "fetch", err))

		case rec, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			// A cancelled batch takes no new items; the fetcher
			// notices the same context and winds down.
			if ctx.Err() != nil {
				return
			}
			workers.Go(func() error {
				// Queued work that only gets a slot after
				// cancellation never starts.
				if ctx.Err() != nil {
					return nil
				}
				o.processRecord(ctx, &rec, report, reportMu)
				return nil
			})
		}
	}
}

// processRecord takes one raw record through normalise, validate and
// store. Each stage failure is terminal for this item only.
func (o *IngestOrchestrator) processRecord(
	ctx context.Context,
	rec *domain.RawRecord,
	report *domain.BatchReport,
	reportMu *sync.Mutex,
) {
	doc, err := o.normaliser.Normalise(rec)
	if err != nil {
		logger.Debug("Dropping record from %s: %v", rec.SourceID, err)
		o.recordError(report, reportMu, domain.ItemError{
			SourceID: rec.SourceID,
			URL:      rec.URL,
			Stage:    "normalise",
			Reason:   err.Error(),
		})
		return
	}

	result := validate.Validate(doc, o.rules)
	doc.ValidationScore = result.Score
	if !result.Accepted {
		doc.RejectionReasons = result.Reasons
		reportMu.Lock()
		report.Rejected++
		report.Rejections = append(report.Rejections, domain.Rejection{
			SourceID: rec.SourceID,
			URL:      doc.SourceURL,
			Reasons:  result.Reasons,
			Score:    result.Score,
		})
		reportMu.Unlock()
		o.bumpStatus(func(s *driving.BatchStatus) { s.Processed++; s.Rejected++ })
		return
	}

	if !o.opts.DryRun {
		if err := o.upsert(ctx, doc); err != nil {
			o.recordError(report, reportMu, domain.ItemError{
				SourceID: rec.SourceID,
				URL:      doc.SourceURL,
				Stage:    "store",
				Reason:   err.Error(),
			})
			return
		}
	}

	reportMu.Lock()
	report.Accepted++
	reportMu.Unlock()
	o.bumpStatus(func(s *driving.BatchStatus) { s.Processed++; s.Accepted++ })
}

// upsert writes a document, retrying a store failure once. Storage
// hiccups under concurrent writes are common enough to deserve a second
// attempt; anything past that is the item's error.
func (o *IngestOrchestrator) upsert(ctx context.Context, doc *domain.Document) error {
	err := o.store.Upsert(ctx, doc)
	if err == nil {
		return nil
	}

	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) && ctx.Err() == nil {
		logger.Debug("Retrying upsert of %s: %v", doc.ID, err)
		if err = o.store.Upsert(ctx, doc); err == nil {
			return nil
		}
	}
	return err
}

// itemError flattens an error into a report entry, pulling the URL out
// of a FetchError when one is available.
func itemError(sourceID, stage string, err error) domain.ItemError {
	entry := domain.ItemError{
		SourceID: sourceID,
		Stage:    stage,
		Reason:   err.Error(),
	}
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		entry.URL = fetchErr.URL
	}
	return entry
}

func (o *IngestOrchestrator) recordError(report *domain.BatchReport, reportMu *sync.Mutex, entry domain.ItemError) {
	reportMu.Lock()
	report.Errors = append(report.Errors, entry)
	reportMu.Unlock()
	o.bumpStatus(func(s *driving.BatchStatus) { s.Processed++; s.Errors++ })
}

func (o *IngestOrchestrator) beginBatch() {
	o.mu.Lock()
	o.status = driving.BatchStatus{Running: true}
	o.mu.Unlock()
}

func (o *IngestOrchestrator) endBatch() {
	o.mu.Lock()
	o.status.Running = false
	o.mu.Unlock()
}

func (o *IngestOrchestrator) bumpStatus(apply func(*driving.BatchStatus)) {
	o.mu.Lock()
	apply(&o.status)
	o.mu.Unlock()
}
