package services

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankwatch-labs/harvest-cli/internal/adapters/driven/storage/memory"
	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driven"
	"github.com/bankwatch-labs/harvest-cli/internal/extract"
	"github.com/bankwatch-labs/harvest-cli/internal/fetchers"
	"github.com/bankwatch-labs/harvest-cli/internal/normalise"
)

// --- Mock implementations for ingest testing ---

// ingestMockFetcher implements driven.Fetcher for testing.
type ingestMockFetcher struct {
	sourceID string
	kind     domain.SourceKind
	records  []domain.RawRecord
	errs     []error
	closed   bool
}

func (m *ingestMockFetcher) Kind() domain.SourceKind { return m.kind }
func (m *ingestMockFetcher) SourceID() string        { return m.sourceID }
func (m *ingestMockFetcher) Close() error            { m.closed = true; return nil }

func (m *ingestMockFetcher) Fetch(ctx context.Context) (<-chan domain.RawRecord, <-chan error) {
	records := make(chan domain.RawRecord)
	errs := make(chan error, len(m.errs)+1)

	go func() {
		defer close(records)
		defer close(errs)

		for _, err := range m.errs {
			errs <- err
		}
		for _, rec := range m.records {
			select {
			case <-ctx.Done():
				return
			case records <- rec:
			}
		}
	}()

	return records, errs
}

// ingestMockFactory implements driven.FetcherFactory.
type ingestMockFactory struct {
	fetchers  map[string]*ingestMockFetcher
	createErr error
}

func newIngestMockFactory() *ingestMockFactory {
	return &ingestMockFactory{fetchers: make(map[string]*ingestMockFetcher)}
}

func (f *ingestMockFactory) Create(spec domain.SourceSpec) (driven.Fetcher, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if fetcher, ok := f.fetchers[spec.ID]; ok {
		return fetcher, nil
	}
	return nil, errors.New("no fetcher configured for source")
}

// flakyStore wraps a real store and fails the first N upserts.
type flakyStore struct {
	driven.DocumentStore
	mu       stdsync.Mutex
	failures int
	attempts int
}

func (s *flakyStore) Upsert(ctx context.Context, doc *domain.Document) error {
	s.mu.Lock()
	s.attempts++
	fail := s.attempts <= s.failures
	s.mu.Unlock()
	if fail {
		return &domain.StoreError{Op: "upsert", ID: doc.ID, Cause: errors.New("database locked")}
	}
	return s.DocumentStore.Upsert(ctx, doc)
}

// gaugeStore tracks how many upserts run at the same time.
type gaugeStore struct {
	driven.DocumentStore
	mu       stdsync.Mutex
	inflight int
	peak     int
}

func (s *gaugeStore) Upsert(ctx context.Context, doc *domain.Document) error {
	s.mu.Lock()
	s.inflight++
	if s.inflight > s.peak {
		s.peak = s.inflight
	}
	s.mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
	return s.DocumentStore.Upsert(ctx, doc)
}

// --- Test fixtures ---

func testSpec(id string) domain.SourceSpec {
	return domain.SourceSpec{
		ID:      id,
		Kind:    domain.KindFeed,
		BaseURL: "http://example.org/" + id,
	}
}

func goodRecord(sourceID, slug string) domain.RawRecord {
	return domain.RawRecord{
		SourceID: sourceID,
		URL:      "http://example.org/" + sourceID + "/" + slug,
		Title:    "A Perfectly Reasonable Title",
		Content: "Energy access programmes continued to expand across the region " +
			"this year, with new connections reported in dozens of districts.",
		PublishedDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DiscoveredAt:  time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		FetchStrategy: domain.StrategyFeed,
	}
}

func testRules() *domain.ValidationRules {
	return &domain.ValidationRules{
		MinContentLength: 20,
		MinTitleLength:   5,
	}
}

func newTestOrchestrator(factory driven.FetcherFactory, store driven.DocumentStore, opts IngestOptions) *IngestOrchestrator {
	normaliser := normalise.New(extract.New(extract.DefaultTables()))
	return NewIngestOrchestrator(factory, store, normaliser, testRules(), opts)
}

// --- Tests ---

func TestIngest_AcceptedDocumentsStored(t *testing.T) {
	factory := newIngestMockFactory()
	factory.fetchers["src"] = &ingestMockFetcher{
		sourceID: "src",
		kind:     domain.KindFeed,
		records: []domain.RawRecord{
			goodRecord("src", "one"),
			goodRecord("src", "two"),
		},
	}
	store := memory.NewDocumentStore()
	o := newTestOrchestrator(factory, store, IngestOptions{})

	report, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})

	require.NoError(t, err)
	assert.NotEmpty(t, report.BatchID)
	assert.Equal(t, 2, report.Accepted)
	assert.Equal(t, 0, report.Rejected)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 2, store.Len())
	assert.True(t, factory.fetchers["src"].closed)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestIngest_InvalidSpecAbortsBatch(t *testing.T) {
	factory := newIngestMockFactory()
	factory.fetchers["good"] = &ingestMockFetcher{
		sourceID: "good",
		kind:     domain.KindFeed,
		records:  []domain.RawRecord{goodRecord("good", "one")},
	}
	store := memory.NewDocumentStore()
	o := newTestOrchestrator(factory, store, IngestOptions{})

	sources := []domain.SourceSpec{
		testSpec("good"),
		{ID: "bad", Kind: "carrier-pigeon", BaseURL: "http://example.org"},
	}
	report, err := o.Ingest(context.Background(), sources)

	assert.Nil(t, report)
	require.ErrorIs(t, err, domain.ErrInvalidSource)
	// Pre-flight failure: nothing was fetched or stored.
	assert.Equal(t, 0, store.Len())
	assert.False(t, factory.fetchers["good"].closed)
}

func TestIngest_FetchErrorsDoNotAbort(t *testing.T) {
	factory := newIngestMockFactory()
	factory.fetchers["src"] = &ingestMockFetcher{
		sourceID: "src",
		kind:     domain.KindAPI,
		errs: []error{
			&domain.FetchError{Source: "src", URL: "http://example.org/src?page=2", Cause: errors.New("status 500")},
		},
		records: []domain.RawRecord{goodRecord("src", "one")},
	}
	store := memory.NewDocumentStore()
	o := newTestOrchestrator(factory, store, IngestOptions{})

	report, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Accepted)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "fetch", report.Errors[0].Stage)
	assert.Equal(t, "src", report.Errors[0].SourceID)
	assert.Equal(t, "http://example.org/src?page=2", report.Errors[0].URL)
}

func TestIngest_FactoryFailureIsPerSource(t *testing.T) {
	factory := newIngestMockFactory()
	factory.fetchers["works"] = &ingestMockFetcher{
		sourceID: "works",
		kind:     domain.KindFeed,
		records:  []domain.RawRecord{goodRecord("works", "one")},
	}
	// "broken" has no fetcher configured; Create fails for it.
	store := memory.NewDocumentStore()
	o := newTestOrchestrator(factory, store, IngestOptions{Concurrency: 1})

	report, err := o.Ingest(context.Background(),
		[]domain.SourceSpec{testSpec("broken"), testSpec("works")})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Accepted)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "broken", report.Errors[0].SourceID)
	assert.Equal(t, "fetch", report.Errors[0].Stage)
}

func TestIngest_UnusableRecordIsANormaliseError(t *testing.T) {
	factory := newIngestMockFactory()
	factory.fetchers["src"] = &ingestMockFetcher{
		sourceID: "src",
		kind:     domain.KindFeed,
		records: []domain.RawRecord{
			{SourceID: "src", Language: "en"}, // no title, content or URL
			goodRecord("src", "one"),
		},
	}
	store := memory.NewDocumentStore()
	o := newTestOrchestrator(factory, store, IngestOptions{})

	report, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Accepted)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "normalise", report.Errors[0].Stage)
}

func TestIngest_RejectedDocumentsAudited(t *testing.T) {
	short := goodRecord("src", "short")
	short.Title = "Hey" // below MinTitleLength

	factory := newIngestMockFactory()
	factory.fetchers["src"] = &ingestMockFetcher{
		sourceID: "src",
		kind:     domain.KindFeed,
		records:  []domain.RawRecord{short, goodRecord("src", "fine")},
	}
	store := memory.NewDocumentStore()
	o := newTestOrchestrator(factory, store, IngestOptions{})

	report, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 1, report.Rejected)
	require.Len(t, report.Rejections, 1)
	assert.Equal(t, short.URL, report.Rejections[0].URL)
	assert.NotEmpty(t, report.Rejections[0].Reasons)
	assert.Less(t, report.Rejections[0].Score, 1.0)
	// Rejected documents never reach the store.
	assert.Equal(t, 1, store.Len())
}

func TestIngest_StoreFailureRetriedOnce(t *testing.T) {
	t.Run("transient failure recovers", func(t *testing.T) {
		factory := newIngestMockFactory()
		factory.fetchers["src"] = &ingestMockFetcher{
			sourceID: "src",
			kind:     domain.KindFeed,
			records:  []domain.RawRecord{goodRecord("src", "one")},
		}
		store := &flakyStore{DocumentStore: memory.NewDocumentStore(), failures: 1}
		o := newTestOrchestrator(factory, store, IngestOptions{})

		report, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})

		require.NoError(t, err)
		assert.Equal(t, 1, report.Accepted)
		assert.Empty(t, report.Errors)
		assert.Equal(t, 2, store.attempts)
	})

	t.Run("persistent failure becomes an item error", func(t *testing.T) {
		factory := newIngestMockFactory()
		factory.fetchers["src"] = &ingestMockFetcher{
			sourceID: "src",
			kind:     domain.KindFeed,
			records:  []domain.RawRecord{goodRecord("src", "one")},
		}
		store := &flakyStore{DocumentStore: memory.NewDocumentStore(), failures: 10}
		o := newTestOrchestrator(factory, store, IngestOptions{})

		report, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})

		require.NoError(t, err)
		assert.Equal(t, 0, report.Accepted)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, "store", report.Errors[0].Stage)
		assert.Equal(t, 2, store.attempts) // one retry, not more
	})
}

func TestIngest_DryRunSkipsStore(t *testing.T) {
	factory := newIngestMockFactory()
	factory.fetchers["src"] = &ingestMockFetcher{
		sourceID: "src",
		kind:     domain.KindFeed,
		records:  []domain.RawRecord{goodRecord("src", "one")},
	}
	store := memory.NewDocumentStore()
	o := newTestOrchestrator(factory, store, IngestOptions{DryRun: true})

	report, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 0, store.Len())
}

func TestIngest_ReingestUpserts(t *testing.T) {
	factory := newIngestMockFactory()
	factory.fetchers["src"] = &ingestMockFetcher{
		sourceID: "src",
		kind:     domain.KindFeed,
		records:  []domain.RawRecord{goodRecord("src", "one")},
	}
	store := memory.NewDocumentStore()
	o := newTestOrchestrator(factory, store, IngestOptions{})

	first, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})
	require.NoError(t, err)
	second, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})
	require.NoError(t, err)

	// Same URL, same ID: the second run replaces, never duplicates.
	assert.Equal(t, 1, first.Accepted)
	assert.Equal(t, 1, second.Accepted)
	assert.Equal(t, 1, store.Len())
	assert.NotEqual(t, first.BatchID, second.BatchID)
}

func TestIngest_MultipleSources(t *testing.T) {
	factory := newIngestMockFactory()
	for _, id := range []string{"alpha", "beta", "gamma"} {
		factory.fetchers[id] = &ingestMockFetcher{
			sourceID: id,
			kind:     domain.KindFeed,
			records: []domain.RawRecord{
				goodRecord(id, "one"),
				goodRecord(id, "two"),
			},
		}
	}
	store := memory.NewDocumentStore()
	o := newTestOrchestrator(factory, store, IngestOptions{Concurrency: 2})

	report, err := o.Ingest(context.Background(), []domain.SourceSpec{
		testSpec("alpha"), testSpec("beta"), testSpec("gamma"),
	})

	require.NoError(t, err)
	assert.Equal(t, 6, report.Accepted)
	assert.Equal(t, 6, store.Len())
}

func TestIngest_DocumentsFromOneSourceRunConcurrently(t *testing.T) {
	// The concurrency bound is per document pipeline, not per source: a
	// single source must still have several items in flight at once.
	factory := newIngestMockFactory()
	factory.fetchers["src"] = &ingestMockFetcher{
		sourceID: "src",
		kind:     domain.KindFeed,
		records: []domain.RawRecord{
			goodRecord("src", "one"),
			goodRecord("src", "two"),
			goodRecord("src", "three"),
			goodRecord("src", "four"),
		},
	}
	store := &gaugeStore{DocumentStore: memory.NewDocumentStore()}
	o := newTestOrchestrator(factory, store, IngestOptions{Concurrency: 4})

	report, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})

	require.NoError(t, err)
	assert.Equal(t, 4, report.Accepted)
	assert.GreaterOrEqual(t, store.peak, 2, "items from one source were processed sequentially")
}

func TestIngest_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(newIngestMockFactory(), memory.NewDocumentStore(), IngestOptions{})

	report, err := o.Ingest(ctx, []domain.SourceSpec{testSpec("src")})

	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngest_CancellationReturnsPartialReport(t *testing.T) {
	factory := newIngestMockFactory()
	records := make([]domain.RawRecord, 50)
	for i := range records {
		records[i] = goodRecord("src", time.Now().Add(time.Duration(i)).String())
	}
	factory.fetchers["src"] = &ingestMockFetcher{
		sourceID: "src",
		kind:     domain.KindFeed,
		records:  records,
	}
	store := memory.NewDocumentStore()
	o := newTestOrchestrator(factory, store, IngestOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	report, err := o.Ingest(ctx, []domain.SourceSpec{testSpec("src")})

	// Mid-batch cancellation still yields a report.
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.LessOrEqual(t, report.Accepted, len(records))
	assert.False(t, o.Status().Running)
}

func TestIngestOrchestrator_Status(t *testing.T) {
	factory := newIngestMockFactory()
	factory.fetchers["src"] = &ingestMockFetcher{
		sourceID: "src",
		kind:     domain.KindFeed,
		records:  []domain.RawRecord{goodRecord("src", "one")},
	}
	o := newTestOrchestrator(factory, memory.NewDocumentStore(), IngestOptions{})

	assert.False(t, o.Status().Running)

	_, err := o.Ingest(context.Background(), []domain.SourceSpec{testSpec("src")})
	require.NoError(t, err)

	status := o.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Processed)
	assert.Equal(t, 1, status.Accepted)
}

func TestFetcherRegistry(t *testing.T) {
	registry := NewFetcherRegistry(fetchers.DefaultOptions())

	t.Run("creates a fetcher per kind", func(t *testing.T) {
		for _, kind := range registry.Kinds() {
			spec := domain.SourceSpec{ID: "s", Kind: kind, BaseURL: "http://example.org"}
			fetcher, err := registry.Create(spec)
			require.NoError(t, err)
			assert.Equal(t, kind, fetcher.Kind())
			require.NoError(t, fetcher.Close())
		}
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		spec := domain.SourceSpec{ID: "s", Kind: "gopher", BaseURL: "http://example.org"}
		_, err := registry.Create(spec)
		assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
	})
}
