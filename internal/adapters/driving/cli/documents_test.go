package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankwatch-labs/harvest-cli/internal/adapters/driven/storage/memory"
	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
)

func storedDoc(id string, sectors ...string) *domain.Document {
	return &domain.Document{
		ID:            id,
		Title:         "Grid Expansion Update " + id,
		Summary:       "A short abstract.",
		Content:       "Full body text.",
		URL:           "http://example.org/docs/" + id,
		SourceURL:     "http://example.org/docs/" + id,
		PublishedDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DocumentType:  domain.TypeReport,
		Tags: domain.Tags{
			Sectors:  sectors,
			Priority: domain.PriorityMedium,
			Status:   domain.StatusCurrent,
		},
		Metadata: domain.DocMetadata{Language: "en", WordCount: 3, ReadingTime: 1},
		SourceReference: domain.SourceReference{
			SourceID:      "wb-news",
			FetchStrategy: domain.StrategyFeed,
		},
		ValidationScore: 1.0,
	}
}

func setupDocumentsTest(t *testing.T, docs ...*domain.Document) func() {
	t.Helper()

	store := memory.NewDocumentStore()
	for _, doc := range docs {
		require.NoError(t, store.Upsert(context.Background(), doc))
	}

	oldStore := documentStore
	documentStore = store
	return func() {
		documentStore = oldStore
		documentsJSON = false
		queryDimension = ""
		queryValues = ""
	}
}

func TestDocumentsGetCmd(t *testing.T) {
	t.Run("prints the document", func(t *testing.T) {
		cleanup := setupDocumentsTest(t, storedDoc("abc123", "energy"))
		defer cleanup()

		out, err := runCommand(t, "documents", "get", "abc123")

		require.NoError(t, err)
		assert.Contains(t, out, "Grid Expansion Update abc123")
		assert.Contains(t, out, "Sectors:")
		assert.Contains(t, out, "energy")
		assert.Contains(t, out, "wb-news")
	})

	t.Run("missing document is an error", func(t *testing.T) {
		cleanup := setupDocumentsTest(t)
		defer cleanup()

		_, err := runCommand(t, "documents", "get", "nope")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope")
	})

	t.Run("json output", func(t *testing.T) {
		cleanup := setupDocumentsTest(t, storedDoc("abc123", "energy"))
		defer cleanup()

		out, err := runCommand(t, "documents", "get", "abc123", "--json")

		require.NoError(t, err)
		assert.Contains(t, out, `"id": "abc123"`)
	})
}

func TestDocumentsListCmd(t *testing.T) {
	t.Run("lists documents for a source", func(t *testing.T) {
		cleanup := setupDocumentsTest(t,
			storedDoc("a", "energy"), storedDoc("b", "water"))
		defer cleanup()

		out, err := runCommand(t, "documents", "list", "wb-news")

		require.NoError(t, err)
		assert.Contains(t, out, "Total: 2 documents")
	})

	t.Run("empty source prints a notice", func(t *testing.T) {
		cleanup := setupDocumentsTest(t)
		defer cleanup()

		out, err := runCommand(t, "documents", "list", "wb-news")

		require.NoError(t, err)
		assert.Contains(t, out, "No documents found")
	})
}

func TestDocumentsQueryCmd(t *testing.T) {
	t.Run("queries by dimension and values", func(t *testing.T) {
		cleanup := setupDocumentsTest(t,
			storedDoc("a", "energy"), storedDoc("b", "water"), storedDoc("c", "education"))
		defer cleanup()

		out, err := runCommand(t, "documents", "query",
			"--dimension", "sectors", "--values", "energy, water")

		require.NoError(t, err)
		assert.Contains(t, out, "Total: 2 documents")
	})

	t.Run("dimension is required", func(t *testing.T) {
		cleanup := setupDocumentsTest(t)
		defer cleanup()

		_, err := runCommand(t, "documents", "query", "--values", "energy")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "--dimension")
	})

	t.Run("unknown dimension is rejected", func(t *testing.T) {
		cleanup := setupDocumentsTest(t)
		defer cleanup()

		_, err := runCommand(t, "documents", "query",
			"--dimension", "moods", "--values", "upbeat")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "moods")
	})

	t.Run("no matches prints a notice", func(t *testing.T) {
		cleanup := setupDocumentsTest(t, storedDoc("a", "energy"))
		defer cleanup()

		out, err := runCommand(t, "documents", "query",
			"--dimension", "regions", "--values", "sahel")

		require.NoError(t, err)
		assert.Contains(t, out, "No documents match")
	})
}
