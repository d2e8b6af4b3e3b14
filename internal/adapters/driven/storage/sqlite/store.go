// Package sqlite persists documents in a SQLite database.
// WAL mode keeps concurrent pipeline writers from blocking readers, and
// a busy timeout absorbs brief lock contention between workers.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bankwatch-labs/harvest-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is the SQLite-backed document store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the document database in dataDir.
// If dataDir is empty, defaults to ~/.harvest/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".harvest", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "documents.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies any pending numbered .up.sql migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Upsert stores or fully replaces a document under its ID, rewriting the
// tag index rows in the same transaction.
func (s *Store) Upsert(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return &domain.StoreError{Op: "upsert", Cause: domain.ErrInvalidInput}
	}

	tagsJSON, err := json.Marshal(doc.Tags)
	if err != nil {
		return &domain.StoreError{Op: "upsert", ID: doc.ID, Cause: fmt.Errorf("marshalling tags: %w", err)}
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return &domain.StoreError{Op: "upsert", ID: doc.ID, Cause: fmt.Errorf("marshalling metadata: %w", err)}
	}
	refJSON, err := json.Marshal(doc.SourceReference)
	if err != nil {
		return &domain.StoreError{Op: "upsert", ID: doc.ID, Cause: fmt.Errorf("marshalling source reference: %w", err)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreError{Op: "upsert", ID: doc.ID, Cause: fmt.Errorf("beginning transaction: %w", err)}
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, source_id, title, summary, content, url, source_url,
			published_date, document_type, tags, metadata, source_reference,
			validation_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			title = excluded.title,
			summary = excluded.summary,
			content = excluded.content,
			url = excluded.url,
			source_url = excluded.source_url,
			published_date = excluded.published_date,
			document_type = excluded.document_type,
			tags = excluded.tags,
			metadata = excluded.metadata,
			source_reference = excluded.source_reference,
			validation_score = excluded.validation_score,
			updated_at = excluded.updated_at
	`, doc.ID, doc.SourceReference.SourceID, doc.Title, doc.Summary, doc.Content,
		doc.URL, doc.SourceURL, nullableTime(doc.PublishedDate), string(doc.DocumentType),
		string(tagsJSON), string(metadataJSON), string(refJSON),
		doc.ValidationScore, time.Now().UTC())
	if err != nil {
		return &domain.StoreError{Op: "upsert", ID: doc.ID, Cause: fmt.Errorf("saving document: %w", err)}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM document_tags WHERE document_id = ?", doc.ID); err != nil {
		return &domain.StoreError{Op: "upsert", ID: doc.ID, Cause: fmt.Errorf("clearing tags: %w", err)}
	}
	for _, dimension := range domain.TagDimensions() {
		for _, value := range doc.TagValues(dimension) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO document_tags (document_id, dimension, value) VALUES (?, ?, ?)
				ON CONFLICT(document_id, dimension, value) DO NOTHING
			`, doc.ID, dimension, value); err != nil {
				return &domain.StoreError{Op: "upsert", ID: doc.ID, Cause: fmt.Errorf("saving tag: %w", err)}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreError{Op: "upsert", ID: doc.ID, Cause: fmt.Errorf("committing transaction: %w", err)}
	}
	return nil
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StoreError{Op: "get", ID: id, Cause: err}
	}
	return doc, nil
}

// QueryByTag returns documents carrying any of the given values in the
// named tag dimension.
func (s *Store) QueryByTag(ctx context.Context, dimension string, values []string) ([]domain.Document, error) {
	if !slices.Contains(domain.TagDimensions(), dimension) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDimension, dimension)
	}
	if len(values) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(values)-1) + "?"
	args := make([]any, 0, len(values)+1)
	args = append(args, dimension)
	for _, v := range values {
		args = append(args, v)
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+`
		FROM documents
		WHERE id IN (
			SELECT DISTINCT document_id FROM document_tags
			WHERE dimension = ? AND value IN (`+placeholders+`)
		)
		ORDER BY published_date DESC
	`, args...)
	if err != nil {
		return nil, &domain.StoreError{Op: "query", Cause: err}
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// List returns all documents for a source, newest first.
func (s *Store) List(ctx context.Context, sourceID string) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+" FROM documents WHERE source_id = ? ORDER BY published_date DESC", sourceID)
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Cause: err}
	}
	defer rows.Close()

	return collectDocuments(rows)
}

// Delete removes a document; its tag rows cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return &domain.StoreError{Op: "delete", ID: id, Cause: err}
	}
	return nil
}

const selectColumns = `SELECT id, title, summary, content, url, source_url,
	published_date, document_type, tags, metadata, source_reference, validation_score`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var published sql.NullTime
	var docType, tagsJSON, metadataJSON, refJSON string

	err := row.Scan(&doc.ID, &doc.Title, &doc.Summary, &doc.Content, &doc.URL,
		&doc.SourceURL, &published, &docType, &tagsJSON, &metadataJSON, &refJSON,
		&doc.ValidationScore)
	if err != nil {
		return nil, err
	}

	if published.Valid {
		doc.PublishedDate = published.Time.UTC()
	}
	doc.DocumentType = domain.DocumentType(docType)
	if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshalling tags: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(refJSON), &doc.SourceReference); err != nil {
		return nil, fmt.Errorf("unmarshalling source reference: %w", err)
	}
	return &doc, nil
}

func collectDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, &domain.StoreError{Op: "scan", Cause: err}
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "scan", Cause: err}
	}
	return docs, nil
}

// nullableTime maps the zero time to NULL so date-window queries and
// ordering treat undated documents consistently.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
