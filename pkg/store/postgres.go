package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xhad/amp/internal/models"
)

// ErrDuplicateURL is returned by Create when a document with the same source
// URL already exists. The pipeline relies on this to avoid enriching the
// same document twice.
var ErrDuplicateURL = errors.New("document with this source URL already exists")

type StoreConfig struct {
	ConnString string
	TableName  string
}

type DocumentStore struct {
	config StoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config StoreConfig) (*DocumentStore, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	ds := &DocumentStore{
		config: config,
		pool:   pool,
	}

	if err := ds.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return ds, nil
}

func (ds *DocumentStore) initialize() error {
	ctx := context.Background()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT,
			excerpt TEXT,
			author TEXT,
			published_at TIMESTAMPTZ NOT NULL,
			source_url TEXT NOT NULL UNIQUE,
			tags TEXT[],
			is_enhanced BOOLEAN NOT NULL DEFAULT FALSE,
			parent_id TEXT,
			citations JSONB,
			annotations JSONB
		)`, ds.config.TableName)

	_, err := ds.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	return nil
}

// Ping verifies the store is reachable. The batch runner calls this before
// touching the backlog.
func (ds *DocumentStore) Ping(ctx context.Context) error {
	return ds.pool.Ping(ctx)
}

// ListUnenhanced returns the full backlog of documents that have not been
// enriched yet, oldest first.
func (ds *DocumentStore) ListUnenhanced(ctx context.Context) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, title, content, excerpt, author, published_at,
			source_url, tags, is_enhanced, parent_id, citations, annotations
		FROM %s
		WHERE is_enhanced = FALSE
		ORDER BY published_at`,
		ds.config.TableName)

	rows, err := ds.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %v", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Create inserts the document and returns it with its assigned identity.
// A source URL collision yields ErrDuplicateURL.
func (ds *DocumentStore) Create(ctx context.Context, doc models.Document) (models.Document, error) {
	doc.ID = uuid.NewString()
	if doc.PublishedAt.IsZero() {
		doc.PublishedAt = time.Now()
	}

	citations, err := json.Marshal(doc.Citations)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to encode citations: %v", err)
	}
	annotations, err := json.Marshal(doc.Annotations)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to encode annotations: %v", err)
	}

	var parentID *string
	if doc.ParentID != "" {
		parentID = &doc.ParentID
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, title, content, excerpt, author, published_at,
			source_url, tags, is_enhanced, parent_id, citations, annotations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		ds.config.TableName)

	_, err = ds.pool.Exec(ctx, stmt,
		doc.ID,
		doc.Title,
		doc.Content,
		doc.Excerpt,
		doc.Author,
		doc.PublishedAt,
		doc.SourceURL,
		doc.Tags,
		doc.IsEnhanced,
		parentID,
		citations,
		annotations,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.Document{}, fmt.Errorf("%w: %s", ErrDuplicateURL, doc.SourceURL)
		}
		return models.Document{}, fmt.Errorf("failed to insert document: %v", err)
	}

	return doc, nil
}

func (ds *DocumentStore) Close() {
	if ds.pool != nil {
		ds.pool.Close()
	}
}

func scanDocument(rows pgx.Rows) (models.Document, error) {
	var doc models.Document
	var parentID *string
	var citations, annotations []byte

	err := rows.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Content,
		&doc.Excerpt,
		&doc.Author,
		&doc.PublishedAt,
		&doc.SourceURL,
		&doc.Tags,
		&doc.IsEnhanced,
		&parentID,
		&citations,
		&annotations,
	)
	if err != nil {
		return models.Document{}, err
	}

	if parentID != nil {
		doc.ParentID = *parentID
	}
	if len(citations) > 0 {
		if err := json.Unmarshal(citations, &doc.Citations); err != nil {
			return models.Document{}, err
		}
	}
	if len(annotations) > 0 {
		if err := json.Unmarshal(annotations, &doc.Annotations); err != nil {
			return models.Document{}, err
		}
	}

	return doc, nil
}
