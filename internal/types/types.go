package types

import (
	"context"

	"github.com/xhad/amp/internal/models"
)

// Core interfaces

// DocumentStore is the persistence collaborator. Create must reject a
// document whose source URL already exists.
type DocumentStore interface {
	Ping(ctx context.Context) error
	ListUnenhanced(ctx context.Context) ([]models.Document, error)
	Create(ctx context.Context, doc models.Document) (models.Document, error)
	Close()
}

// Searcher returns ranked candidate sources for a topic. Backend failures
// degrade to an empty slice; a Searcher never returns an error.
type Searcher interface {
	Search(ctx context.Context, topic string, desired int) []models.SearchResult
}

// Extractor reduces a page at a URL to clean prose text. Fetch or parse
// failures degrade to an empty string.
type Extractor interface {
	Extract(ctx context.Context, url string) string
}

// Synthesizer rewrites the original document using the extracted sources.
// Backend errors are fatal for the document being enriched.
type Synthesizer interface {
	Synthesize(ctx context.Context, original models.Document, sources []models.ExtractedSource) (*models.SynthesisResult, error)
}

// Enricher runs the full pipeline for one document.
type Enricher interface {
	Enrich(ctx context.Context, doc models.Document) (*models.Document, error)
}
