package models

import "time"

// Document is a stored article, either an original from the corpus or an
// enhanced variant produced by the enrichment pipeline. Enhanced variants
// always carry the ID of the original in ParentID; originals never do.
type Document struct {
	ID          string
	Title       string
	Content     string
	Excerpt     string
	Author      string
	PublishedAt time.Time
	SourceURL   string
	Tags        []string
	IsEnhanced  bool
	ParentID    string
	Citations   []Citation
	Annotations []ChangeAnnotation
}

// SearchResult is one ranked hit from the search backend. It lives only for
// the duration of a single enrichment run and is never persisted.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// ExtractedSource is the cleaned prose pulled from a competitor page. Only
// sources whose content clears the minimum-length filter reach the synthesizer.
type ExtractedSource struct {
	Title   string
	URL     string
	Content string
}

// Citation records a source that was actually handed to the synthesizer.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

const (
	AnnotationAddition     = "addition"
	AnnotationModification = "modification"
)

// ChangeAnnotation describes one edit the synthesizer made, kept for audit
// and side-by-side comparison display.
type ChangeAnnotation struct {
	Kind         string `json:"kind"`
	NewText      string `json:"newText"`
	OriginalText string `json:"originalText,omitempty"`
	Reason       string `json:"reason"`
}

// SynthesisResult is the synthesizer's output. Parsed reports whether the
// model response satisfied the output schema; when false, Content holds the
// raw response text and Annotations is empty.
type SynthesisResult struct {
	Title       string
	Content     string
	Excerpt     string
	Annotations []ChangeAnnotation
	Parsed      bool
}

// EnrichmentOutcome is the per-document result collected by the batch runner.
type EnrichmentOutcome struct {
	DocumentID string
	Title      string
	EnrichedID string
	Err        error
}

// BatchSummary reports what a batch run did.
type BatchSummary struct {
	Processed int
	Succeeded int
	Failed    int
	Outcomes  []EnrichmentOutcome
}
