// Package enricher runs the per-document enrichment pipeline:
// search for competing articles, extract their prose, synthesize a rewrite,
// assemble citations, and publish the enhanced variant.
package enricher

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/amp/internal/models"
	"github.com/xhad/amp/internal/types"
	"github.com/xhad/amp/pkg/pacing"
)

type Config struct {
	SearchEnabled    bool
	SynthesisEnabled bool
	SearchResults    int           // competitor articles requested per document
	MaxSources       int           // sources handed to synthesis; citations cover exactly these
	MinSourceChars   int           // extracted text shorter than this is discarded
	ExcerptLength    int           // derived excerpt length on pass-through
	FetchPacer       *pacing.Pacer // interval between competitor page fetches
	DryRun           bool          // assemble but do not publish
}

// Enricher orchestrates one document's enrichment. The pipeline is strictly
// sequential; retrieval and extraction failures shrink the source set while
// synthesis and store failures abort the document.
type Enricher struct {
	config      Config
	searcher    types.Searcher
	extractor   types.Extractor
	synthesizer types.Synthesizer
	store       types.DocumentStore
}

func New(config Config, searcher types.Searcher, extractor types.Extractor, synthesizer types.Synthesizer, store types.DocumentStore) *Enricher {
	if config.SearchResults == 0 {
		config.SearchResults = 2
	}
	// Must not exceed the synthesizer's own source cap, or citations would
	// name articles the model never saw.
	if config.MaxSources == 0 {
		config.MaxSources = 3
	}
	if config.MinSourceChars == 0 {
		config.MinSourceChars = 200
	}
	if config.ExcerptLength == 0 {
		config.ExcerptLength = 200
	}

	return &Enricher{
		config:      config,
		searcher:    searcher,
		extractor:   extractor,
		synthesizer: synthesizer,
		store:       store,
	}
}

// Enrich runs the full pipeline for one document and returns the published
// enhanced variant. The input document is never mutated.
func (e *Enricher) Enrich(ctx context.Context, doc models.Document) (*models.Document, error) {
	sources, err := e.gatherSources(ctx, doc)
	if err != nil {
		return nil, err
	}

	var result *models.SynthesisResult
	var citations []models.Citation

	if e.config.SynthesisEnabled && e.synthesizer != nil && len(sources) > 0 {
		result, err = e.synthesizer.Synthesize(ctx, doc, sources)
		if err != nil {
			return nil, fmt.Errorf("synthesize %q: %w", doc.Title, err)
		}
		// Cite every source the synthesizer saw, in extraction order.
		for _, src := range sources {
			citations = append(citations, models.Citation{Title: src.Title, URL: src.URL})
		}
	} else {
		result = e.passThrough(doc)
	}

	body := result.Content
	if len(citations) > 0 {
		body += ReferencesBlock(citations)
	}

	enriched := models.Document{
		Title:       result.Title,
		Content:     body,
		Excerpt:     result.Excerpt,
		Author:      doc.Author,
		PublishedAt: time.Now(),
		SourceURL:   derivedSourceURL(doc.SourceURL),
		Tags:        appendTag(doc.Tags, "enhanced"),
		IsEnhanced:  true,
		ParentID:    doc.ID,
		Citations:   citations,
		Annotations: result.Annotations,
	}

	if e.config.DryRun {
		return &enriched, nil
	}

	created, err := e.store.Create(ctx, enriched)
	if err != nil {
		return nil, fmt.Errorf("publish %q: %w", enriched.Title, err)
	}

	return &created, nil
}

// gatherSources searches for competitor articles and extracts their text,
// keeping only sources long enough to be useful. Fetches are paced so the
// target sites are not hammered.
func (e *Enricher) gatherSources(ctx context.Context, doc models.Document) ([]models.ExtractedSource, error) {
	if !e.config.SearchEnabled || e.searcher == nil || e.extractor == nil {
		return nil, nil
	}

	results := e.searcher.Search(ctx, doc.Title, e.config.SearchResults)
	ownHost := hostOf(doc.SourceURL)

	var sources []models.ExtractedSource
	for _, result := range results {
		if len(sources) == e.config.MaxSources {
			break
		}
		// The document's own site is never a competitor source, whatever
		// the search backend was configured to exclude.
		if ownHost != "" && hostOf(result.URL) == ownHost {
			continue
		}

		if err := e.config.FetchPacer.Wait(ctx); err != nil {
			return nil, err
		}

		text := e.extractor.Extract(ctx, result.URL)
		if len(text) <= e.config.MinSourceChars {
			continue
		}

		sources = append(sources, models.ExtractedSource{
			Title:   result.Title,
			URL:     result.URL,
			Content: text,
		})
	}

	return sources, nil
}

// passThrough is the degraded outcome used when synthesis is disabled or no
// usable competitor source exists: original body, suffixed title, derived
// excerpt.
func (e *Enricher) passThrough(doc models.Document) *models.SynthesisResult {
	excerpt := doc.Excerpt
	if excerpt == "" {
		excerpt = deriveExcerpt(doc.Content, e.config.ExcerptLength)
	}

	return &models.SynthesisResult{
		Title:   doc.Title + " (Enhanced)",
		Content: doc.Content,
		Excerpt: excerpt,
	}
}

// ReferencesBlock renders a citation list as an HTML section appended after
// the synthesized body. The output is a pure function of the citations, so
// rebuilding it for the same list is byte-identical.
func ReferencesBlock(citations []models.Citation) string {
	if len(citations) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n<h2>References</h2>\n<ul>\n")
	for _, citation := range citations {
		title := citation.Title
		if title == "" {
			title = citation.URL
		}
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n",
			html.EscapeString(citation.URL), html.EscapeString(title))
	}
	b.WriteString("</ul>\n")

	return b.String()
}

// derivedSourceURL appends a uniqueness suffix so the enhanced variant does
// not collide with the original's unique source URL.
func derivedSourceURL(original string) string {
	suffix := "enhanced-" + uuid.NewString()[:8]
	if strings.Contains(original, "?") {
		return original + "&" + suffix
	}
	return original + "?" + suffix
}

// hostOf normalizes a URL down to its bare host for origin comparison.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

func appendTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, tag)
}

var htmlTags = regexp.MustCompile(`<[^>]+>`)

// deriveExcerpt takes the first n characters of the body's plain text.
func deriveExcerpt(content string, n int) string {
	text := strings.TrimSpace(htmlTags.ReplaceAllString(content, " "))
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= n {
		return text
	}
	cut := n
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut] + "..."
}
