package extractor

import (
	"context"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

type ExtractorConfig struct {
	Timeout         time.Duration
	MaxLength       int // hard cap on extracted text, ellipsis appended when hit
	AcceptThreshold int // minimum text length for a content selector to win
	UserAgents      []string
}

// Extractor fetches a page and reduces it to clean prose. Every failure mode
// (network error, timeout, non-HTML response, unparseable markup) degrades to
// an empty string; callers treat empty as "unusable", never as an error.
type Extractor struct {
	config ExtractorConfig
	client *http.Client
}

// Rotating browser agents reduce trivial scraping blocks.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Markup that never carries article prose.
const strippedSelectors = "script, style, noscript, nav, header, footer, aside, form, iframe"

// Common boilerplate regions: sidebars, comments, ads, sharing widgets,
// related-post blocks.
const boilerplateSelectors = ".sidebar, #sidebar, .comments, #comments, .comment, " +
	".ad, .ads, .advertisement, .promo, .newsletter, .share, .social, .social-share, " +
	".related, .related-posts, .recommended, .popup, .cookie-banner"

// Content containers tried in order; the first whose text clears the
// acceptance threshold wins.
var contentSelectors = []string{
	"article",
	"[role=main]",
	"main",
	".post-content",
	".entry-content",
	".article-content",
	".article-body",
	".post-body",
	".blog-post",
	".content",
	"#content",
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxLength == 0 {
		config.MaxLength = 5000
	}
	if config.AcceptThreshold == 0 {
		config.AcceptThreshold = 500
	}
	if len(config.UserAgents) == 0 {
		config.UserAgents = defaultUserAgents
	}

	return &Extractor{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

func New() *Extractor {
	return NewWithConfig(ExtractorConfig{})
}

// Extract fetches the URL and returns its article text, or "" when the page
// is unreachable or carries no usable content.
func (e *Extractor) Extract(ctx context.Context, urlStr string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", e.config.UserAgents[rand.Intn(len(e.config.UserAgents))])
	req.Header.Set("Accept", "text/html")

	resp, err := e.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	return e.extractMainContent(doc)
}

func (e *Extractor) extractMainContent(doc *goquery.Document) string {
	doc.Find(strippedSelectors).Remove()
	doc.Find(boilerplateSelectors).Remove()

	var content string
	for _, selector := range contentSelectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			candidate := normalizeWhitespace(selected.First().Text())
			if len(candidate) > e.config.AcceptThreshold {
				content = candidate
				break
			}
		}
	}

	// Fallback: join paragraph-level text when no container qualifies.
	if content == "" {
		var paragraphs []string
		doc.Find("p").Each(func(_ int, selection *goquery.Selection) {
			if text := strings.TrimSpace(selection.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
		content = normalizeWhitespace(strings.Join(paragraphs, "\n\n"))
	}

	return e.truncate(content)
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
	linePadding = regexp.MustCompile(` *\n *`)
)

// normalizeWhitespace collapses runs of spaces and tabs to single spaces and
// runs of three or more newlines to a single blank line.
func normalizeWhitespace(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")
	text = linePadding.ReplaceAllString(text, "\n")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func (e *Extractor) truncate(text string) string {
	if len(text) <= e.config.MaxLength {
		return text
	}
	// Back off to a rune boundary so the cut never splits a character.
	cut := e.config.MaxLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
