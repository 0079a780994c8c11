package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/amp/internal/models"
)

// SynthesizerConfig represents the configuration for a synthesis engine.
type SynthesizerConfig struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	BaseURL         string // Ollama server URL
	MaxSources      int    // reference excerpts embedded per prompt
	SourceCharLimit int    // per-source excerpt cap, bounds prompt size
	ExcerptLength   int    // derived excerpt length on fallback
}

// Synthesizer rewrites a document using competitor sources as reference
// material, via a single LLM round trip per document.
type Synthesizer struct {
	config SynthesizerConfig
	llm    llms.Model
}

const systemPrompt = `You are an expert content editor. You rewrite articles to be more ` +
	`comprehensive, better structured, and more engaging while preserving the original ` +
	`author's voice. You study competing articles on the same topic for coverage and ` +
	`structure, but you never copy their text verbatim.`

// NewWithConfig creates a new Synthesizer with the given configuration.
func NewWithConfig(config SynthesizerConfig) (*Synthesizer, error) {
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature <= 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 4000
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.MaxSources == 0 {
		config.MaxSources = 3
	}
	if config.SourceCharLimit == 0 {
		config.SourceCharLimit = 2000
	}
	if config.ExcerptLength == 0 {
		config.ExcerptLength = 200
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Synthesizer{
		config: config,
		llm:    llm,
	}, nil
}

// synthesisPayload matches the JSON object the prompt directs the model to
// emit. The model output is untrusted; anything outside this shape is dropped.
type synthesisPayload struct {
	Title              string `json:"title"`
	Content            string `json:"content"`
	Excerpt            string `json:"excerpt"`
	EnhancementDetails []struct {
		Type         string `json:"type"`
		NewText      string `json:"newText"`
		OriginalText string `json:"originalText"`
		Reason       string `json:"reason"`
	} `json:"enhancementDetails"`
}

// Synthesize produces a rewritten document from the original and the
// extracted competitor sources. A backend error is returned as-is so the
// caller can fail the current document; a response that violates the output
// schema is recovered locally into a raw-text fallback result.
func (s *Synthesizer) Synthesize(ctx context.Context, original models.Document, sources []models.ExtractedSource) (*models.SynthesisResult, error) {
	prompt := s.buildPrompt(original, sources)

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	response, err := s.llm.GenerateContent(ctx, content,
		llms.WithTemperature(s.config.Temperature),
		llms.WithMaxTokens(s.config.MaxTokens))
	if err != nil {
		return nil, fmt.Errorf("synthesis error: %w", err)
	}

	if response == nil || len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return nil, fmt.Errorf("synthesis error: empty response from model")
	}

	return s.parseResponse(response.Choices[0].Content, original), nil
}

func (s *Synthesizer) buildPrompt(original models.Document, sources []models.ExtractedSource) string {
	var b strings.Builder

	b.WriteString("Rewrite the following article so it is more comprehensive, better structured, ")
	b.WriteString("and more engaging than the competing articles provided as reference. ")
	b.WriteString("Preserve the original author's voice. Never copy reference text verbatim.\n\n")

	b.WriteString("ORIGINAL ARTICLE\n")
	fmt.Fprintf(&b, "Title: %s\n", original.Title)
	fmt.Fprintf(&b, "Body:\n%s\n\n", original.Content)

	count := len(sources)
	if count > s.config.MaxSources {
		count = s.config.MaxSources
	}
	for i := 0; i < count; i++ {
		src := sources[i]
		fmt.Fprintf(&b, "REFERENCE ARTICLE %d\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", src.Title)
		fmt.Fprintf(&b, "URL: %s\n", src.URL)
		fmt.Fprintf(&b, "Body:\n%s\n\n", capText(src.Content, s.config.SourceCharLimit))
	}

	b.WriteString(`OUTPUT FORMAT
Respond with a single JSON object and nothing else. No preamble, no code fences. Schema:
{
  "title": "the improved title",
  "content": "the full rewritten article body as HTML",
  "excerpt": "a 1-2 sentence summary",
  "enhancementDetails": [
    {
      "type": "addition" or "modification",
      "newText": "the new or changed text fragment",
      "originalText": "the original fragment (omit for additions)",
      "reason": "why this change improves the article"
    }
  ]
}
Include at least 3 and at most 5 entries in enhancementDetails.`)

	return b.String()
}

// parseResponse recovers a structured result from the raw model output. The
// response is never discarded: on schema violation the raw text itself
// becomes the content, with a derived title and excerpt.
func (s *Synthesizer) parseResponse(raw string, original models.Document) *models.SynthesisResult {
	cleaned := stripCodeFences(raw)

	var payload synthesisPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return &models.SynthesisResult{
			Title:   original.Title + " (Enhanced)",
			Content: raw,
			Excerpt: capText(raw, s.config.ExcerptLength),
			Parsed:  false,
		}
	}

	result := &models.SynthesisResult{
		Title:   payload.Title,
		Content: payload.Content,
		Excerpt: payload.Excerpt,
		Parsed:  true,
	}

	// Absent fields fall back to the original document.
	if result.Title == "" {
		result.Title = original.Title
	}
	if result.Content == "" {
		result.Content = original.Content
	}
	if result.Excerpt == "" {
		result.Excerpt = capText(result.Content, s.config.ExcerptLength)
	}

	for _, detail := range payload.EnhancementDetails {
		kind := detail.Type
		if kind != models.AnnotationModification {
			kind = models.AnnotationAddition
		}
		result.Annotations = append(result.Annotations, models.ChangeAnnotation{
			Kind:         kind,
			NewText:      detail.NewText,
			OriginalText: detail.OriginalText,
			Reason:       detail.Reason,
		})
	}

	return result
}

// stripCodeFences removes enclosing markdown fence markers that models emit
// despite being told not to. The opening fence may carry any language tag in
// any case, so the whole first line goes.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func capText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && text[cut]&0xC0 == 0x80 { // back off mid-rune continuation bytes
		cut--
	}
	return text[:cut] + "..."
}
