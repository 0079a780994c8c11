package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Database config
	if c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "database URL is required",
		})
	} else if _, err := url.Parse(c.Database.URL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "invalid database URL",
		})
	}

	// Validate Search config. Missing credentials are allowed; the search
	// phase degrades to no results rather than failing validation.
	if c.Search.Endpoint != "" {
		if _, err := url.Parse(c.Search.Endpoint); err != nil {
			errors = append(errors, ValidationError{
				Field:   "search.endpoint",
				Message: "invalid search endpoint URL",
			})
		}
	}

	// Validate Extractor config
	if c.Extractor.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "extractor.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	if c.Extractor.MaxLength < 1 {
		errors = append(errors, ValidationError{
			Field:   "extractor.max_length",
			Message: "max_length must be positive",
		})
	}

	// Validate Pipeline config
	if c.Pipeline.SearchResults < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.search_results",
			Message: "search_results must be positive",
		})
	}

	if c.Pipeline.MinSourceChars < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.min_source_chars",
			Message: "min_source_chars must be positive",
		})
	}

	if c.Pipeline.DocumentDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.document_delay_ms",
			Message: "document_delay_ms must be non-negative",
		})
	}

	if c.Pipeline.FetchDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.fetch_delay_ms",
			Message: "fetch_delay_ms must be non-negative",
		})
	}

	return errors
}
