package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/amp/internal/models"
	cfgPkg "github.com/xhad/amp/pkg/config"
	"github.com/xhad/amp/pkg/enricher"
	"github.com/xhad/amp/pkg/extractor"
	"github.com/xhad/amp/pkg/llm"
	"github.com/xhad/amp/pkg/pacing"
	"github.com/xhad/amp/pkg/runner"
	"github.com/xhad/amp/pkg/search"
	"github.com/xhad/amp/pkg/store"
)

// flagValues carries the raw command line values. Only flags the user
// actually set override the file/env config, so the zero defaults here are
// never applied; real defaults live in pkg/config.
type flagValues struct {
	BaseURL         string
	DBUrl           string
	TableName       string
	Model           string
	MaxTokens       int
	Temperature     float64
	SearchAPIKey    string
	SearchEngineID  string
	SearchResults   int
	DocumentDelayMs int
	FetchDelayMs    int
	FetchTimeoutSec int
	MaxLength       int
	MinSourceChars  int
	SiteHost        string
	NoSearch        bool
	NoSynthesis     bool
	DryRun          bool
}

// options holds run settings that have no config-file equivalent.
type options struct {
	SiteHost string
	DryRun   bool
}

func main() {
	cfg, opts := parseFlags()

	if err := run(cfg, opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (*cfgPkg.Config, options) {
	var fl flagValues
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&fl.BaseURL, "ollama-url", "", "Ollama server URL")
	flag.StringVar(&fl.DBUrl, "db-url", "", "PostgreSQL connection string")
	flag.StringVar(&fl.TableName, "table", "", "PostgreSQL table name")
	flag.StringVar(&fl.Model, "model", "", "LLM model to use")
	flag.IntVar(&fl.MaxTokens, "max-tokens", 0, "Maximum tokens for LLM response")
	flag.Float64Var(&fl.Temperature, "temperature", 0, "Set the LLM temperature")
	flag.StringVar(&fl.SearchAPIKey, "search-key", "", "Search API key")
	flag.StringVar(&fl.SearchEngineID, "search-engine", "", "Search engine ID")
	flag.IntVar(&fl.SearchResults, "search-results", 0, "Competitor articles per document")
	flag.IntVar(&fl.DocumentDelayMs, "document-delay", 0, "Delay between documents in milliseconds")
	flag.IntVar(&fl.FetchDelayMs, "fetch-delay", 0, "Delay between page fetches in milliseconds")
	flag.IntVar(&fl.FetchTimeoutSec, "fetch-timeout", 0, "Page fetch timeout in seconds")
	flag.IntVar(&fl.MaxLength, "max-length", 0, "Maximum extracted text length per source")
	flag.IntVar(&fl.MinSourceChars, "min-source-chars", 0, "Minimum extracted text length to keep a source")
	flag.StringVar(&fl.SiteHost, "site-host", "", "Host of the site being enhanced, excluded from citations")
	flag.BoolVar(&fl.NoSearch, "no-search", false, "Skip the competitor search phase")
	flag.BoolVar(&fl.NoSynthesis, "no-synthesis", false, "Skip synthesis, publish pass-through variants")
	flag.BoolVar(&fl.DryRun, "dry-run", false, "Run the pipeline without publishing")
	flag.Parse()

	// A config file that exists but cannot be read or parsed is fatal;
	// running a batch on the wrong settings is worse than stopping.
	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyOverrides(cfg, fl, set)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, "config:", e.Error())
		}
		os.Exit(1)
	}

	return cfg, options{SiteHost: fl.SiteHost, DryRun: fl.DryRun}
}

// applyOverrides copies explicitly-set flags over the file/env config.
func applyOverrides(cfg *cfgPkg.Config, fl flagValues, set map[string]bool) {
	if set["ollama-url"] {
		cfg.LLM.BaseURL = fl.BaseURL
	}
	if set["model"] {
		cfg.LLM.Model = fl.Model
	}
	if set["max-tokens"] {
		cfg.LLM.MaxTokens = fl.MaxTokens
	}
	if set["temperature"] {
		cfg.LLM.Temperature = fl.Temperature
	}
	if set["db-url"] {
		cfg.Database.URL = fl.DBUrl
	}
	if set["table"] {
		cfg.Database.TableName = fl.TableName
	}
	if set["search-key"] {
		cfg.Search.APIKey = fl.SearchAPIKey
	}
	if set["search-engine"] {
		cfg.Search.EngineID = fl.SearchEngineID
	}
	if set["search-results"] {
		cfg.Pipeline.SearchResults = fl.SearchResults
	}
	if set["min-source-chars"] {
		cfg.Pipeline.MinSourceChars = fl.MinSourceChars
	}
	if set["document-delay"] {
		cfg.Pipeline.DocumentDelayMs = fl.DocumentDelayMs
	}
	if set["fetch-delay"] {
		cfg.Pipeline.FetchDelayMs = fl.FetchDelayMs
	}
	if set["fetch-timeout"] {
		cfg.Extractor.TimeoutSeconds = fl.FetchTimeoutSec
	}
	if set["max-length"] {
		cfg.Extractor.MaxLength = fl.MaxLength
	}
	if set["no-search"] && fl.NoSearch {
		cfg.Pipeline.DisableSearch = true
	}
	if set["no-synthesis"] && fl.NoSynthesis {
		cfg.Pipeline.DisableSynthesis = true
	}
}

func newSearchConfig(cfg *cfgPkg.Config, siteHost string) search.SearchConfig {
	return search.SearchConfig{
		APIKey:        cfg.Search.APIKey,
		EngineID:      cfg.Search.EngineID,
		Endpoint:      cfg.Search.Endpoint,
		OwnHost:       siteHost,
		ExcludedHosts: cfg.Search.ExcludedHosts,
	}
}

func newExtractorConfig(cfg *cfgPkg.Config) extractor.ExtractorConfig {
	return extractor.ExtractorConfig{
		Timeout:   time.Duration(cfg.Extractor.TimeoutSeconds) * time.Second,
		MaxLength: cfg.Extractor.MaxLength,
	}
}

func newSynthesizerConfig(cfg *cfgPkg.Config) llm.SynthesizerConfig {
	return llm.SynthesizerConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
	}
}

func newEnricherConfig(cfg *cfgPkg.Config, dryRun bool) enricher.Config {
	return enricher.Config{
		SearchEnabled:    !cfg.Pipeline.DisableSearch,
		SynthesisEnabled: !cfg.Pipeline.DisableSynthesis,
		SearchResults:    cfg.Pipeline.SearchResults,
		MinSourceChars:   cfg.Pipeline.MinSourceChars,
		FetchPacer:       pacing.New(time.Duration(cfg.Pipeline.FetchDelayMs) * time.Millisecond),
		DryRun:           dryRun,
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(cfg *cfgPkg.Config, opts options) error {
	ctx := context.Background()

	// Initialize components

	documentStore, err := store.NewWithConfig(store.StoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize document store: %v", err)
	}
	defer documentStore.Close()

	searcher := search.NewWithConfig(newSearchConfig(cfg, opts.SiteHost))

	pageExtractor := extractor.NewWithConfig(newExtractorConfig(cfg))

	synthesizer, err := llm.NewWithConfig(newSynthesizerConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize synthesizer: %v", err)
	}

	enrich := enricher.New(newEnricherConfig(cfg, opts.DryRun),
		searcher, pageExtractor, synthesizer, documentStore)

	if cfg.Pipeline.DisableSearch {
		color.Yellow("Search phase disabled; documents will be enriched without competitor sources")
	}
	if cfg.Pipeline.DisableSynthesis {
		color.Yellow("Synthesis disabled; documents will be published as pass-through variants")
	}
	if opts.DryRun {
		color.Yellow("Dry run; nothing will be published")
	}

	var bar *progressbar.ProgressBar
	batch := runner.New(runner.Config{
		ItemPacer: pacing.New(time.Duration(cfg.Pipeline.DocumentDelayMs) * time.Millisecond),
		OnProgress: func(outcome models.EnrichmentOutcome) {
			if outcome.Err != nil {
				color.Red("✗ %s: %v", outcome.Title, outcome.Err)
			} else {
				color.Green("✓ %s", outcome.Title)
			}
			if bar != nil {
				bar.Add(1)
			}
		},
	}, documentStore, enrich)

	color.Cyan("\nStarting enrichment batch")
	bar = getProgressBar(-1, " Enriching documents...")

	summary, err := batch.Run(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("batch failed: %v", err)
	}

	if summary.Processed == 0 {
		color.Cyan("\nNo documents waiting for enrichment")
		return nil
	}

	color.Cyan("\nBatch complete: %d processed, %d succeeded, %d failed",
		summary.Processed, summary.Succeeded, summary.Failed)

	return nil
}
