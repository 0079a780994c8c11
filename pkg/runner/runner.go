// Package runner drives the enrichment pipeline across the full backlog of
// non-enriched documents, isolating per-document failures.
package runner

import (
	"context"
	"fmt"

	"github.com/xhad/amp/internal/models"
	"github.com/xhad/amp/internal/types"
	"github.com/xhad/amp/pkg/pacing"
)

type Config struct {
	ItemPacer  *pacing.Pacer // interval between documents
	OnProgress func(outcome models.EnrichmentOutcome)
}

// Runner processes the backlog one document at a time. A single document's
// failure is counted and the run moves on; only an unreachable store aborts
// the batch.
type Runner struct {
	config   Config
	store    types.DocumentStore
	enricher types.Enricher
}

func New(config Config, store types.DocumentStore, enricher types.Enricher) *Runner {
	return &Runner{
		config:   config,
		store:    store,
		enricher: enricher,
	}
}

// Run enriches every document in the backlog and reports the outcome counts.
// An empty backlog is zero work, not an error.
func (r *Runner) Run(ctx context.Context) (*models.BatchSummary, error) {
	if err := r.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store unreachable: %w", err)
	}

	backlog, err := r.store.ListUnenhanced(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backlog: %w", err)
	}

	summary := &models.BatchSummary{}
	if len(backlog) == 0 {
		return summary, nil
	}

	for i, doc := range backlog {
		outcome := models.EnrichmentOutcome{
			DocumentID: doc.ID,
			Title:      doc.Title,
		}

		enriched, err := r.enricher.Enrich(ctx, doc)
		if err != nil {
			outcome.Err = err
			summary.Failed++
		} else {
			outcome.EnrichedID = enriched.ID
			summary.Succeeded++
		}
		summary.Processed++
		summary.Outcomes = append(summary.Outcomes, outcome)

		if r.config.OnProgress != nil {
			r.config.OnProgress(outcome)
		}

		// Pace between documents, not after the last one.
		if i < len(backlog)-1 {
			if err := r.config.ItemPacer.Wait(ctx); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}
