// Package engine runs the scoring stages over a batch of enriched articles:
// per-article alert and sentiment scoring fanned out across workers, then
// the macro and price impact reductions.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/graintel/internal/analysis/alerts"
	"github.com/seenimoa/graintel/internal/analysis/impact"
	"github.com/seenimoa/graintel/internal/analysis/macro"
	"github.com/seenimoa/graintel/internal/analysis/sentiment"
	"github.com/seenimoa/graintel/pkg/models"
)

// Options tunes a scoring run.
type Options struct {
	// Workers bounds per-article scoring concurrency. Zero uses GOMAXPROCS.
	Workers int
	// Now stamps Indicators.GeneratedAt. Defaults to time.Now.
	Now func() time.Time
}

// Compute scores a batch. The only error is cancellation of ctx; any record,
// including an empty batch, yields a best-effort result.
func Compute(ctx context.Context, records []models.ArticleRecord, opts Options) (models.Indicators, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	scored := make([]models.ArticleRecord, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scored[i] = ScoreArticle(records[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Indicators{}, fmt.Errorf("scoring articles: %w", err)
	}

	m := macro.ComputeScore(macro.SelectMacro(scored))

	return models.Indicators{
		Articles:    scored,
		Macro:       m,
		Impacts:     impact.Compute(scored, m),
		GeneratedAt: now().UTC(),
	}, nil
}

// ScoreArticle runs the per-article stages on one record: normalization,
// sentiment score and alert.
func ScoreArticle(a models.ArticleRecord) models.ArticleRecord {
	return alerts.Compute(sentiment.ScoreArticle(a.Normalized()))
}

// Score is Compute without cancellation.
func Score(records []models.ArticleRecord) models.Indicators {
	ind, _ := Compute(context.Background(), records, Options{})
	return ind
}
