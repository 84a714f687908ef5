// Package pipeline runs the daily grain intelligence cycle: fetch the
// configured sources, keep recent articles, enrich them, score the batch,
// save the signals file and write the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/seenimoa/graintel/internal/analysis/engine"
	"github.com/seenimoa/graintel/internal/config"
	"github.com/seenimoa/graintel/internal/datasource"
	"github.com/seenimoa/graintel/internal/enrich"
	"github.com/seenimoa/graintel/internal/llm"
	"github.com/seenimoa/graintel/internal/report"
	"github.com/seenimoa/graintel/internal/storage"
	"github.com/seenimoa/graintel/pkg/models"
)

// ErrNoArticles is returned when a run ends up with nothing to score.
var ErrNoArticles = errors.New("pipeline: no recent articles")

// Pipeline wires the daily run.
type Pipeline struct {
	cfg      *config.Config
	fetcher  datasource.NewsFetcher
	enricher enrich.Enricher
	sources  []models.Source
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFetcher replaces the RSS/HTML fetcher.
func WithFetcher(f datasource.NewsFetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithEnricher replaces the enricher built from the LLM config.
func WithEnricher(e enrich.Enricher) Option {
	return func(p *Pipeline) { p.enricher = e }
}

// WithSources bypasses the sources catalog file.
func WithSources(sources []models.Source) Option {
	return func(p *Pipeline) { p.sources = sources }
}

// WithClock overrides the run clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline. Without WithEnricher the LLM router is built from
// cfg.LLM; when no provider is configured articles are classified offline.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}

	if p.fetcher == nil {
		timeout := time.Duration(cfg.Pipeline.FetchTimeoutMS) * time.Millisecond
		if timeout <= 0 {
			timeout = datasource.DefaultFetchTimeout
		}
		p.fetcher = datasource.NewNews(datasource.WithNewsHTTPClient(&http.Client{Timeout: timeout}))
	}

	if p.enricher == nil {
		router, err := llm.NewRouterFromConfig(cfg.LLM)
		switch {
		case err == nil:
			p.enricher = enrich.NewLLMEnricher(router, &llm.ChatOptions{
				Temperature: cfg.LLM.Temperature,
				MaxTokens:   cfg.LLM.MaxTokens,
				JSON:        true,
			})
		case errors.Is(err, llm.ErrNoProviders):
			log.Warn().Msg("no LLM provider configured, enriching offline")
			p.enricher = enrich.Offline{}
		default:
			return nil, fmt.Errorf("llm router: %w", err)
		}
	}
	return p, nil
}

// Result summarizes one run.
type Result struct {
	RunID       string
	Date        string
	Duration    time.Duration
	Sources     int
	Failed      map[string]error
	Fetched     int
	Recent      int
	Enrich      enrich.Stats
	Indicators  models.Indicators
	SignalsPath string
	Report      report.Result
}

// Run executes one daily cycle. Source and enrichment failures degrade the
// run; failures to write the signals file or the report are returned.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := p.now()
	res := Result{
		RunID: uuid.NewString(),
		Date:  start.UTC().Format(storage.DateLayout),
	}
	logger := log.With().Str("run_id", res.RunID).Logger()
	logger.Info().Str("date", res.Date).Msg("daily pipeline started")

	err := p.run(ctx, start, &res, logger)
	res.Duration = p.now().Sub(start)
	RunDuration.Observe(res.Duration.Seconds())

	switch {
	case err == nil:
		RunsTotal.WithLabelValues("success").Inc()
		LastSuccess.Set(float64(p.now().Unix()))
		logger.Info().Dur("duration", res.Duration).Str("report", res.Report.Markdown).Msg("daily pipeline finished")
	case errors.Is(err, ErrNoArticles):
		RunsTotal.WithLabelValues("empty").Inc()
		logger.Warn().Msg("no recent articles, nothing saved")
	default:
		RunsTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("daily pipeline failed")
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, start time.Time, res *Result, logger zerolog.Logger) error {
	sources, err := p.selectSources()
	if err != nil {
		return err
	}
	res.Sources = len(sources)

	fetched, err := datasource.FetchAll(ctx, p.fetcher, sources, p.cfg.Pipeline.FetchWorkers)
	res.Failed = fetched.Failed
	if err != nil {
		return err
	}
	res.Fetched = len(fetched.Articles)
	recordStage(StageFetched, res.Fetched)
	SourceFailuresTotal.Add(float64(len(fetched.Failed)))

	maxAge := time.Duration(p.cfg.Pipeline.MaxAgeDays) * 24 * time.Hour
	if maxAge <= 0 {
		maxAge = datasource.DefaultMaxAge
	}
	recent := datasource.FilterRecent(fetched.Articles, start, maxAge)
	res.Recent = len(recent)
	recordStage(StageRecent, res.Recent)
	logger.Info().Int("recent", res.Recent).Int("fetched", res.Fetched).
		Int("failed_sources", len(fetched.Failed)).Msg("articles fetched")
	if len(recent) == 0 {
		return ErrNoArticles
	}

	records, stats, err := enrich.EnrichAll(ctx, p.enricher, recent, p.cfg.LLM.Concurrency)
	if err != nil {
		return err
	}
	res.Enrich = stats
	recordStage(StageEnriched, stats.Enriched)
	recordStage(StageFallback, stats.Fallbacks)

	ind, err := engine.Compute(ctx, records, engine.Options{Workers: p.cfg.Pipeline.ScoreWorkers, Now: p.now})
	if err != nil {
		return err
	}
	res.Indicators = ind
	recordIndicators(ind)
	logger.Info().Int("final", ind.Macro.FinalMacroScore).Int("alerts", len(ind.AlertRows(models.SeverityWatch))).
		Msg("batch scored")

	res.SignalsPath, err = storage.SaveSignals(p.cfg.Pipeline.DataDir, start, ind.Articles)
	if err != nil {
		return err
	}
	recordStage(StageSaved, len(ind.Articles))

	res.Report, err = report.Write(ctx, res.Date, ind, report.Options{
		Config: report.Config{
			ForwardDays: p.cfg.Backtest.ForwardDays,
			Now:         p.now,
		},
		OutDir:      p.cfg.Pipeline.ReportDir,
		FigureDir:   p.cfg.Pipeline.FigureDir,
		SummaryPath: p.cfg.Backtest.SummaryPath,
		PDF:         p.cfg.Pipeline.ExportPDF,
	})
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// selectSources loads the catalog, keeps the configured groups and caps the
// count.
func (p *Pipeline) selectSources() ([]models.Source, error) {
	sources := p.sources
	if sources == nil {
		var err error
		sources, err = datasource.LoadSources(p.cfg.Sources.Catalog)
		if err != nil {
			return nil, err
		}
	}
	sources = datasource.FilterGroups(sources, p.cfg.Sources.Groups)
	sources = datasource.LimitSources(sources, p.cfg.Sources.MaxSources)
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no source in groups %v", datasource.ErrInvalidCatalog, p.cfg.Sources.Groups)
	}
	return sources, nil
}
