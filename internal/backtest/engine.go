// Package backtest measures how the daily grain signals relate to futures
// prices: the net sentiment of each (date, commodity) pair is joined with the
// forward return of the front-month contract a few days later.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/graintel/internal/datasource"
	"github.com/seenimoa/graintel/internal/storage"
	"github.com/seenimoa/graintel/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Engine Configuration
// ════════════════════════════════════════════════════════════════════

// Config holds the parameters of a backtest run.
type Config struct {
	ForwardDays int           // calendar days between signal and exit (default: 5)
	PricePad    time.Duration // extra history fetched around the signal range (default: 7 days)
}

// DefaultConfig returns the daily pipeline defaults.
func DefaultConfig() Config {
	return Config{
		ForwardDays: 5,
		PricePad:    7 * 24 * time.Hour,
	}
}

// ════════════════════════════════════════════════════════════════════
// Engine
// ════════════════════════════════════════════════════════════════════

// Engine runs backtests against a price source.
type Engine struct {
	cfg    Config
	prices datasource.PriceSource
}

// NewEngine creates a backtest engine. Non-positive settings take defaults.
func NewEngine(prices datasource.PriceSource, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ForwardDays <= 0 {
		cfg.ForwardDays = def.ForwardDays
	}
	if cfg.PricePad <= 0 {
		cfg.PricePad = def.PricePad
	}
	return &Engine{cfg: cfg, prices: prices}
}

// ForwardDays returns the configured horizon.
func (e *Engine) ForwardDays() int { return e.cfg.ForwardDays }

// Run loads every signals file of dir and evaluates them.
func (e *Engine) Run(ctx context.Context, dir string) (models.BacktestSummary, error) {
	signals, err := LoadDailySignals(dir)
	if err != nil {
		return models.BacktestSummary{}, err
	}
	return e.Evaluate(ctx, signals)
}

// Evaluate downloads the futures closes covering signals, attaches forward
// returns and summarizes them. A summary with no matched signal is not an
// error: there may simply be no price yet for recent dates.
func (e *Engine) Evaluate(ctx context.Context, signals []models.DailySignal) (models.BacktestSummary, error) {
	if len(signals) == 0 {
		return models.BacktestSummary{}, ErrNoSignals
	}
	from, to := signalRange(signals)

	series, err := e.fetchSeries(ctx, commoditiesOf(signals), from.Add(-e.cfg.PricePad), to.Add(e.cfg.PricePad).AddDate(0, 0, e.cfg.ForwardDays))
	if err != nil {
		return models.BacktestSummary{}, err
	}

	returns := AttachReturns(signals, series, e.cfg.ForwardDays)
	summary := Summarize(returns)
	summary.ForwardDays = e.cfg.ForwardDays
	summary.From = from.Format(storage.DateLayout)
	summary.To = to.Format(storage.DateLayout)

	log.Info().
		Int("signals", len(signals)).
		Int("matched", len(returns)).
		Str("from", summary.From).
		Str("to", summary.To).
		Msg("backtest evaluated")
	return summary, nil
}

// fetchSeries downloads the daily closes of each commodity concurrently. A
// ticker that fails is logged and left out; its signals are then skipped.
func (e *Engine) fetchSeries(ctx context.Context, commodities []models.Commodity, from, to time.Time) (map[models.Commodity]PriceSeries, error) {
	var mu sync.Mutex
	out := make(map[models.Commodity]PriceSeries, len(commodities))

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range commodities {
		ticker := c.FuturesTicker()
		if ticker == "" {
			continue
		}
		g.Go(func() error {
			bars, err := e.prices.GetHistoricalData(gctx, ticker, from, to)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("ticker", ticker).Str("source", e.prices.Name()).Msg("price download failed")
				return nil
			}
			mu.Lock()
			out[c] = NewPriceSeries(ticker, bars)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("download prices: %w", err)
	}
	return out, nil
}

func commoditiesOf(signals []models.DailySignal) []models.Commodity {
	seen := make(map[models.Commodity]bool)
	var out []models.Commodity
	for _, c := range models.Grains() {
		for _, s := range signals {
			if s.Commodity == c && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// ════════════════════════════════════════════════════════════════════
// Price series and forward returns
// ════════════════════════════════════════════════════════════════════

// PriceSeries holds the daily closes of one ticker keyed by session date.
type PriceSeries struct {
	Ticker string
	closes map[string]float64
	dates  []string // sorted
}

// NewPriceSeries indexes bars by their session date. Bars with a
// non-positive close are dropped; the last bar of a date wins.
func NewPriceSeries(ticker string, bars []models.OHLCV) PriceSeries {
	s := PriceSeries{Ticker: ticker, closes: make(map[string]float64, len(bars))}
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		s.closes[b.Timestamp.Format(storage.DateLayout)] = b.Close
	}
	s.dates = make([]string, 0, len(s.closes))
	for d := range s.closes {
		s.dates = append(s.dates, d)
	}
	sort.Strings(s.dates)
	return s
}

// Len returns the number of sessions.
func (s PriceSeries) Len() int { return len(s.dates) }

// CloseOn returns the close of the given session date.
func (s PriceSeries) CloseOn(day time.Time) (float64, bool) {
	p, ok := s.closes[day.Format(storage.DateLayout)]
	return p, ok
}

// FirstOnOrAfter returns the first session on or after day.
func (s PriceSeries) FirstOnOrAfter(day time.Time) (string, float64, bool) {
	key := day.Format(storage.DateLayout)
	i := sort.SearchStrings(s.dates, key)
	if i == len(s.dates) {
		return "", 0, false
	}
	d := s.dates[i]
	return d, s.closes[d], true
}

// AttachReturns joins each signal with the return between the close of its
// date and the first close on or after date+forwardDays. Signals whose date
// has no session (weekends, holidays) or whose exit is not yet known are
// skipped.
func AttachReturns(signals []models.DailySignal, series map[models.Commodity]PriceSeries, forwardDays int) []models.SignalReturn {
	var out []models.SignalReturn
	for _, sig := range signals {
		s, ok := series[sig.Commodity]
		if !ok || s.Len() == 0 {
			continue
		}
		p0, ok := s.CloseOn(sig.Date)
		if !ok || p0 <= 0 {
			continue
		}
		_, p1, ok := s.FirstOnOrAfter(sig.Date.AddDate(0, 0, forwardDays))
		if !ok {
			continue
		}
		out = append(out, models.SignalReturn{
			DailySignal: sig,
			Ticker:      s.Ticker,
			FwdReturn:   p1/p0 - 1,
		})
	}
	return out
}
