package backtest

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/seenimoa/graintel/internal/storage"
	"github.com/seenimoa/graintel/pkg/models"
)

// ErrNoSignals is returned when no signals file holds a grain article.
var ErrNoSignals = errors.New("backtest: no usable wheat/corn/soy signals")

// Aggregate nets the sentiment polarity of the grain articles of one day per
// commodity. Articles about other commodities are ignored. The result is in
// models.Grains order and only holds commodities that appeared.
func Aggregate(day time.Time, records []models.ArticleRecord) []models.DailySignal {
	sums := make(map[models.Commodity]int, 3)
	seen := make(map[models.Commodity]bool, 3)
	for _, r := range records {
		c := models.ParseCommodity(string(r.Commodity))
		if !c.IsGrain() {
			continue
		}
		seen[c] = true
		sums[c] += r.Sentiment.Polarity()
	}

	var out []models.DailySignal
	for _, c := range models.Grains() {
		if !seen[c] {
			continue
		}
		out = append(out, models.DailySignal{Date: day, Commodity: c, SentimentScore: sums[c]})
	}
	return out
}

// LoadDailySignals reads every signals file of dir and returns the daily net
// sentiment per commodity, sorted by date. The file name carries the date.
func LoadDailySignals(dir string) ([]models.DailySignal, error) {
	files, err := storage.ListSignalFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no signals_*.csv in %s", ErrNoSignals, dir)
	}

	var out []models.DailySignal
	for _, f := range files {
		records, err := storage.LoadSignals(f.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, Aggregate(f.Date, records)...)
	}
	if len(out) == 0 {
		return nil, ErrNoSignals
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// signalRange returns the first and last signal dates.
func signalRange(signals []models.DailySignal) (from, to time.Time) {
	for i, s := range signals {
		if i == 0 || s.Date.Before(from) {
			from = s.Date
		}
		if i == 0 || s.Date.After(to) {
			to = s.Date
		}
	}
	return from, to
}
