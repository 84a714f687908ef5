package backtest

import (
	"github.com/seenimoa/graintel/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Summary statistics
// ════════════════════════════════════════════════════════════════════

// Summarize builds the global and per-commodity statistics of the matched
// signals. With no returns, Global stays nil and ByCommodity is empty.
func Summarize(returns []models.SignalReturn) models.BacktestSummary {
	summary := models.BacktestSummary{
		ByCommodity: make(map[models.Commodity]models.BacktestStats),
		Signals:     returns,
	}
	if len(returns) == 0 {
		return summary
	}

	global := ComputeStats(returns)
	summary.Global = &global

	for _, c := range models.Grains() {
		var sub []models.SignalReturn
		for _, r := range returns {
			if r.Commodity == c {
				sub = append(sub, r)
			}
		}
		if len(sub) == 0 {
			continue
		}
		summary.ByCommodity[c] = ComputeStats(sub)
	}
	return summary
}

// ComputeStats computes counts and mean forward returns of returns, split by
// the sign of the net sentiment.
func ComputeStats(returns []models.SignalReturn) models.BacktestStats {
	var all, bull, bear, neutral []float64
	for _, r := range returns {
		all = append(all, r.FwdReturn)
		switch {
		case r.SentimentScore > 0:
			bull = append(bull, r.FwdReturn)
		case r.SentimentScore < 0:
			bear = append(bear, r.FwdReturn)
		default:
			neutral = append(neutral, r.FwdReturn)
		}
	}

	return models.BacktestStats{
		NSignals:      len(all),
		MeanFwdReturn: mean(all),
		BullishN:      len(bull),
		BearishN:      len(bear),
		NeutralN:      len(neutral),
		BullishMean:   meanPtr(bull),
		BearishMean:   meanPtr(bear),
		NeutralMean:   meanPtr(neutral),
	}
}

// HitRate returns the share of directional signals whose forward return had
// the predicted sign, and the number of directional signals.
func HitRate(returns []models.SignalReturn) (float64, int) {
	hits, n := 0, 0
	for _, r := range returns {
		if r.SentimentScore == 0 {
			continue
		}
		n++
		if (r.SentimentScore > 0 && r.FwdReturn > 0) || (r.SentimentScore < 0 && r.FwdReturn < 0) {
			hits++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return float64(hits) / float64(n), n
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func meanPtr(data []float64) *float64 {
	if len(data) == 0 {
		return nil
	}
	m := mean(data)
	return &m
}
