package models

import "time"

// DailySignal is the net sentiment of one commodity on one signals file date.
type DailySignal struct {
	Date           time.Time `json:"date"`
	Commodity      Commodity `json:"commodity"`
	SentimentScore int       `json:"sentiment_score"`
}

// SignalReturn is a DailySignal joined with the forward futures return.
type SignalReturn struct {
	DailySignal
	Ticker    string  `json:"ticker"`
	FwdReturn float64 `json:"fwd_return"`
}

// BacktestStats aggregates forward returns of a set of signals. Means are nil
// when the corresponding subset is empty.
type BacktestStats struct {
	NSignals      int      `json:"n_signals"`
	MeanFwdReturn float64  `json:"mean_fwd_return"`
	BullishN      int      `json:"bullish_n"`
	BearishN      int      `json:"bearish_n"`
	NeutralN      int      `json:"neutral_n"`
	BullishMean   *float64 `json:"bullish_mean"`
	BearishMean   *float64 `json:"bearish_mean"`
	NeutralMean   *float64 `json:"neutral_mean,omitempty"`
}

// BacktestSummary is the persisted backtest result. Global and ByCommodity
// are empty when no signal could be matched with prices.
type BacktestSummary struct {
	Global      *BacktestStats              `json:"global,omitempty"`
	ByCommodity map[Commodity]BacktestStats `json:"by_commodity"`
	ForwardDays int                         `json:"forward_days"`
	From        string                      `json:"from,omitempty"`
	To          string                      `json:"to,omitempty"`
	Signals     []SignalReturn              `json:"signals,omitempty"`
}

// IsEmpty reports whether the backtest matched no signals.
func (s BacktestSummary) IsEmpty() bool {
	return s.Global == nil || s.Global.NSignals == 0
}
