package models

import (
	"sort"
	"time"
)

// PriceImpact is the estimated price move of one commodity, in percent.
// CT is the short term (a few days), MT the medium term (one to three weeks).
type PriceImpact struct {
	CTLow      float64 `json:"ct_low"`
	CTHigh     float64 `json:"ct_high"`
	MTLow      float64 `json:"mt_low"`
	MTHigh     float64 `json:"mt_high"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
}

// IsNeutral reports whether both horizons collapsed to the no-signal range.
func (p PriceImpact) IsNeutral() bool {
	return p.CTLow == 0 && p.CTHigh == 0 && p.MTLow == 0 && p.MTHigh == 0
}

// Indicators is the full output of one scoring cycle.
type Indicators struct {
	Articles    []ArticleRecord           `json:"articles"`
	Macro       MacroScore                `json:"macro"`
	Impacts     map[Commodity]PriceImpact `json:"impacts"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// AlertRows returns the articles whose severity is at least min, sorted by
// alert score (highest first). Ties keep input order.
func (ind Indicators) AlertRows(min Severity) []ArticleRecord {
	var rows []ArticleRecord
	for _, a := range ind.Articles {
		if a.AlertSeverity.Rank() >= min.Rank() {
			rows = append(rows, a)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].AlertScore > rows[j].AlertScore
	})
	return rows
}
