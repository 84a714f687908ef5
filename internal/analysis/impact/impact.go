// Package impact estimates short and medium term price moves per grain from
// article signals and the macro indicator.
package impact

import (
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/graintel/internal/analysis/macro"
	"github.com/seenimoa/graintel/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Tables
// ════════════════════════════════════════════════════════════════════

// baseImpact is the per-article move (in %) by event type.
type baseImpact struct{ ct, mt float64 }

var eventBaseImpact = map[models.EventType]baseImpact{
	models.EventWeather:    {0.8, 1.5},
	models.EventStocks:     {0.5, 1.0},
	models.EventProduction: {0.6, 1.2},
	models.EventTrade:      {0.3, 0.6},
	models.EventPolitics:   {0.4, 1.0},
	models.EventLogistics:  {0.2, 0.5},
	models.EventOther:      {0.1, 0.2},
}

// fxSensitivity is how strongly a stronger dollar weighs on each grain.
var fxSensitivity = map[models.Commodity]float64{
	models.Wheat: 0.25,
	models.Corn:  0.45,
	models.Soy:   0.70,
}

const defaultFXSensitivity = 0.30

const (
	neutralFactor = 0.3

	longTextChars  = 350
	shortTextChars = 120
	longFactor     = 1.1
	shortFactor    = 0.85

	macroWeather  = 0.30
	macroEnergy   = 0.10
	macroShipping = 0.10
	macroFX       = 0.10
	macroMTScale  = 1.5
)

// band bounds one horizon: totals under deadband collapse to zero, the low
// bound is floored and the high bound capped (sign preserving).
type band struct {
	deadband, floor, ceiling float64
}

var (
	shortTerm  = band{deadband: 0.15, floor: 0.2, ceiling: 1.2}
	mediumTerm = band{deadband: 0.5, floor: 0.8, ceiling: 2.2}
)

const (
	lowScale  = 0.7
	highScale = 1.3
)

// ════════════════════════════════════════════════════════════════════
// Estimator
// ════════════════════════════════════════════════════════════════════

// Compute returns a PriceImpact for every tracked grain present in articles.
// Grains without articles are absent from the result; non-grain articles are
// ignored.
func Compute(articles []models.ArticleRecord, m models.MacroScore) map[models.Commodity]models.PriceImpact {
	groups := GroupByCommodity(articles)
	out := make(map[models.Commodity]models.PriceImpact, len(groups))
	for c, group := range groups {
		out[c] = Estimate(c, group, m)
	}
	return out
}

// GroupByCommodity partitions articles by tracked grain, keeping input order
// within each group.
func GroupByCommodity(articles []models.ArticleRecord) map[models.Commodity][]models.ArticleRecord {
	groups := make(map[models.Commodity][]models.ArticleRecord)
	for _, a := range articles {
		c := models.ParseCommodity(string(a.Commodity))
		if c.IsGrain() {
			groups[c] = append(groups[c], a)
		}
	}
	return groups
}

// Estimate computes the impact of one commodity group.
func Estimate(c models.Commodity, group []models.ArticleRecord, m models.MacroScore) models.PriceImpact {
	var totalCT, totalMT float64
	for _, a := range group {
		ct, mt := ArticleContribution(a)
		totalCT += ct
		totalMT += mt
	}
	mct, mmt := MacroContribution(c, m)
	totalCT += mct
	totalMT += mmt

	ctLow, ctHigh := shortTerm.rangeFor(totalCT)
	mtLow, mtHigh := mediumTerm.rangeFor(totalMT)

	return models.PriceImpact{
		CTLow:      round(ctLow, 2),
		CTHigh:     round(ctHigh, 2),
		MTLow:      round(mtLow, 2),
		MTHigh:     round(mtHigh, 2),
		Confidence: Confidence(group, m),
	}
}

// ArticleContribution is base(event) x direction x length for both horizons,
// multiplied left to right.
func ArticleContribution(a models.ArticleRecord) (ct, mt float64) {
	base, ok := eventBaseImpact[models.ParseEventType(string(a.EventType))]
	if !ok {
		base = eventBaseImpact[models.EventOther]
	}
	dir, length := directionFactor(a.Sentiment), lengthFactor(a.NarrativeText())
	return float64(float64(base.ct*dir) * length), float64(float64(base.mt*dir) * length)
}

// MacroContribution converts the macro theme scores into a move for c.
func MacroContribution(c models.Commodity, m models.MacroScore) (ct, mt float64) {
	sens, ok := fxSensitivity[c]
	if !ok {
		sens = defaultFXSensitivity
	}
	// conversions keep every product rounded on its own (no fused multiply-add)
	ct = float64(macroWeather*float64(m.Weather)) +
		float64(macroEnergy*float64(m.Energy)) +
		float64(macroShipping*float64(m.Shipping)) -
		float64(sens*macroFX*float64(m.FX))
	return ct, float64(macroMTScale * ct)
}

func directionFactor(s models.Sentiment) float64 {
	if p := macro.SentimentScore(s); p != 0 {
		return float64(p)
	}
	return neutralFactor
}

func lengthFactor(text string) float64 {
	n := utf8.RuneCountInString(text)
	switch {
	case n >= longTextChars:
		return longFactor
	case n < shortTextChars:
		return shortFactor
	default:
		return 1
	}
}

// rangeFor builds the (low, high) range around total. The floor applies to
// low and the ceiling to high independently, so low can exceed a capped high
// for large totals.
func (b band) rangeFor(total float64) (low, high float64) {
	if math.Abs(total) < b.deadband {
		return 0, 0
	}
	low = total * lowScale
	high = total * highScale
	if a := math.Abs(low); a > 0 && a < b.floor {
		low = math.Copysign(b.floor, low)
	}
	if math.Abs(high) > b.ceiling {
		high = math.Copysign(b.ceiling, high)
	}
	return low, high
}

// exactDigits is enough fraction digits to tell a float64 below 10 apart
// from a decimal tie at 3 places.
const exactDigits = 40

// round rounds the binary value of v to places decimals, ties to even. A
// float printed as 0.6825 but stored just below it rounds to 0.682.
func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', exactDigits, 64))
	if err != nil {
		return 0
	}
	return d.RoundBank(places).InexactFloat64()
}
