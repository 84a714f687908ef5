package macro

import "github.com/seenimoa/graintel/pkg/models"

// SentimentScore maps a sentiment onto its polarity: bullish +1, bearish -1,
// anything else 0.
func SentimentScore(s models.Sentiment) int {
	return s.Polarity()
}

// ComputeScore sums sentiment polarity per theme over a batch of macro
// articles. The result does not depend on input order; an empty batch yields
// the zero score.
func ComputeScore(articles []models.ArticleRecord) models.MacroScore {
	var m models.MacroScore
	for _, a := range articles {
		m.Add(ClassifyTheme(a), SentimentScore(a.Sentiment))
	}
	m.FinalMacroScore = clamp(m.RawTotal(), -models.MacroScoreLimit, models.MacroScoreLimit)
	return m
}

// SelectMacro returns the articles that are not about a tracked grain.
func SelectMacro(articles []models.ArticleRecord) []models.ArticleRecord {
	var out []models.ArticleRecord
	for _, a := range articles {
		if !models.ParseCommodity(string(a.Commodity)).IsGrain() {
			out = append(out, a)
		}
	}
	return out
}

// CountByTheme returns how many articles fall into each theme.
func CountByTheme(articles []models.ArticleRecord) map[models.Theme]int {
	counts := make(map[models.Theme]int)
	for _, a := range articles {
		counts[ClassifyTheme(a)]++
	}
	return counts
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
