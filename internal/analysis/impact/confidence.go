package impact

import (
	"math"

	"github.com/seenimoa/graintel/internal/analysis/macro"
	"github.com/seenimoa/graintel/pkg/models"
)

// Confidence weights, summing to 1.
const (
	weightVolume      = 0.25
	weightConsistency = 0.25
	weightQuality     = 0.20
	weightAlert       = 0.15
	weightAlignment   = 0.15

	// articles needed for a full volume score
	volumeSaturation = 10.0
)

// Confidence scores how much the impact range of one commodity group can be
// trusted. The result is within [0, 1] and rounded to 3 decimals. An empty
// group scores 0.
func Confidence(group []models.ArticleRecord, m models.MacroScore) float64 {
	if len(group) == 0 {
		return 0
	}

	volume := math.Min(float64(len(group))/volumeSaturation, 1)

	var qualitySum float64
	for _, a := range group {
		qualitySum += SourceQuality(a.URL)
	}
	quality := qualitySum / float64(len(group))

	c := float64(weightVolume*volume) +
		float64(weightConsistency*SentimentConsistency(group)) +
		float64(weightQuality*quality) +
		float64(weightAlert*MaxAlertWeight(group)) +
		float64(weightAlignment*MacroAlignment(m.FinalMacroScore, NetSentiment(group)))

	return round(math.Max(0, math.Min(1, c)), 3)
}

// SentimentConsistency rates the agreement of sentiments within a group:
// 1 for a single direction, 0.3 when everything is neutral, 0.5 for two
// distinct values and 0 for all three. A group needs at least three
// articles to reach 0.
func SentimentConsistency(group []models.ArticleRecord) float64 {
	distinct := make(map[models.Sentiment]bool, 3)
	for _, a := range group {
		distinct[models.ParseSentiment(string(a.Sentiment))] = true
	}

	switch len(distinct) {
	case 0:
		return 0
	case 1:
		if distinct[models.Neutral] {
			return 0.3
		}
		return 1
	case 2:
		return 0.5
	default:
		return 0
	}
}

// MaxAlertWeight returns 1 if any article is critical, 0.6 if the highest
// severity is watch and 0 otherwise.
func MaxAlertWeight(group []models.ArticleRecord) float64 {
	best := 0.0
	for _, a := range group {
		switch models.ParseSeverity(string(a.AlertSeverity)) {
		case models.SeverityCritical:
			return 1
		case models.SeverityWatch:
			best = 0.6
		}
	}
	return best
}

// NetSentiment sums sentiment polarity over a group.
func NetSentiment(group []models.ArticleRecord) int {
	net := 0
	for _, a := range group {
		net += macro.SentimentScore(a.Sentiment)
	}
	return net
}

// MacroAlignment is 1 when the macro score and the net sentiment share a
// sign, 0 when they oppose and 0.5 when either is zero.
func MacroAlignment(macroScore, netSentiment int) float64 {
	switch {
	case macroScore == 0 || netSentiment == 0:
		return 0.5
	case (macroScore > 0) == (netSentiment > 0):
		return 1
	default:
		return 0
	}
}
