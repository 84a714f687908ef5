// Package alerts implements the keyword based early-warning scorer.
package alerts

import (
	"sort"
	"strings"

	"github.com/seenimoa/graintel/pkg/models"
)

// Result is the derived alert triple for one article.
type Result struct {
	Score    int
	Severity models.Severity
	Tags     []string // sorted, distinct
}

// TagString joins the tags with commas ("" when there are none).
func (r Result) TagString() string {
	return strings.Join(r.Tags, ",")
}

// SeverityForScore maps an alert score onto its severity tier.
func SeverityForScore(score int) models.Severity {
	switch {
	case score >= criticalThreshold:
		return models.SeverityCritical
	case score >= watchThreshold:
		return models.SeverityWatch
	case score >= infoThreshold:
		return models.SeverityInfo
	default:
		return models.SeverityNone
	}
}

// Evaluate scores an article without modifying it. Only title, summary, text
// and the categorical fields are read, so evaluating an already scored record
// gives the same result.
func Evaluate(a models.ArticleRecord) Result {
	full := strings.ToLower(a.Title + "\n" + a.Summary + "\n" + a.Text)

	score := 0
	var tags []string
	for kw, w := range riskKeywords {
		if strings.Contains(full, kw) {
			score += w
			tags = append(tags, kw)
		}
	}
	sort.Strings(tags)

	if bonusEventTypes[models.ParseEventType(string(a.EventType))] {
		score++
	}
	if models.ParseSentiment(string(a.Sentiment)).IsDirectional() {
		score++
	}
	if bonusSourceGroups[strings.ToLower(a.SourceGroup)] {
		score++
	}

	return Result{
		Score:    score,
		Severity: SeverityForScore(score),
		Tags:     tags,
	}
}

// Compute returns a copy of a with AlertScore, AlertSeverity and AlertTags
// set. All other fields pass through unchanged.
func Compute(a models.ArticleRecord) models.ArticleRecord {
	r := Evaluate(a)
	a.AlertScore = r.Score
	a.AlertSeverity = r.Severity
	a.AlertTags = r.TagString()
	return a
}
