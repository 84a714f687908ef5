package datasource

import (
	"time"

	"github.com/seenimoa/graintel/pkg/models"
)

// DefaultMaxAge is how old an article may be before it is dropped.
const DefaultMaxAge = 180 * 24 * time.Hour

// IsRecent reports whether a was published (or, lacking a date, fetched)
// within maxAge of now. Articles without any date are kept.
func IsRecent(a models.NewsArticle, now time.Time, maxAge time.Duration) bool {
	ts := a.PublishedAt
	if ts.IsZero() {
		ts = a.FetchedAt
	}
	if ts.IsZero() {
		return true
	}
	return !ts.Before(now.Add(-maxAge))
}

// FilterRecent keeps the recent articles that carry some text.
func FilterRecent(articles []models.NewsArticle, now time.Time, maxAge time.Duration) []models.NewsArticle {
	out := make([]models.NewsArticle, 0, len(articles))
	for _, a := range articles {
		if a.Text == "" {
			continue
		}
		if IsRecent(a, now, maxAge) {
			out = append(out, a)
		}
	}
	return out
}
