package models

import "time"

// SourceType is how a source is fetched.
type SourceType string

const (
	SourceHTML SourceType = "html"
	SourceRSS  SourceType = "rss"
)

// Source is one entry of the sources catalog. Group is the catalog section it
// was declared in (grains, macro, fx, energy, shipping, geopolitics).
type Source struct {
	Name  string     `json:"name" yaml:"name"`
	URL   string     `json:"url" yaml:"url"`
	Type  SourceType `json:"type" yaml:"type"`
	Group string     `json:"group" yaml:"-"`
}

// NewsArticle is a fetched, parsed article before enrichment.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	SourceGroup string    `json:"source_group"`
	Summary     string    `json:"summary,omitempty"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// ToRecord seeds an ArticleRecord with the fetched fields. Categorical fields
// start at their fallback values until enrichment fills them.
func (n NewsArticle) ToRecord() ArticleRecord {
	rec := ArticleRecord{
		URL:         n.URL,
		Title:       n.Title,
		Summary:     n.Summary,
		Text:        n.Text,
		SourceGroup: n.SourceGroup,
		SourceName:  n.Source,
	}
	if !n.PublishedAt.IsZero() {
		rec.Published = n.PublishedAt.UTC().Format(time.RFC3339)
	}
	if !n.FetchedAt.IsZero() {
		rec.FetchedAt = n.FetchedAt.UTC().Format(time.RFC3339)
	}
	return rec.Normalized()
}

// OHLCV represents a single daily bar of futures prices.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}
