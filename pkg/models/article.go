package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EventType is the categorical cause tag of an article.
type EventType string

const (
	EventWeather    EventType = "weather"
	EventStocks     EventType = "stocks"
	EventProduction EventType = "production"
	EventTrade      EventType = "trade"
	EventPolitics   EventType = "politics"
	EventLogistics  EventType = "logistics"
	EventOther      EventType = "other"
)

// ParseEventType normalizes a raw event type. Unknown values map to EventOther.
func ParseEventType(raw string) EventType {
	switch e := EventType(strings.ToLower(strings.TrimSpace(raw))); e {
	case EventWeather, EventStocks, EventProduction, EventTrade, EventPolitics, EventLogistics:
		return e
	default:
		return EventOther
	}
}

// Sentiment is the directional price call implied by an article.
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Neutral Sentiment = "neutral"
)

// ParseSentiment normalizes a raw sentiment. Unknown values map to Neutral.
func ParseSentiment(raw string) Sentiment {
	switch s := Sentiment(strings.ToLower(strings.TrimSpace(raw))); s {
	case Bullish, Bearish:
		return s
	default:
		return Neutral
	}
}

// IsDirectional reports whether the sentiment calls a price direction.
func (s Sentiment) IsDirectional() bool {
	return s == Bullish || s == Bearish
}

// Polarity is +1 for bullish, -1 for bearish and 0 otherwise.
func (s Sentiment) Polarity() int {
	switch ParseSentiment(string(s)) {
	case Bullish:
		return 1
	case Bearish:
		return -1
	default:
		return 0
	}
}

// Severity is the early-warning tier of an article.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityInfo     Severity = "info"
	SeverityWatch    Severity = "watch"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: none < info < watch < critical.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWatch:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// ParseSeverity normalizes a raw severity. Unknown values map to SeverityNone.
func ParseSeverity(raw string) Severity {
	switch s := Severity(strings.ToLower(strings.TrimSpace(raw))); s {
	case SeverityInfo, SeverityWatch, SeverityCritical:
		return s
	default:
		return SeverityNone
	}
}

// ArticleRecord is an enriched article flowing through the scoring stages.
// Records are passed by value; each stage returns a new record.
type ArticleRecord struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Text     string   `json:"text"`
	Analysis string   `json:"analysis"`
	Impact   string   `json:"impact"`
	Outlook  string   `json:"outlook"`
	Risks    []string `json:"risks"`

	Commodity   Commodity `json:"commodity"`
	EventType   EventType `json:"event_type"`
	Sentiment   Sentiment `json:"sentiment"`
	SourceGroup string    `json:"source_group"`

	// Collected by the fetch stage.
	SourceName string `json:"source_name,omitempty"`
	Published  string `json:"published,omitempty"`
	FetchedAt  string `json:"fetched_at,omitempty"`

	AlertScore     int      `json:"alert_score"`
	AlertSeverity  Severity `json:"alert_severity"`
	AlertTags      string   `json:"alert_tags"`
	SentimentScore int      `json:"sentiment_score"`
}

// Normalized returns a copy with every categorical field mapped onto its
// enumeration.
func (a ArticleRecord) Normalized() ArticleRecord {
	a.Commodity = ParseCommodity(string(a.Commodity))
	a.EventType = ParseEventType(string(a.EventType))
	a.Sentiment = ParseSentiment(string(a.Sentiment))
	a.AlertSeverity = ParseSeverity(string(a.AlertSeverity))
	if a.AlertScore < 0 {
		a.AlertScore = 0
	}
	return a
}

// NarrativeText returns the trimmed analysis, falling back to the summary.
func (a ArticleRecord) NarrativeText() string {
	if t := strings.TrimSpace(a.Analysis); t != "" {
		return t
	}
	return strings.TrimSpace(a.Summary)
}

// ArticleFromMap builds a record from a loosely typed mapping as produced by
// the enrichment stage or decoded from JSON. Missing keys become empty values
// and unrecognized categories fall back to other/neutral; it never fails.
func ArticleFromMap(m map[string]any) ArticleRecord {
	a := ArticleRecord{
		URL:            stringField(m, "url"),
		Title:          stringField(m, "title"),
		Summary:        stringField(m, "summary"),
		Text:           stringField(m, "text"),
		Analysis:       stringField(m, "analysis"),
		Impact:         stringField(m, "impact"),
		Outlook:        stringField(m, "outlook"),
		Risks:          listField(m, "risks"),
		Commodity:      Commodity(stringField(m, "commodity")),
		EventType:      EventType(stringField(m, "event_type")),
		Sentiment:      Sentiment(stringField(m, "sentiment")),
		SourceGroup:    stringField(m, "source_group"),
		SourceName:     stringField(m, "source_name"),
		Published:      stringField(m, "published"),
		FetchedAt:      stringField(m, "fetched_at"),
		AlertScore:     intField(m, "alert_score"),
		AlertSeverity:  Severity(stringField(m, "alert_severity")),
		AlertTags:      stringField(m, "alert_tags"),
		SentimentScore: intField(m, "sentiment_score"),
	}
	return a.Normalized()
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func listField(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
