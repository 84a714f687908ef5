// Package enrich turns fetched articles into classified records: commodity,
// event type, sentiment and a short market narrative. The LLM enricher asks
// a chat model for strict JSON; the offline enricher uses keyword heuristics
// and also serves as the fallback when a model call fails.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/graintel/internal/analysis/sentiment"
	"github.com/seenimoa/graintel/internal/llm"
	"github.com/seenimoa/graintel/pkg/models"
)

// Placeholder narratives.
const (
	NoRelevantContent  = "No grain-relevant content in this article."
	NoUsableText       = "No usable text."
	SummaryUnavailable = "Summary unavailable."
)

// Enricher classifies one article.
type Enricher interface {
	Enrich(ctx context.Context, a models.NewsArticle) (models.ArticleRecord, error)
}

// Extraction is the structured answer expected from the model.
type Extraction struct {
	Commodity models.Commodity
	EventType models.EventType
	Sentiment models.Sentiment
	Analysis  string
	Impact    string
	Risks     []string
	Outlook   string
}

// ParseExtraction decodes a model answer. Output that is not a JSON object
// becomes an other/neutral extraction whose analysis is the raw output.
func ParseExtraction(output string) Extraction {
	output = strings.TrimSpace(output)

	var raw map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(output)), &raw); err != nil || raw == nil {
		return Extraction{
			Commodity: models.CommodityOther,
			EventType: models.EventOther,
			Sentiment: models.Neutral,
			Analysis:  output,
		}
	}

	return Extraction{
		Commodity: NormalizeCommodity(str(raw["commodity"])),
		EventType: NormalizeEventType(str(raw["event_type"])),
		Sentiment: NormalizeSentiment(str(raw["sentiment"])),
		Analysis:  strings.TrimSpace(str(raw["analysis"])),
		Impact:    strings.TrimSpace(str(raw["impact"])),
		Risks:     strList(raw["risks"]),
		Outlook:   strings.TrimSpace(str(raw["outlook"])),
	}
}

// Apply merges the extraction into the record seeded from a.
func (e Extraction) Apply(a models.NewsArticle) models.ArticleRecord {
	rec := a.ToRecord()
	rec.Commodity = e.Commodity
	rec.EventType = e.EventType
	rec.Sentiment = e.Sentiment
	rec.Analysis = e.Analysis
	rec.Impact = e.Impact
	rec.Risks = e.Risks
	if rec.Risks == nil {
		rec.Risks = []string{}
	}
	rec.Outlook = e.Outlook
	rec.Summary = e.Analysis
	if rec.Summary == "" {
		rec.Summary = SummaryUnavailable
	}
	return rec.Normalized()
}

// emptyRecord is the record produced when an article has no usable text.
func emptyRecord(a models.NewsArticle) models.ArticleRecord {
	rec := a.ToRecord()
	rec.Commodity = models.CommodityOther
	rec.EventType = models.EventOther
	rec.Sentiment = models.Neutral
	rec.Analysis = NoRelevantContent
	rec.Impact = ""
	rec.Risks = []string{}
	rec.Outlook = ""
	rec.Summary = NoUsableText
	return rec
}

// ════════════════════════════════════════════════════════════════════
// LLM enricher
// ════════════════════════════════════════════════════════════════════

// LLMEnricher asks a chat model for the extraction.
type LLMEnricher struct {
	provider llm.LLMProvider
	opts     llm.ChatOptions
}

// NewLLMEnricher wraps a provider (usually an *llm.Router). opts may be nil.
func NewLLMEnricher(provider llm.LLMProvider, opts *llm.ChatOptions) *LLMEnricher {
	e := &LLMEnricher{provider: provider, opts: llm.ChatOptions{Temperature: 0.2}}
	if opts != nil {
		e.opts = *opts
	}
	return e
}

// Enrich filters the article text, prompts the model and parses its answer.
func (e *LLMEnricher) Enrich(ctx context.Context, a models.NewsArticle) (models.ArticleRecord, error) {
	text := FilterRelevantText(a.Text)
	if strings.TrimSpace(text) == "" {
		return emptyRecord(a), nil
	}

	opts := e.opts
	resp, err := e.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(SystemPrompt),
		llm.UserMessage(BuildPrompt(text)),
	}, &opts)
	if err != nil {
		return models.ArticleRecord{}, fmt.Errorf("enrich %s: %w", a.URL, err)
	}
	if resp.FinishReason == llm.FinishInvalidJSON {
		log.Debug().Str("url", a.URL).Msg("model output rejected as JSON, repairing locally")
	}
	return ParseExtraction(resp.Content).Apply(a), nil
}

// ════════════════════════════════════════════════════════════════════
// Offline enricher
// ════════════════════════════════════════════════════════════════════

// Offline classifies articles with keyword heuristics. It never fails.
type Offline struct{}

// Enrich implements Enricher.
func (Offline) Enrich(_ context.Context, a models.NewsArticle) (models.ArticleRecord, error) {
	return OfflineRecord(a), nil
}

// OfflineRecord classifies a from its title and filtered text. The narrative
// is the leading part of the relevant text.
func OfflineRecord(a models.NewsArticle) models.ArticleRecord {
	text := FilterRelevantText(a.Text)
	if strings.TrimSpace(text) == "" {
		return emptyRecord(a)
	}

	c := sentiment.ClassifyText(a.Title + "\n" + text)
	return Extraction{
		Commodity: c.Commodity,
		EventType: c.EventType,
		Sentiment: c.Sentiment,
		Analysis:  truncateRunes(text, 600),
	}.Apply(a)
}

// ════════════════════════════════════════════════════════════════════
// Batch
// ════════════════════════════════════════════════════════════════════

// Stats counts how a batch was enriched.
type Stats struct {
	Enriched  int
	Fallbacks int
}

// EnrichAll enriches articles with at most workers concurrent calls. An
// article whose enrichment fails is logged and classified offline instead.
// Output order matches input order; only ctx cancellation is returned.
func EnrichAll(ctx context.Context, e Enricher, articles []models.NewsArticle, workers int) ([]models.ArticleRecord, Stats, error) {
	if workers <= 0 {
		workers = 1
	}
	out := make([]models.ArticleRecord, len(articles))
	var fallbacks atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, a := range articles {
		g.Go(func() error {
			rec, err := e.Enrich(gctx, a)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Err(err).Str("url", a.URL).Msg("enrichment failed, using offline classification")
				rec = OfflineRecord(a)
				fallbacks.Add(1)
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, fmt.Errorf("enrich articles: %w", err)
	}

	fb := int(fallbacks.Load())
	return out, Stats{Enriched: len(articles) - fb, Fallbacks: fb}, nil
}

// ── Helpers ──

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func strList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(str(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
