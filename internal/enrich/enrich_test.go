package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/graintel/internal/llm"
	"github.com/seenimoa/graintel/pkg/models"
)

func TestFilterRelevantText(t *testing.T) {
	raw := "Menu\n\n  Wheat futures rose on Monday.  \nLogin\nDrought persists in Kansas."
	assert.Equal(t, "Wheat futures rose on Monday. Drought persists in Kansas.", FilterRelevantText(raw))

	assert.Equal(t, "", FilterRelevantText(""))

	// keyword match is case-insensitive on both sides
	assert.Equal(t, "brent climbed", FilterRelevantText("brent climbed"))

	// nothing relevant: first 3000 characters of the raw text
	long := strings.Repeat("é", 5000)
	got := FilterRelevantText(long)
	assert.Equal(t, 3000, utf8.RuneCountInString(got))

	// relevant text is capped at 6000 characters
	relevant := strings.Repeat("wheat ", 2000)
	assert.Equal(t, 6000, utf8.RuneCountInString(FilterRelevantText(relevant)))
}

func TestNormalizeCommodity(t *testing.T) {
	cases := map[string]models.Commodity{
		"wheat": models.Wheat, " Blé ": models.Wheat, "ble": models.Wheat,
		"corn": models.Corn, "maïs": models.Corn, "Maize": models.Corn, "mais": models.Corn,
		"soy": models.Soy, "soja": models.Soy, "Soybeans": models.Soy, "soybean": models.Soy,
		"barley": models.CommodityOther, "": models.CommodityOther,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeCommodity(in), in)
	}
}

func TestNormalizeEventType(t *testing.T) {
	cases := map[string]models.EventType{
		"weather":           models.EventWeather,
		"Stock":             models.EventStocks,
		"harvest":           models.EventProduction,
		"commerce":          models.EventTrade,
		"policy":            models.EventPolitics,
		"transport":         models.EventLogistics,
		"severe drought":    models.EventWeather,
		"inventory build":   models.EventStocks,
		"record yield":      models.EventProduction,
		"export surge":      models.EventTrade,
		"export ban":        models.EventTrade, // trade markers are checked before politics
		"new quota":         models.EventPolitics,
		"freight rates":     models.EventLogistics,
		"something else":    models.EventOther,
		"":                  models.EventOther,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeEventType(in), in)
	}
}

func TestNormalizeSentiment(t *testing.T) {
	cases := map[string]models.Sentiment{
		"bullish":    models.Bullish,
		"Haussier":   models.Bullish,
		"up":         models.Bullish,
		"bearish":    models.Bearish,
		"baissier":   models.Bearish,
		"down":       models.Bearish,
		"neutral":    models.Neutral,
		"":           models.Neutral,
		"sideways":   models.Neutral,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSentiment(in), in)
	}
}

func TestParseExtraction(t *testing.T) {
	out := `{"commodity":"Blé","event_type":"drought","sentiment":"haussier",
		"analysis":"  Dry weather cuts yields. ","impact":"Prices up.","risks":["rain", "", 3],"outlook":"Firm."}`
	e := ParseExtraction(out)
	assert.Equal(t, models.Wheat, e.Commodity)
	assert.Equal(t, models.EventWeather, e.EventType)
	assert.Equal(t, models.Bullish, e.Sentiment)
	assert.Equal(t, "Dry weather cuts yields.", e.Analysis)
	assert.Equal(t, []string{"rain", "3"}, e.Risks)

	fenced := "```json\n{\"commodity\":\"corn\",\"risks\":\"not a list\"}\n```"
	e = ParseExtraction(fenced)
	assert.Equal(t, models.Corn, e.Commodity)
	assert.Equal(t, []string{}, e.Risks)
	assert.Equal(t, models.Neutral, e.Sentiment)
}

func TestParseExtractionInvalidJSON(t *testing.T) {
	e := ParseExtraction("  Sorry, I cannot answer in JSON.  ")
	assert.Equal(t, models.CommodityOther, e.Commodity)
	assert.Equal(t, models.EventOther, e.EventType)
	assert.Equal(t, models.Neutral, e.Sentiment)
	assert.Equal(t, "Sorry, I cannot answer in JSON.", e.Analysis)
	assert.Empty(t, e.Risks)
}

func TestExtractionApplySummary(t *testing.T) {
	a := models.NewsArticle{Title: "t", URL: "u", Text: "wheat", SourceGroup: "grains"}

	rec := Extraction{Commodity: models.Wheat, Analysis: "analysis"}.Apply(a)
	assert.Equal(t, "analysis", rec.Summary)
	assert.Equal(t, "grains", rec.SourceGroup)
	assert.Equal(t, models.EventOther, rec.EventType)
	assert.NotNil(t, rec.Risks)

	rec = Extraction{}.Apply(a)
	assert.Equal(t, SummaryUnavailable, rec.Summary)
	assert.Equal(t, models.CommodityOther, rec.Commodity)
}

// fakeProvider answers every chat with a canned response.
type fakeProvider struct {
	answer string
	err    error
	calls  atomic.Int32

	mu   sync.Mutex
	last []llm.Message
	opts *llm.ChatOptions
}

func (f *fakeProvider) Name() string               { return "fake" }
func (f *fakeProvider) Models() []string           { return nil }
func (f *fakeProvider) Ping(context.Context) error { return nil }
func (f *fakeProvider) Chat(_ context.Context, msgs []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last, f.opts = msgs, opts
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.answer}, nil
}

func TestLLMEnricher(t *testing.T) {
	p := &fakeProvider{answer: `{"commodity":"soybeans","event_type":"trade","sentiment":"bearish","analysis":"China cancels cargoes.","impact":"Lower.","risks":["demand"],"outlook":"Weak."}`}
	e := NewLLMEnricher(p, nil)

	a := models.NewsArticle{Title: "Soy", URL: "https://x/soy", Text: "Menu\nChina cancels soybean cargoes.\nFooter"}
	rec, err := e.Enrich(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, models.Soy, rec.Commodity)
	assert.Equal(t, models.EventTrade, rec.EventType)
	assert.Equal(t, models.Bearish, rec.Sentiment)
	assert.Equal(t, "China cancels cargoes.", rec.Summary)
	assert.Equal(t, []string{"demand"}, rec.Risks)
	assert.Equal(t, "https://x/soy", rec.URL)

	require.Len(t, p.last, 2)
	assert.Equal(t, SystemPrompt, p.last[0].Content)
	assert.Contains(t, p.last[1].Content, "China cancels soybean cargoes.")
	assert.NotContains(t, p.last[1].Content, "Footer")
	assert.NotContains(t, p.last[1].Content, "{TEXT}")
	assert.Equal(t, 0.2, p.opts.Temperature)
}

func TestLLMEnricherEmptyText(t *testing.T) {
	p := &fakeProvider{}
	rec, err := NewLLMEnricher(p, nil).Enrich(context.Background(), models.NewsArticle{URL: "u"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), p.calls.Load())
	assert.Equal(t, models.CommodityOther, rec.Commodity)
	assert.Equal(t, NoRelevantContent, rec.Analysis)
	assert.Equal(t, NoUsableText, rec.Summary)
}

func TestOfflineRecord(t *testing.T) {
	a := models.NewsArticle{
		Title: "Wheat prices surge",
		Text:  "Wheat prices surge as drought hits the Black Sea wheat belt and export supplies tighten.",
	}
	rec := OfflineRecord(a)
	assert.Equal(t, models.Wheat, rec.Commodity)
	assert.Equal(t, models.EventWeather, rec.EventType)
	assert.NotEmpty(t, rec.Analysis)
	assert.Equal(t, rec.Analysis, rec.Summary)
}

func TestEnrichAllFallsBackOffline(t *testing.T) {
	p := &fakeProvider{err: llm.ErrProviderDown}
	articles := []models.NewsArticle{
		{URL: "a", Text: "Corn harvest delayed by rain."},
		{URL: "b", Text: "Soybean exports rise."},
	}

	recs, stats, err := EnrichAll(context.Background(), NewLLMEnricher(p, nil), articles, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].URL)
	assert.Equal(t, "b", recs[1].URL)
	assert.Equal(t, Stats{Enriched: 0, Fallbacks: 2}, stats)
	assert.Equal(t, models.Corn, recs[0].Commodity)
}

func TestEnrichAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProvider{err: context.Canceled}
	_, _, err := EnrichAll(ctx, NewLLMEnricher(p, nil), []models.NewsArticle{{URL: "a", Text: "wheat"}}, 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEnrichAllOffline(t *testing.T) {
	recs, stats, err := EnrichAll(context.Background(), Offline{}, []models.NewsArticle{{Text: "wheat"}, {}}, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, 2, stats.Enriched)
	assert.Equal(t, NoUsableText, recs[1].Summary)
}
