package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/graintel/internal/config"
	"github.com/seenimoa/graintel/internal/datasource"
	"github.com/seenimoa/graintel/internal/enrich"
	"github.com/seenimoa/graintel/internal/storage"
	"github.com/seenimoa/graintel/pkg/models"
)

var runDay = time.Date(2024, 6, 4, 7, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	articles map[string][]models.NewsArticle
	fail     map[string]error
	calls    atomic.Int32
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(_ context.Context, src models.Source) ([]models.NewsArticle, error) {
	f.calls.Add(1)
	if err := f.fail[src.Name]; err != nil {
		return nil, err
	}
	return f.articles[src.Name], nil
}

type enricherFunc func(models.NewsArticle) models.ArticleRecord

func (fn enricherFunc) Enrich(_ context.Context, a models.NewsArticle) (models.ArticleRecord, error) {
	return fn(a), nil
}

// byTitle classifies the test articles deterministically.
var byTitle = enricherFunc(func(a models.NewsArticle) models.ArticleRecord {
	rec := a.ToRecord()
	switch a.Title {
	case "Kansas drought":
		rec.Commodity, rec.EventType, rec.Sentiment = models.Wheat, models.EventWeather, models.Bullish
		rec.Analysis = "Drought and heatwave threaten yields."
		rec.Risks = []string{"drought"}
	case "Brent rallies":
		rec.Commodity, rec.EventType, rec.Sentiment = models.CommodityOther, models.EventOther, models.Bullish
	default:
		rec.Commodity, rec.EventType, rec.Sentiment = models.Corn, models.EventProduction, models.Neutral
	}
	return rec
})

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		LLM:     config.LLMConfig{Primary: "offline", Concurrency: 2},
		Sources: config.SourcesConfig{Groups: []string{"grains", "energy"}, MaxSources: 5},
		Pipeline: config.PipelineConfig{
			DataDir:      filepath.Join(root, "data", "processed"),
			ReportDir:    filepath.Join(root, "reports"),
			FigureDir:    filepath.Join(root, "figures"),
			MaxAgeDays:   180,
			FetchWorkers: 2,
		},
		Backtest: config.BacktestConfig{
			ForwardDays: 5,
			SummaryPath: filepath.Join(root, "data", "backtest_summary.json"),
		},
	}
}

func testSources() []models.Source {
	return []models.Source{
		{Name: "farm", URL: "https://farm.example/rss", Type: models.SourceRSS, Group: "grains"},
		{Name: "broken", URL: "https://broken.example/rss", Type: models.SourceRSS, Group: "grains"},
		{Name: "oil", URL: "https://oil.example/brent-oil", Type: models.SourceHTML, Group: "energy"},
		{Name: "fx", URL: "https://fx.example/rss", Type: models.SourceRSS, Group: "fx"},
	}
}

func testFetcher() *fakeFetcher {
	return &fakeFetcher{
		articles: map[string][]models.NewsArticle{
			"farm": {
				{Title: "Kansas drought", URL: "https://farm.example/1", Text: "Wheat crops suffer.", PublishedAt: runDay.Add(-24 * time.Hour)},
				{Title: "Corn planting", URL: "https://farm.example/2", Text: "Corn planting is on pace.", PublishedAt: runDay.Add(-48 * time.Hour)},
				{Title: "Ancient news", URL: "https://farm.example/3", Text: "Old corn story.", PublishedAt: runDay.AddDate(-1, 0, 0)},
				{Title: "Empty page", URL: "https://farm.example/4"},
			},
			"oil": {
				{Title: "Brent rallies", URL: "https://oil.example/brent-oil", Text: "Brent crude climbs."},
			},
			"fx": {
				{Title: "Dollar", URL: "https://fx.example/1", Text: "USD gains."},
			},
		},
		fail: map[string]error{"broken": errors.New("connection refused")},
	}
}

func TestNew_OfflineWithoutProvider(t *testing.T) {
	p, err := New(testConfig(t))
	require.NoError(t, err)
	assert.IsType(t, enrich.Offline{}, p.enricher)
	assert.IsType(t, &datasource.News{}, p.fetcher)

	_, err = New(nil)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	fetcher := testFetcher()
	p, err := New(cfg,
		WithFetcher(fetcher),
		WithEnricher(byTitle),
		WithSources(testSources()),
		WithClock(func() time.Time { return runDay }),
	)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "2024-06-04", res.Date)
	assert.Equal(t, 3, res.Sources, "fx group is not configured")
	assert.EqualValues(t, 3, fetcher.calls.Load())
	assert.Contains(t, res.Failed, "broken")
	assert.Equal(t, 5, res.Fetched)
	assert.Equal(t, 3, res.Recent, "old and empty articles are dropped")
	assert.Equal(t, enrich.Stats{Enriched: 3}, res.Enrich)

	ind := res.Indicators
	require.Len(t, ind.Articles, 3)
	assert.Equal(t, 1, ind.Macro.Energy)
	assert.Equal(t, 1, ind.Macro.FinalMacroScore)
	assert.Contains(t, ind.Impacts, models.Wheat)
	assert.Contains(t, ind.Impacts, models.Corn)

	assert.Equal(t, filepath.Join(cfg.Pipeline.DataDir, "signals_2024-06-04.csv"), res.SignalsPath)
	saved, err := storage.LoadSignals(res.SignalsPath)
	require.NoError(t, err)
	assert.Len(t, saved, 3)
	assert.Equal(t, ind.Articles[0].AlertScore, saved[0].AlertScore)

	assert.FileExists(t, res.Report.Markdown)
	assert.FileExists(t, res.Report.HTML)
	assert.Len(t, res.Report.Charts, 3)
	md, err := os.ReadFile(res.Report.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Wheat")
	assert.Contains(t, string(md), "### Energy")
}

func TestRun_NoRecentArticles(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg,
		WithFetcher(&fakeFetcher{articles: map[string][]models.NewsArticle{
			"farm": {{Title: "Ancient", Text: "Old wheat story.", PublishedAt: runDay.AddDate(-2, 0, 0)}},
		}}),
		WithEnricher(byTitle),
		WithSources(testSources()[:1]),
		WithClock(func() time.Time { return runDay }),
	)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoArticles)
	assert.Equal(t, 1, res.Fetched)
	assert.NoDirExists(t, cfg.Pipeline.DataDir)
}

func TestRun_NoMatchingSources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources.Groups = []string{"shipping"}
	p, err := New(cfg, WithFetcher(testFetcher()), WithEnricher(byTitle), WithSources(testSources()))
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, datasource.ErrInvalidCatalog)
}

func TestRun_CatalogFile(t *testing.T) {
	cfg := testConfig(t)
	catalog := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`sources:
  grains:
    - name: farm
      url: https://farm.example/rss
      type: rss
`), 0o644))
	cfg.Sources.Catalog = catalog

	fetcher := testFetcher()
	p, err := New(cfg, WithFetcher(fetcher), WithEnricher(byTitle), WithClock(func() time.Time { return runDay }))
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sources)
	assert.Equal(t, 2, res.Recent)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := New(testConfig(t),
		WithFetcher(testFetcher()),
		WithEnricher(byTitle),
		WithSources(testSources()),
		WithClock(func() time.Time { return runDay }),
	)
	require.NoError(t, err)

	_, err = p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 7 * * *"))
	assert.NoError(t, ValidateSchedule("@daily"))
	assert.Error(t, ValidateSchedule("every morning"))
	assert.Error(t, ValidateSchedule("0 7 * *"))
}

func TestSchedule_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Schedule(ctx, "@every 1h", func(context.Context) {})
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Schedule did not return after cancel")
	}
}

func TestSchedule_Invalid(t *testing.T) {
	assert.Error(t, Schedule(context.Background(), "nope", func(context.Context) {}))
}
