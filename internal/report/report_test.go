package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/graintel/internal/storage"
	"github.com/seenimoa/graintel/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

var fixedNow = func() time.Time { return time.Date(2024, 6, 4, 7, 0, 0, 0, time.UTC) }

func sampleIndicators() models.Indicators {
	return models.Indicators{
		Articles: []models.ArticleRecord{
			{
				Title: "Drought hits Kansas wheat", URL: "https://example.com/w1",
				Summary: "Dry weather\ncuts yields.", Analysis: "Yields at risk.", Impact: "Supportive for prices.",
				Outlook: "Rally likely.", Risks: []string{"drought", "heat"},
				Commodity: models.Wheat, EventType: models.EventWeather, Sentiment: models.Bullish,
				AlertScore: 5, AlertSeverity: models.SeverityCritical, AlertTags: "drought",
			},
			{
				Title: "Russian export quota", URL: "https://example.com/w2",
				Analysis: "Less supply on world market.", Risks: []string{"heat", "quota"},
				Commodity: models.Wheat, EventType: models.EventPolitics, Sentiment: models.Bullish,
				AlertScore: 2, AlertSeverity: models.SeverityWatch, AlertTags: "quota",
			},
			{
				Title: "Corn planting ahead", Commodity: models.Corn, EventType: models.EventProduction,
				Sentiment: models.Bearish, AlertSeverity: models.SeverityInfo, AlertScore: 1,
			},
			{
				Title: "Dollar index jumps", URL: "https://example.com/currencies/usd",
				Analysis: "Strong dollar weighs on exports.", Commodity: models.CommodityOther,
				EventType: models.EventOther, Sentiment: models.Bearish, AlertSeverity: models.SeverityNone,
			},
		},
		Macro: models.MacroScore{FinalMacroScore: -1, FX: -1},
		Impacts: map[models.Commodity]models.PriceImpact{
			models.Wheat: {CTLow: 0.5, CTHigh: 1.25, MTLow: 1, MTHigh: 2.5, Confidence: 0.62},
			models.Corn:  {},
		},
	}
}

func sampleSummary() *models.BacktestSummary {
	bull, bear := 0.0125, -0.004
	return &models.BacktestSummary{
		Global: &models.BacktestStats{
			NSignals: 3, MeanFwdReturn: 0.005,
			BullishN: 2, BullishMean: &bull, BearishN: 1, BearishMean: &bear,
		},
		ByCommodity: map[models.Commodity]models.BacktestStats{
			models.Wheat: {NSignals: 2, MeanFwdReturn: 0.0125, BullishN: 2, BullishMean: &bull},
		},
		ForwardDays: 5,
		Signals: []models.SignalReturn{
			{DailySignal: models.DailySignal{SentimentScore: 1}, FwdReturn: 0.01},
			{DailySignal: models.DailySignal{SentimentScore: 1}, FwdReturn: 0.015},
			{DailySignal: models.DailySignal{SentimentScore: -1}, FwdReturn: 0.004},
		},
	}
}

// ════════════════════════════════════════════════════════════════════
// Chart Tests
// ════════════════════════════════════════════════════════════════════

func TestBarChart(t *testing.T) {
	svg := BarChart([]BarItem{
		{Label: "weather", Value: 2},
		{Label: "fx", Value: -1},
	}, ChartConfig{Title: "Scores & more"})

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not an svg document")
	}
	for _, want := range []string{"Scores &amp; more", ">weather<", ">fx<", "stroke-dasharray", "#ef5350", "#4caf50"} {
		if !strings.Contains(svg, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Count(svg, "<rect") != 3 {
		t.Errorf("expected background + 2 bars, got %d rects", strings.Count(svg, "<rect"))
	}
}

func TestBarChart_Empty(t *testing.T) {
	svg := BarChart(nil, ChartConfig{})
	if !strings.Contains(svg, "No data") {
		t.Error("empty chart should say No data")
	}
}

func TestBarChart_AllZero(t *testing.T) {
	svg := BarChart([]BarItem{{Label: "a", Value: 0}}, ChartConfig{})
	if strings.Contains(svg, "NaN") || strings.Contains(svg, "Inf") {
		t.Error("zero range produced invalid coordinates")
	}
}

func TestDailyCharts(t *testing.T) {
	ind := sampleIndicators()

	charts := DailyCharts("2024-06-04", ind, true)
	if len(charts) != 3 {
		t.Fatalf("expected 3 charts, got %d", len(charts))
	}
	if charts[0].Name != "articles_by_commodity_2024-06-04.svg" {
		t.Errorf("name = %s", charts[0].Name)
	}
	if !strings.Contains(charts[0].SVG, ">wheat<") || !strings.Contains(charts[0].SVG, ">other<") {
		t.Error("articles chart should label wheat and other")
	}
	if !strings.Contains(charts[2].SVG, ">final<") {
		t.Error("macro chart should include the final bar")
	}

	if got := DailyCharts("2024-06-04", ind, false); len(got) != 2 {
		t.Errorf("without macro rows expected 2 charts, got %d", len(got))
	}
}

func TestWriteCharts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "figures")
	paths, err := WriteCharts(dir, DailyCharts("2024-06-04", sampleIndicators(), true))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("wrote %d charts", len(paths))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s", p)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Build Tests
// ════════════════════════════════════════════════════════════════════

func TestBuild_Alerts(t *testing.T) {
	d := Build("2024-06-04", sampleIndicators(), nil, Config{Now: fixedNow})

	if len(d.Alerts) != 2 {
		t.Fatalf("expected watch+critical alerts, got %d", len(d.Alerts))
	}
	if d.Alerts[0].Severity != "CRITICAL" || d.Alerts[0].Score != 5 {
		t.Errorf("first alert = %+v", d.Alerts[0])
	}
	if d.Alerts[0].Summary != "Dry weather cuts yields." {
		t.Errorf("summary not flattened: %q", d.Alerts[0].Summary)
	}

	capped := Build("2024-06-04", sampleIndicators(), nil, Config{MaxAlerts: 1, Now: fixedNow})
	if len(capped.Alerts) != 1 {
		t.Errorf("MaxAlerts not applied: %d", len(capped.Alerts))
	}

	all := Build("2024-06-04", sampleIndicators(), nil, Config{MinSeverity: models.SeverityInfo, Now: fixedNow})
	if len(all.Alerts) != 3 {
		t.Errorf("info threshold: got %d alerts", len(all.Alerts))
	}
}

func TestBuild_Alerts_CapAtTen(t *testing.T) {
	var ind models.Indicators
	for i := 0; i < 15; i++ {
		ind.Articles = append(ind.Articles, models.ArticleRecord{
			Title: fmt.Sprintf("a%d", i), Commodity: models.Wheat,
			AlertScore: i, AlertSeverity: models.SeverityWatch,
		})
	}
	d := Build("2024-06-04", ind, nil, Config{Now: fixedNow})
	if len(d.Alerts) != 10 {
		t.Fatalf("got %d alerts, want 10", len(d.Alerts))
	}
	if d.Alerts[0].Title != "a14" {
		t.Errorf("alerts not sorted by score: first = %s", d.Alerts[0].Title)
	}
}

func TestBuild_Commodities(t *testing.T) {
	d := Build("2024-06-04", sampleIndicators(), nil, Config{Now: fixedNow})

	if len(d.Commodities) != 2 {
		t.Fatalf("expected wheat and corn, got %d", len(d.Commodities))
	}
	wheat := d.Commodities[0]
	if wheat.Name != "Wheat" || wheat.Bias != "Bullish (score 2)" {
		t.Errorf("wheat header = %s / %s", wheat.Name, wheat.Bias)
	}
	if wheat.Impact == nil || wheat.Impact.ShortTerm != "+0.50% → +1.25%" || wheat.Impact.Confidence != "0.62" {
		t.Errorf("wheat impact = %+v", wheat.Impact)
	}
	if got := strings.Join(wheat.Risks, ","); got != "drought,heat,quota" {
		t.Errorf("risks = %s", got)
	}
	if len(wheat.Analyses) != 2 || len(wheat.Sources) != 2 {
		t.Errorf("analyses=%d sources=%d", len(wheat.Analyses), len(wheat.Sources))
	}

	corn := d.Commodities[1]
	if corn.Impact == nil || !corn.Impact.Neutral {
		t.Errorf("corn impact should be neutral: %+v", corn.Impact)
	}
	if len(corn.Analyses) != 0 {
		t.Errorf("corn analyses = %v", corn.Analyses)
	}
	if corn.Sources[0].URL != "" || corn.Sources[0].Title != "Corn planting ahead" {
		t.Errorf("corn source = %+v", corn.Sources[0])
	}
}

func TestBuild_ThemesAndCharts(t *testing.T) {
	d := Build("2024-06-04", sampleIndicators(), nil, Config{Now: fixedNow})

	if len(d.Themes) != 1 || d.Themes[0].Theme != models.ThemeFX {
		t.Fatalf("themes = %+v", d.Themes)
	}
	if d.Themes[0].Score != -1 || d.Themes[0].Count != 1 {
		t.Errorf("fx theme = %+v", d.Themes[0])
	}
	if len(d.Charts) != 3 || d.Charts[2].Link != "../figures/macro_scores_2024-06-04.svg" {
		t.Errorf("charts = %+v", d.Charts)
	}
	if d.GeneratedAt != "2024-06-04 07:00 UTC" || d.ArticleCount != 4 {
		t.Errorf("header = %s / %d", d.GeneratedAt, d.ArticleCount)
	}
}

func TestBuild_Backtest(t *testing.T) {
	d := Build("2024-06-04", sampleIndicators(), sampleSummary(), Config{Now: fixedNow})
	bt := d.Backtest
	if bt == nil || bt.Empty {
		t.Fatal("backtest view missing")
	}
	if bt.Mean != "0.50 %" || bt.Bullish != "1.25 %" || bt.Bearish != "-0.40 %" {
		t.Errorf("view = %+v", bt)
	}
	if bt.HitRate != "67% over 3 directional signals" {
		t.Errorf("hit rate = %q", bt.HitRate)
	}
	if len(bt.Rows) != 1 || bt.Rows[0].Name != "Wheat" || bt.Rows[0].Bearish != "" {
		t.Errorf("rows = %+v", bt.Rows)
	}

	empty := Build("2024-06-04", sampleIndicators(), &models.BacktestSummary{}, Config{Now: fixedNow})
	if empty.Backtest == nil || !empty.Backtest.Empty || empty.Backtest.ForwardDays != 5 {
		t.Errorf("empty backtest view = %+v", empty.Backtest)
	}
}

// ════════════════════════════════════════════════════════════════════
// Rendering Tests
// ════════════════════════════════════════════════════════════════════

func TestRenderMarkdown(t *testing.T) {
	md, err := RenderMarkdown(Build("2024-06-04", sampleIndicators(), sampleSummary(), Config{Now: fixedNow}))
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"# Daily Grain Intelligence Report — 2024-06-04\n",
		"- **Global score**: -1 / 5\n",
		"![Articles per commodity](../figures/articles_by_commodity_2024-06-04.svg)",
		"## 🔔 Alerts of the day\n",
		"### [CRITICAL] Drought hits Kansas wheat\n",
		"[Link](https://example.com/w1)\n",
		"- Risk keywords: `drought`\n",
		"> Dry weather cuts yields.\n",
		"## Wheat\n\n**Market bias (LLM):** Bullish (score 2)\n",
		"- Short term (1-3 days): **+0.50% → +1.25%**\n",
		"- Signal confidence: **0.62**\n",
		"**Key risks:**\n- drought\n- heat\n- quota\n",
		"- [Russian export quota](https://example.com/w2)\n",
		"## Corn\n",
		"- Overall signal: **neutral**",
		"**Analytical summary:**\n- No analysis available.\n",
		"- Corn planting ahead\n",
		"## Macro market (all grains)\n",
		"- Currencies (FX): score **-1** (from 1 news)\n",
		"### Currencies (FX)\n",
		"## 📈 Backtest: historical signal performance\n",
		"- Mean 5-day return: **0.50 %**\n",
		"- **Bullish** signals: 2 | mean return: **1.25 %**\n",
		"**Wheat**:\n- N signals: 2\n",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "## Soy") {
		t.Error("soy has no articles and should have no section")
	}
	if strings.Contains(md, "<no value>") {
		t.Error("template referenced a missing field")
	}
}

func TestRenderMarkdown_NoAlertsNoMacro(t *testing.T) {
	ind := models.Indicators{Articles: []models.ArticleRecord{
		{Title: "Quiet soy day", Commodity: models.Soy, Sentiment: models.Neutral, AlertSeverity: models.SeverityNone},
	}}
	md, err := RenderMarkdown(Build("2024-06-04", ind, nil, Config{Now: fixedNow}))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"_No significant alert today._", "## Soy", "Neutral (score 0)"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	for _, unwanted := range []string{"## Macro market", "macro_scores_", "## 📈 Backtest"} {
		if strings.Contains(md, unwanted) {
			t.Errorf("markdown should not contain %q", unwanted)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	md, err := RenderMarkdown(Build("2024-06-04", sampleIndicators(), nil, Config{Now: fixedNow}))
	if err != nil {
		t.Fatal(err)
	}
	page, err := RenderHTML(md, "Daily <Report>", "2024-06-04 07:00 UTC")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Daily &lt;Report&gt;</title>",
		"<h1>",
		`<img src="../figures/sentiment_by_commodity_2024-06-04.svg"`,
		`<a href="https://example.com/w1">Link</a>`,
		"<blockquote>",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Write Tests
// ════════════════════════════════════════════════════════════════════

func TestWrite(t *testing.T) {
	root := t.TempDir()
	summaryPath := filepath.Join(root, "data", "backtest_summary.json")
	if err := storage.SaveSummary(summaryPath, *sampleSummary()); err != nil {
		t.Fatal(err)
	}

	res, err := Write(context.Background(), "2024-06-04", sampleIndicators(), Options{
		Config:      Config{Now: fixedNow},
		OutDir:      filepath.Join(root, "reports"),
		FigureDir:   filepath.Join(root, "figures"),
		SummaryPath: summaryPath,
	})
	if err != nil {
		t.Fatal(err)
	}

	if filepath.Base(res.Markdown) != "daily_2024-06-04.md" || filepath.Base(res.HTML) != "daily_2024-06-04.html" {
		t.Errorf("result = %+v", res)
	}
	if len(res.Charts) != 3 || res.PDF != "" {
		t.Errorf("charts=%d pdf=%q", len(res.Charts), res.PDF)
	}

	raw, err := os.ReadFile(res.Markdown)
	if err != nil {
		t.Fatal(err)
	}
	md := string(raw)
	if !strings.Contains(md, "](../figures/articles_by_commodity_2024-06-04.svg)") {
		t.Error("chart link should be relative to the report directory")
	}
	if !strings.Contains(md, "## 📈 Backtest") {
		t.Error("backtest section missing")
	}
}

func TestWrite_MissingSummary(t *testing.T) {
	root := t.TempDir()
	res, err := Write(context.Background(), "2024-06-04", sampleIndicators(), Options{
		Config:      Config{Now: fixedNow},
		OutDir:      filepath.Join(root, "reports"),
		FigureDir:   filepath.Join(root, "figures"),
		SummaryPath: filepath.Join(root, "nope.json"),
	})
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(res.Markdown)
	if strings.Contains(string(raw), "Backtest") {
		t.Error("missing summary should drop the backtest section")
	}
}

func TestGenerateFromFile(t *testing.T) {
	root := t.TempDir()
	records := []models.ArticleRecord{
		{Title: "Drought and heatwave ravage wheat", URL: "https://example.com/a", Commodity: models.Wheat,
			EventType: models.EventWeather, Sentiment: models.Bullish, Analysis: "Severe drought."},
		{Title: "Brent climbs", URL: "https://example.com/brent-oil", Commodity: models.CommodityOther,
			EventType: models.EventOther, Sentiment: models.Bullish},
	}
	csvPath, err := storage.SaveSignals(filepath.Join(root, "processed"), time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), records)
	if err != nil {
		t.Fatal(err)
	}

	res, err := GenerateFromFile(context.Background(), csvPath, Options{
		Config:    Config{Now: fixedNow},
		OutDir:    filepath.Join(root, "reports"),
		FigureDir: filepath.Join(root, "figures"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(res.Markdown) != "daily_2024-06-03.md" {
		t.Errorf("report date should come from the file name: %s", res.Markdown)
	}
	raw, _ := os.ReadFile(res.Markdown)
	md := string(raw)
	for _, want := range []string{"## Wheat", "### Energy", "- **Energy**: 1"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestGenerateFromFile_Missing(t *testing.T) {
	_, err := GenerateFromFile(context.Background(), filepath.Join(t.TempDir(), "signals_2024-06-03.csv"), Options{})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestFigureLink(t *testing.T) {
	if got := figureLink("reports", "figures"); got != "../figures" {
		t.Errorf("figureLink = %s", got)
	}
	if got := figureLink("out", "out/fig"); got != "fig" {
		t.Errorf("figureLink nested = %s", got)
	}
}

// ════════════════════════════════════════════════════════════════════
// PDF Tests
// ════════════════════════════════════════════════════════════════════

func withLookPath(t *testing.T, found map[string]bool) {
	t.Helper()
	orig := lookPath
	lookPath = func(name string) (string, error) {
		if found[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
	t.Cleanup(func() { lookPath = orig })
}

func TestDetectPDFEngine(t *testing.T) {
	withLookPath(t, nil)
	if got := DetectPDFEngine(); got != EngineNone {
		t.Errorf("no binaries: %s", got)
	}

	withLookPath(t, map[string]bool{"chromium": true})
	if got := DetectPDFEngine(); got != EngineChromium {
		t.Errorf("chromium only: %s", got)
	}

	withLookPath(t, map[string]bool{"chromium": true, "wkhtmltopdf": true})
	if got := DetectPDFEngine(); got != EngineWKHTML {
		t.Errorf("wkhtmltopdf preferred: %s", got)
	}
}

func TestExportPDF_NoEngine(t *testing.T) {
	withLookPath(t, nil)
	err := ExportPDF(context.Background(), "report.html", "report.pdf", DefaultPDFConfig())
	if !errors.Is(err, ErrNoPDFEngine) {
		t.Fatalf("err = %v", err)
	}
}

func TestExportPDF_NoOutputPath(t *testing.T) {
	if err := ExportPDF(context.Background(), "report.html", "", DefaultPDFConfig()); err == nil {
		t.Error("expected error for empty output path")
	}
}

func TestPDFArgs(t *testing.T) {
	w := wkhtmlArgs("/r/daily.html", "/r/daily.pdf", DefaultPDFConfig())
	if w[len(w)-2] != "/r/daily.html" || w[len(w)-1] != "/r/daily.pdf" {
		t.Errorf("wkhtmltopdf args = %v", w)
	}

	cfg := DefaultPDFConfig()
	cfg.Orientation = "landscape"
	c := chromiumArgs("/r/daily.html", "/r/daily.pdf", cfg)
	joined := strings.Join(c, " ")
	if !strings.Contains(joined, "--print-to-pdf=/r/daily.pdf") || !strings.Contains(joined, "--landscape") {
		t.Errorf("chromium args = %v", c)
	}
	if c[len(c)-1] != "file:///r/daily.html" {
		t.Errorf("chromium input = %s", c[len(c)-1])
	}
}
