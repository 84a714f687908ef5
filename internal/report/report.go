// Package report renders the daily grain intelligence report: a Markdown
// document with an HTML rendition, SVG charts and an optional PDF export.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/seenimoa/graintel/internal/analysis/engine"
	"github.com/seenimoa/graintel/internal/analysis/macro"
	"github.com/seenimoa/graintel/internal/analysis/sentiment"
	"github.com/seenimoa/graintel/internal/backtest"
	"github.com/seenimoa/graintel/internal/storage"
	"github.com/seenimoa/graintel/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Configuration
// ════════════════════════════════════════════════════════════════════

// Config controls what goes into a report.
type Config struct {
	MaxAlerts   int             // alerts listed (default: 10)
	MinSeverity models.Severity // lowest alert tier listed (default: watch)
	FigureLink  string          // chart link prefix relative to the report (default: "../figures")
	ForwardDays int             // backtest horizon shown when the summary has none (default: 5)
	Now         func() time.Time
}

// DefaultConfig returns the report defaults.
func DefaultConfig() Config {
	return Config{
		MaxAlerts:   10,
		MinSeverity: models.SeverityWatch,
		FigureLink:  "../figures",
		ForwardDays: 5,
		Now:         time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAlerts <= 0 {
		c.MaxAlerts = d.MaxAlerts
	}
	if c.MinSeverity.Rank() == 0 {
		c.MinSeverity = d.MinSeverity
	}
	if c.FigureLink == "" {
		c.FigureLink = d.FigureLink
	}
	if c.ForwardDays <= 0 {
		c.ForwardDays = d.ForwardDays
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

// List caps per section.
const (
	maxAnalyses      = 5
	maxImpacts       = 3
	maxRisks         = 5
	maxOutlooks      = 3
	maxSources       = 8
	maxThemeAnalyses = 3
)

// ════════════════════════════════════════════════════════════════════
// Report Data, flattened for template rendering
// ════════════════════════════════════════════════════════════════════

// Data is the template model of a daily report.
type Data struct {
	Date         string
	GeneratedAt  string
	ArticleCount int
	Macro        models.MacroScore
	MacroLimit   int
	Charts       []ChartLink
	Alerts       []AlertRow
	Commodities  []CommoditySection
	Themes       []ThemeSection
	Backtest     *BacktestView
}

// ChartLink is an embedded chart image.
type ChartLink struct {
	Title string
	Link  string
}

// AlertRow is one entry of the alerts section.
type AlertRow struct {
	Severity  string // upper case
	Title     string
	URL       string
	Commodity string
	EventType string
	Score     int
	Tags      string
	Summary   string
}

// Source is a linked article title.
type Source struct {
	Title string
	URL   string
}

// ImpactView is a formatted PriceImpact.
type ImpactView struct {
	Neutral    bool
	ShortTerm  string
	MediumTerm string
	Confidence string
}

// CommoditySection is the per grain block.
type CommoditySection struct {
	Commodity models.Commodity
	Name      string
	Bias      string
	Impact    *ImpactView
	Analyses  []string
	Impacts   []string
	Risks     []string
	Outlooks  []string
	Sources   []Source
}

// ThemeSection is the per macro theme block.
type ThemeSection struct {
	Theme    models.Theme
	Label    string
	Score    int
	Count    int
	Analyses []string
	Impacts  []string
	Outlooks []string
	Sources  []Source
}

// BacktestView is the formatted backtest summary.
type BacktestView struct {
	Empty       bool
	ForwardDays int
	NSignals    int
	Mean        string
	BullishN    int
	Bullish     string
	BearishN    int
	Bearish     string
	HitRate     string
	Rows        []BacktestRow
}

// BacktestRow is the backtest summary of one commodity.
type BacktestRow struct {
	Name     string
	NSignals int
	Mean     string
	BullishN int
	Bullish  string
	BearishN int
	Bearish  string
}

// ════════════════════════════════════════════════════════════════════
// Build
// ════════════════════════════════════════════════════════════════════

// Build assembles the report model of one day from scored indicators and an
// optional backtest summary.
func Build(date string, ind models.Indicators, bt *models.BacktestSummary, cfg Config) Data {
	cfg = cfg.withDefaults()

	macroRows := macro.SelectMacro(ind.Articles)
	d := Data{
		Date:         date,
		GeneratedAt:  cfg.Now().UTC().Format("2006-01-02 15:04 UTC"),
		ArticleCount: len(ind.Articles),
		Macro:        ind.Macro,
		MacroLimit:   models.MacroScoreLimit,
		Alerts:       buildAlerts(ind, cfg),
		Commodities:  buildCommodities(ind),
		Themes:       buildThemes(macroRows),
	}

	for _, kind := range chartKinds(len(macroRows) > 0) {
		d.Charts = append(d.Charts, ChartLink{
			Title: chartTitle(kind),
			Link:  strings.TrimRight(cfg.FigureLink, "/") + "/" + chartName(kind, date),
		})
	}

	if bt != nil {
		d.Backtest = buildBacktest(*bt, cfg.ForwardDays)
	}
	return d
}

func buildAlerts(ind models.Indicators, cfg Config) []AlertRow {
	rows := ind.AlertRows(cfg.MinSeverity)
	if len(rows) > cfg.MaxAlerts {
		rows = rows[:cfg.MaxAlerts]
	}
	out := make([]AlertRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, AlertRow{
			Severity:  strings.ToUpper(string(r.AlertSeverity)),
			Title:     titleOrDefault(r.Title),
			URL:       strings.TrimSpace(r.URL),
			Commodity: string(r.Commodity),
			EventType: string(r.EventType),
			Score:     r.AlertScore,
			Tags:      strings.TrimSpace(r.AlertTags),
			Summary:   oneLine(r.Summary),
		})
	}
	return out
}

func buildCommodities(ind models.Indicators) []CommoditySection {
	groups := make(map[models.Commodity][]models.ArticleRecord)
	for _, a := range ind.Articles {
		if a.Commodity.IsGrain() {
			groups[a.Commodity] = append(groups[a.Commodity], a)
		}
	}

	var out []CommoditySection
	for _, c := range models.Grains() {
		items := groups[c]
		if len(items) == 0 {
			continue
		}
		sec := CommoditySection{
			Commodity: c,
			Name:      c.Title(),
			Bias:      sentiment.BiasLabel(sentiment.NetScore(items)),
			Analyses:  collect(items, func(a models.ArticleRecord) string { return a.Analysis }, maxAnalyses),
			Impacts:   collect(items, func(a models.ArticleRecord) string { return a.Impact }, maxImpacts),
			Risks:     dedupeRisks(items, maxRisks),
			Outlooks:  collect(items, func(a models.ArticleRecord) string { return a.Outlook }, maxOutlooks),
			Sources:   sources(items, maxSources),
		}
		if imp, ok := ind.Impacts[c]; ok {
			sec.Impact = impactView(imp)
		}
		out = append(out, sec)
	}
	return out
}

func buildThemes(macroRows []models.ArticleRecord) []ThemeSection {
	byTheme := make(map[models.Theme][]models.ArticleRecord)
	for _, a := range macroRows {
		t := macro.ClassifyTheme(a)
		byTheme[t] = append(byTheme[t], a)
	}

	var out []ThemeSection
	for _, t := range models.Themes() {
		rows := byTheme[t]
		if len(rows) == 0 {
			continue
		}
		out = append(out, ThemeSection{
			Theme:    t,
			Label:    t.Label(),
			Score:    sentiment.NetScore(rows),
			Count:    len(rows),
			Analyses: collect(rows, func(a models.ArticleRecord) string { return a.Analysis }, maxThemeAnalyses),
			Impacts:  collect(rows, func(a models.ArticleRecord) string { return a.Impact }, maxImpacts),
			Outlooks: collect(rows, func(a models.ArticleRecord) string { return a.Outlook }, maxOutlooks),
			Sources:  sources(rows, maxSources),
		})
	}
	return out
}

func buildBacktest(s models.BacktestSummary, defaultDays int) *BacktestView {
	v := &BacktestView{ForwardDays: s.ForwardDays}
	if v.ForwardDays <= 0 {
		v.ForwardDays = defaultDays
	}
	if s.IsEmpty() {
		v.Empty = true
		return v
	}

	g := s.Global
	v.NSignals = g.NSignals
	v.Mean = pct(g.MeanFwdReturn)
	v.BullishN, v.Bullish = g.BullishN, optPct(g.BullishN, g.BullishMean)
	v.BearishN, v.Bearish = g.BearishN, optPct(g.BearishN, g.BearishMean)
	if rate, n := backtest.HitRate(s.Signals); n > 0 {
		v.HitRate = fmt.Sprintf("%.0f%% over %d directional signals", rate*100, n)
	}

	for _, c := range models.Grains() {
		st, ok := s.ByCommodity[c]
		if !ok || st.NSignals == 0 {
			continue
		}
		v.Rows = append(v.Rows, BacktestRow{
			Name:     c.Title(),
			NSignals: st.NSignals,
			Mean:     pct(st.MeanFwdReturn),
			BullishN: st.BullishN,
			Bullish:  optPct(st.BullishN, st.BullishMean),
			BearishN: st.BearishN,
			Bearish:  optPct(st.BearishN, st.BearishMean),
		})
	}
	return v
}

func impactView(p models.PriceImpact) *ImpactView {
	return &ImpactView{
		Neutral:    p.IsNeutral(),
		ShortTerm:  fmt.Sprintf("%+.2f%% → %+.2f%%", p.CTLow, p.CTHigh),
		MediumTerm: fmt.Sprintf("%+.2f%% → %+.2f%%", p.MTLow, p.MTHigh),
		Confidence: fmt.Sprintf("%.2f", p.Confidence),
	}
}

// collect returns up to limit non-empty trimmed values of field.
func collect(items []models.ArticleRecord, field func(models.ArticleRecord) string, limit int) []string {
	var out []string
	for _, a := range items {
		if v := strings.TrimSpace(field(a)); v != "" {
			out = append(out, oneLine(v))
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// dedupeRisks flattens risks keeping first occurrences.
func dedupeRisks(items []models.ArticleRecord, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range items {
		for _, r := range a.Risks {
			r = strings.TrimSpace(r)
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func sources(items []models.ArticleRecord, limit int) []Source {
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]Source, 0, len(items))
	for _, a := range items {
		out = append(out, Source{Title: titleOrDefault(a.Title), URL: strings.TrimSpace(a.URL)})
	}
	return out
}

func titleOrDefault(s string) string {
	if s = oneLine(s); s == "" {
		return "Untitled"
	}
	return s
}

// oneLine collapses runs of whitespace, newlines included, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f %%", v*100)
}

func optPct(n int, v *float64) string {
	if n == 0 || v == nil {
		return ""
	}
	return pct(*v)
}

// ════════════════════════════════════════════════════════════════════
// Rendering
// ════════════════════════════════════════════════════════════════════

var (
	markdownTmpl = template.Must(template.Must(template.New("report").Parse(MarkdownTemplate)).Parse(sourceTemplate))
	pageTmpl     = htmltemplate.Must(htmltemplate.New("page").Parse(PageTemplate))
)

// RenderMarkdown executes the Markdown template.
func RenderMarkdown(d Data) (string, error) {
	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// RenderHTML converts Markdown into a standalone HTML page.
func RenderHTML(markdown, title, generatedAt string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}

	var buf bytes.Buffer
	err := pageTmpl.Execute(&buf, struct {
		Title       string
		GeneratedAt string
		Body        htmltemplate.HTML
	}{title, generatedAt, htmltemplate.HTML(body.String())})
	if err != nil {
		return "", fmt.Errorf("executing page template: %w", err)
	}
	return buf.String(), nil
}

// ════════════════════════════════════════════════════════════════════
// Generate: write report files
// ════════════════════════════════════════════════════════════════════

// Options locates report inputs and outputs.
type Options struct {
	Config
	OutDir      string // reports directory (default: "reports")
	FigureDir   string // charts directory (default: "figures")
	SummaryPath string // backtest summary JSON; empty skips the backtest section
	PDF         bool   // also export daily_<date>.pdf
}

// Result lists the files written by Write.
type Result struct {
	Markdown string
	HTML     string
	PDF      string
	Charts   []string
}

// Write renders the report of date and writes daily_<date>.md, .html and the
// charts. A missing or unreadable backtest summary only drops that section.
func Write(ctx context.Context, date string, ind models.Indicators, opts Options) (Result, error) {
	if opts.OutDir == "" {
		opts.OutDir = "reports"
	}
	if opts.FigureDir == "" {
		opts.FigureDir = "figures"
	}
	if opts.FigureLink == "" {
		opts.FigureLink = figureLink(opts.OutDir, opts.FigureDir)
	}

	var bt *models.BacktestSummary
	if opts.SummaryPath != "" {
		s, err := storage.LoadSummary(opts.SummaryPath)
		switch {
		case err == nil:
			bt = &s
		case errors.Is(err, storage.ErrNotFound):
		default:
			log.Warn().Err(err).Str("path", opts.SummaryPath).Msg("backtest summary unreadable, skipping section")
		}
	}

	data := Build(date, ind, bt, opts.Config)
	markdown, err := RenderMarkdown(data)
	if err != nil {
		return Result{}, err
	}
	title := "Daily Grain Intelligence Report — " + date
	page, err := RenderHTML(markdown, title, data.GeneratedAt)
	if err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating report directory: %w", err)
	}
	var res Result
	res.Markdown = filepath.Join(opts.OutDir, "daily_"+date+".md")
	if err := os.WriteFile(res.Markdown, []byte(markdown), 0o644); err != nil {
		return Result{}, fmt.Errorf("writing markdown report: %w", err)
	}
	res.HTML = filepath.Join(opts.OutDir, "daily_"+date+".html")
	if err := os.WriteFile(res.HTML, []byte(page), 0o644); err != nil {
		return Result{}, fmt.Errorf("writing html report: %w", err)
	}

	charts, err := WriteCharts(opts.FigureDir, DailyCharts(date, ind, len(data.Themes) > 0))
	res.Charts = charts
	if err != nil {
		return res, err
	}

	if opts.PDF {
		pdf := filepath.Join(opts.OutDir, "daily_"+date+".pdf")
		if err := ExportPDF(ctx, res.HTML, pdf, DefaultPDFConfig()); err != nil {
			log.Warn().Err(err).Msg("pdf export skipped")
		} else {
			res.PDF = pdf
		}
	}

	log.Info().Str("report", res.Markdown).Int("charts", len(res.Charts)).Msg("daily report written")
	return res, nil
}

// GenerateFromFile rescores a signals CSV and writes its report. The report
// date comes from the file name, falling back to today (UTC).
func GenerateFromFile(ctx context.Context, csvPath string, opts Options) (Result, error) {
	records, err := storage.LoadSignals(csvPath)
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return Result{}, fmt.Errorf("%w: %s", storage.ErrNoSignals, csvPath)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	date := now().UTC().Format(storage.DateLayout)
	if d, ok := storage.ParseSignalsFileName(csvPath); ok {
		date = d.Format(storage.DateLayout)
	}

	ind, err := engine.Compute(ctx, records, engine.Options{Now: now})
	if err != nil {
		return Result{}, err
	}
	return Write(ctx, date, ind, opts)
}

func figureLink(outDir, figureDir string) string {
	rel, err := filepath.Rel(outDir, figureDir)
	if err != nil {
		return "../figures"
	}
	return filepath.ToSlash(rel)
}
