package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/seenimoa/graintel/internal/analysis/sentiment"
	"github.com/seenimoa/graintel/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Generator
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 640)
	Height       int    // SVG height in pixels (default: 360)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 20)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 60)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
	YLabel       string // y axis caption (optional)
	ValueFormat  string // printf verb for bar values (default: "%.2f")
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        640,
		Height:       360,
		MarginTop:    40,
		MarginRight:  20,
		MarginBottom: 50,
		MarginLeft:   60,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
		ValueFormat:  "%.2f",
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// withDefaults fills unset fields from DefaultChartConfig, keeping Title,
// YLabel and any explicit value.
func (c ChartConfig) withDefaults() ChartConfig {
	d := DefaultChartConfig()
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Height == 0 {
		c.Height = d.Height
	}
	if c.MarginTop == 0 {
		c.MarginTop = d.MarginTop
	}
	if c.MarginRight == 0 {
		c.MarginRight = d.MarginRight
	}
	if c.MarginBottom == 0 {
		c.MarginBottom = d.MarginBottom
	}
	if c.MarginLeft == 0 {
		c.MarginLeft = d.MarginLeft
	}
	if c.BgColor == "" {
		c.BgColor = d.BgColor
	}
	if c.GridColor == "" {
		c.GridColor = d.GridColor
	}
	if c.TextColor == "" {
		c.TextColor = d.TextColor
	}
	if c.FontSize == 0 {
		c.FontSize = d.FontSize
	}
	if c.ValueFormat == "" {
		c.ValueFormat = d.ValueFormat
	}
	return c
}

// ════════════════════════════════════════════════════════════════════
// Bar Chart (Vertical)
// ════════════════════════════════════════════════════════════════════

// BarItem represents a single bar.
type BarItem struct {
	Label string
	Value float64
	Color string // optional
}

// BarChart generates an SVG vertical bar chart. Negative values hang below
// a dashed zero line.
func BarChart(items []BarItem, cfg ChartConfig) string {
	cfg = cfg.withDefaults()
	if len(items) == 0 {
		return emptySVG(cfg, "No data")
	}

	px, py, pw, ph := cfg.plotArea()

	maxVal, minVal := 0.0, 0.0
	for _, item := range items {
		maxVal = math.Max(maxVal, item.Value)
		minVal = math.Min(minVal, item.Value)
	}
	valRange := maxVal - minVal
	if valRange < 1e-9 {
		valRange = 1
		maxVal = 1
	}

	valueToY := func(v float64) float64 {
		return float64(py) + (maxVal-v)/valRange*float64(ph)
	}
	zeroY := valueToY(0)

	slot := float64(pw) / float64(len(items))
	barW := math.Min(slot*0.6, 80)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="22" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Y grid
	gridLines := 4
	for i := 0; i <= gridLines; i++ {
		v := minVal + valRange*float64(i)/float64(gridLines)
		y := valueToY(v)
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s"/>`,
			px, y, px+pw, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-6, y+4, cfg.FontSize, cfg.TextColor, formatTick(v)))
	}
	if cfg.YLabel != "" {
		sb.WriteString(fmt.Sprintf(`<text x="14" y="%d" font-size="%d" fill="%s" text-anchor="middle" transform="rotate(-90 14 %d)">%s</text>`,
			py+ph/2, cfg.FontSize, cfg.TextColor, py+ph/2, escapeXML(cfg.YLabel)))
	}

	// Zero line
	if minVal < 0 {
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#999" stroke-dasharray="4,3"/>`,
			px, zeroY, px+pw, zeroY))
	}

	for i, item := range items {
		cx := float64(px) + slot*(float64(i)+0.5)
		color := item.Color
		if color == "" {
			if item.Value >= 0 {
				color = "#4caf50"
			} else {
				color = "#ef5350"
			}
		}

		top := valueToY(math.Max(item.Value, 0))
		bottom := valueToY(math.Min(item.Value, 0))
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"/>`,
			cx-barW/2, top, barW, bottom-top, color))

		// Value label above positive bars, below negative ones
		labelY := top - 4
		if item.Value < 0 {
			labelY = bottom + float64(cfg.FontSize) + 2
		}
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			cx, labelY, cfg.FontSize, cfg.TextColor, fmt.Sprintf(cfg.ValueFormat, item.Value)))

		// Category label
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			cx, py+ph+18, cfg.FontSize, cfg.TextColor, escapeXML(item.Label)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Daily charts
// ════════════════════════════════════════════════════════════════════

// Chart kinds, also the file name stems.
const (
	ChartArticles  = "articles_by_commodity"
	ChartSentiment = "sentiment_by_commodity"
	ChartMacro     = "macro_scores"
)

// ChartFile is a rendered chart.
type ChartFile struct {
	Kind  string
	Title string
	Name  string // file name, e.g. macro_scores_2024-06-04.svg
	SVG   string
}

// chartTitle returns the caption of a chart kind.
func chartTitle(kind string) string {
	switch kind {
	case ChartArticles:
		return "Articles per commodity"
	case ChartSentiment:
		return "Mean sentiment per commodity"
	case ChartMacro:
		return "Macro-grains score by theme"
	default:
		return kind
	}
}

// chartName returns the file name of a chart for a report date.
func chartName(kind, date string) string {
	return kind + "_" + date + ".svg"
}

// ArticlesByCommodityChart counts articles per commodity.
func ArticlesByCommodityChart(articles []models.ArticleRecord) string {
	counts := make(map[models.Commodity]int)
	for _, a := range articles {
		counts[models.ParseCommodity(string(a.Commodity))]++
	}
	var items []BarItem
	for _, c := range append(models.Grains(), models.CommodityOther) {
		if n := counts[c]; n > 0 {
			items = append(items, BarItem{Label: string(c), Value: float64(n), Color: "#2196f3"})
		}
	}
	return BarChart(items, ChartConfig{
		Title:       chartTitle(ChartArticles),
		YLabel:      "Articles",
		ValueFormat: "%.0f",
	})
}

// SentimentByCommodityChart plots the mean polarity (bullish +1, bearish -1)
// per commodity.
func SentimentByCommodityChart(articles []models.ArticleRecord) string {
	stats := sentiment.ByCommodity(articles)
	items := make([]BarItem, 0, len(stats))
	for _, s := range stats {
		items = append(items, BarItem{Label: string(s.Commodity), Value: s.Mean})
	}
	return BarChart(items, ChartConfig{
		Title:  chartTitle(ChartSentiment) + " (bullish = +1, bearish = -1)",
		YLabel: "Mean score",
	})
}

// MacroScoreChart plots each theme bucket and the final indicator.
func MacroScoreChart(m models.MacroScore) string {
	items := make([]BarItem, 0, len(models.Themes())+1)
	for _, t := range models.Themes() {
		items = append(items, BarItem{Label: string(t), Value: float64(m.ThemeScore(t))})
	}
	items = append(items, BarItem{Label: "final", Value: float64(m.FinalMacroScore), Color: "#1565c0"})
	return BarChart(items, ChartConfig{
		Title:       chartTitle(ChartMacro) + " (+ global)",
		YLabel:      "Score",
		ValueFormat: "%.0f",
	})
}

func chartKinds(hasMacro bool) []string {
	kinds := []string{ChartArticles, ChartSentiment}
	if hasMacro {
		kinds = append(kinds, ChartMacro)
	}
	return kinds
}

// DailyCharts renders the charts of one report. The macro chart is only
// drawn when the batch holds macro articles.
func DailyCharts(date string, ind models.Indicators, hasMacro bool) []ChartFile {
	var charts []ChartFile
	for _, kind := range chartKinds(hasMacro) {
		c := ChartFile{Kind: kind, Title: chartTitle(kind), Name: chartName(kind, date)}
		switch kind {
		case ChartArticles:
			c.SVG = ArticlesByCommodityChart(ind.Articles)
		case ChartSentiment:
			c.SVG = SentimentByCommodityChart(ind.Articles)
		case ChartMacro:
			c.SVG = MacroScoreChart(ind.Macro)
		}
		charts = append(charts, c)
	}
	return charts
}

// WriteCharts writes charts into dir and returns their paths.
func WriteCharts(dir string, charts []ChartFile) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating figure directory: %w", err)
	}
	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		p := filepath.Join(dir, c.Name)
		if err := os.WriteFile(p, []byte(c.SVG), 0o644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", c.Name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// ════════════════════════════════════════════════════════════════════
// SVG helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

func formatTick(v float64) string {
	if math.Abs(v-math.Round(v)) < 1e-9 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
