package report

// MarkdownTemplate renders the daily report (text/template over Data).
const MarkdownTemplate = `# Daily Grain Intelligence Report — {{.Date}}

_Generated {{.GeneratedAt}} from {{.ArticleCount}} articles._

## 🧭 Macro-Grains Indicator

- **Global score**: {{.Macro.FinalMacroScore}} / {{.MacroLimit}}
- **Weather**: {{.Macro.Weather}}
- **Currencies (FX)**: {{.Macro.FX}}
- **Energy**: {{.Macro.Energy}}
- **Logistics / Shipping**: {{.Macro.Shipping}}
- **Other factors**: {{.Macro.Other}}
{{if .Charts}}
## 📊 Charts of the day
{{range .Charts}}
### {{.Title}}

![{{.Title}}]({{.Link}})
{{end}}{{end}}
## 🔔 Alerts of the day
{{if not .Alerts}}
_No significant alert today._
{{else}}{{range .Alerts}}
### [{{.Severity}}] {{.Title}}
{{if .URL}}
[Link]({{.URL}})
{{end}}
- Commodity: **{{.Commodity}}**
- Type: **{{.EventType}}**
- Alert score: **{{.Score}}**
{{- if .Tags}}
- Risk keywords: ` + "`{{.Tags}}`" + `
{{- end}}
{{if .Summary}}
> {{.Summary}}
{{end}}{{end}}{{end}}
{{- range .Commodities}}
## {{.Name}}

**Market bias (LLM):** {{.Bias}}
{{with .Impact}}
### Quantified price impact

{{if .Neutral}}- Overall signal: **neutral** (no significant price impact detected)
{{else}}- Short term (1-3 days): **{{.ShortTerm}}**
- Medium term (7-20 days): **{{.MediumTerm}}**
{{end}}- Signal confidence: **{{.Confidence}}**
{{end}}
**Analytical summary:**
{{range .Analyses}}- {{.}}
{{else}}- No analysis available.
{{end}}
{{- if .Impacts}}
**Price impact (LLM narrative):**
{{range .Impacts}}- {{.}}
{{end}}{{end}}
{{- if .Risks}}
**Key risks:**
{{range .Risks}}- {{.}}
{{end}}{{end}}
{{- if .Outlooks}}
**Short-term outlook:**
{{range .Outlooks}}- {{.}}
{{end}}{{end}}
**Sources:**
{{range .Sources}}{{template "source" .}}
{{end}}{{end}}
{{- if .Themes}}
## Macro market (all grains)

**Macro scores by theme:**
{{range .Themes}}- {{.Label}}: score **{{.Score}}** (from {{.Count}} news)
{{end}}{{range .Themes}}
### {{.Label}}
{{if .Analyses}}
**Analytical summary:**
{{range .Analyses}}- {{.}}
{{end}}{{end}}
{{- if .Impacts}}
**Price impact:**
{{range .Impacts}}- {{.}}
{{end}}{{end}}
{{- if .Outlooks}}
**Short-term outlook:**
{{range .Outlooks}}- {{.}}
{{end}}{{end}}
**Sources:**
{{range .Sources}}{{template "source" .}}
{{end}}{{end}}{{end}}
{{- with .Backtest}}
## 📈 Backtest: historical signal performance
{{if .Empty}}
_Not enough signal history matched with prices yet._
{{else}}
- Total backtested signals: **{{.NSignals}}**
- Mean {{.ForwardDays}}-day return: **{{.Mean}}**
{{- if .Bullish}}
- **Bullish** signals: {{.BullishN}} | mean return: **{{.Bullish}}**
{{- end}}
{{- if .Bearish}}
- **Bearish** signals: {{.BearishN}} | mean return: **{{.Bearish}}**
{{- end}}
{{- if .HitRate}}
- Directional hit rate: **{{.HitRate}}**
{{- end}}
{{if .Rows}}
### Per commodity
{{range .Rows}}
**{{.Name}}**:
- N signals: {{.NSignals}}
- Mean return: **{{.Mean}}**
{{- if .Bullish}}
- Bullish ({{.BullishN}}): **{{.Bullish}}**
{{- end}}
{{- if .Bearish}}
- Bearish ({{.BearishN}}): **{{.Bearish}}**
{{- end}}
{{end}}{{end}}{{end}}{{end}}`

// sourceTemplate renders one source bullet.
const sourceTemplate = `{{define "source"}}{{if .URL}}- [{{.Title}}]({{.URL}}){{else}}- {{.Title}}{{end}}{{end}}`

// PageTemplate wraps the rendered Markdown into a standalone HTML page
// (html/template; Body is trusted goldmark output).
const PageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1, h2, h3, h4 { font-weight: 600; }
  h1 { font-size: 1.5rem; color: var(--accent); border-bottom: 3px solid var(--accent); padding-bottom: 12px; }
  h2 { font-size: 1.2rem; margin: 28px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  h3 { font-size: 1rem; margin: 16px 0 8px; }
  ul { padding-left: 22px; }
  li { margin: 2px 0; }
  blockquote {
    margin: 8px 0;
    padding: 8px 14px;
    background: var(--section-bg);
    border-left: 4px solid var(--border);
    color: var(--muted);
  }
  code { background: var(--section-bg); padding: 1px 4px; border-radius: 3px; font-size: 0.85rem; }
  img { max-width: 100%; border: 1px solid var(--border); border-radius: 6px; }
  a { color: var(--accent); text-decoration: none; }
  a:hover { text-decoration: underline; }
  .footer {
    margin-top: 32px;
    padding-top: 12px;
    border-top: 1px solid var(--border);
    color: var(--muted);
    font-size: 0.8rem;
    text-align: center;
  }
</style>
</head>
<body>
{{.Body}}
<div class="footer">Generated {{.GeneratedAt}}. Automated news digest, not trading advice.</div>
</body>
</html>
`
