package enrich

import "strings"

// SystemPrompt frames the model as a grains desk analyst.
const SystemPrompt = "You are an expert agricultural commodity analyst focused on grains (wheat, corn, soybeans)."

// promptTemplate is filled with the filtered article text at {TEXT}.
const promptTemplate = `You are a grains analyst (wheat, corn, soybeans) on a trading desk.

Your task:
- Read the text below (news, report, analysis).
- Identify the grain mainly concerned.
- Identify the type of event.
- Assess the impact on PRICES (bullish, bearish, neutral).
- Produce a STRUCTURED MARKET ANALYSIS:
    - main analysis (4 to 7 sentences),
    - price impact (1 to 2 sentences),
    - main risks (list),
    - short-term outlook (1 to 2 sentences).

RETURN ONLY STRICT JSON with the following structure:

{
  "commodity": "wheat | corn | soy | other",
  "event_type": "weather | stocks | production | trade | politics | logistics | other",
  "sentiment": "bullish | bearish | neutral",
  "analysis": "Detailed market-oriented analysis, 4 to 7 sentences",
  "impact": "Short-term price impact, 1 to 2 sentences",
  "risks": ["risk 1", "risk 2"],
  "outlook": "Short-term price outlook, 1 to 2 sentences"
}

Rules:
- "commodity":
    - wheat -> "wheat"
    - corn / maize -> "corn"
    - soybeans -> "soy"
    - otherwise -> "other"
- "event_type":
    - weather, drought, rains, frost -> "weather"
    - stocks, inventories, stocks-to-use -> "stocks"
    - harvest, yield, acreage, production -> "production"
    - exports, imports, trade flows -> "trade"
    - government decisions, taxes, quotas, embargoes -> "politics"
    - ports, logistics, transport, corridor, freight -> "logistics"
    - otherwise -> "other"
- "sentiment" = impact on the PRICE of the main grain:
    - rising -> "bullish"
    - falling -> "bearish"
    - neutral or unclear -> "neutral"

Answer ONLY with the JSON, no text before or after.

Text:
{TEXT}
`

// BuildPrompt returns the user prompt for an already filtered text.
func BuildPrompt(text string) string {
	return strings.Replace(promptTemplate, "{TEXT}", text, 1)
}
