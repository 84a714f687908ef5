package sentiment

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/seenimoa/graintel/pkg/models"
)

// ------------------------------------------------------------------
// Keyword-based grain classifier (offline, no LLM needed).
// When an LLM backend is configured the enrichment stage uses it
// instead; this package provides a deterministic fallback and the
// per-article sentiment score.
// ------------------------------------------------------------------

// bullish / bearish keyword dictionaries (lowercase). Bullish means
// supportive for prices: supply shocks, strong demand.
var bullishWords = map[string]float64{
	"drought": 0.7, "sécheresse": 0.7, "sequía": 0.7, "seca": 0.5,
	"frost": 0.6, "heatwave": 0.5, "crop failure": 0.8, "yield loss": 0.6,
	"export ban": 0.7, "export restriction": 0.6, "port closed": 0.6,
	"strong demand": 0.6, "record exports": 0.5, "stocks fall": 0.6,
	"lower production": 0.6, "downgrade": 0.4, "rally": 0.6,
	"hausse": 0.5, "alza": 0.5, "prices rise": 0.6,
	"tight supply": 0.6, "shortfall": 0.6,
}

var bearishWords = map[string]float64{
	"record harvest": 0.7, "record crop": 0.7, "bumper": 0.7,
	"rain relief": 0.5, "favorable weather": 0.5, "good rains": 0.5,
	"weak demand": 0.6, "stocks rise": 0.6, "higher production": 0.6,
	"ample supply": 0.6, "glut": 0.7, "surplus": 0.5, "upgrade": 0.4,
	"corridor reopens": 0.5, "ban lifted": 0.6, "selloff": 0.6,
	"baisse": 0.5, "caída": 0.5, "queda": 0.5, "prices fall": 0.6,
	"cancellations": 0.4,
}

// commodityWords detect the grain an article is about.
var commodityWords = map[models.Commodity][]string{
	models.Wheat: {"wheat", "blé", "trigo", "пшениц", "小麦"},
	models.Corn:  {"corn", "maize", "maïs", "maíz", "maiz", "milho", "safrinha", "кукуруз", "玉米"},
	models.Soy:   {"soy", "soja", "soya", "соев", "大豆"},
}

// eventWords map event types to trigger words, scanned in eventOrder.
// Short words carry a leading space so "grain" does not match "rain".
var eventWords = map[models.EventType][]string{
	models.EventWeather:    {"drought", " rain", "frost", "heatwave", "heat stress", "sécheresse", "pluie", "lluvia", "chuva", "sequía", "el niño", "la niña"},
	models.EventStocks:     {"stocks", "inventor", "stocks-to-use", "ending stocks", "estoques"},
	models.EventProduction: {"harvest", "yield", "acreage", "planting", "récolte", "cosecha", "colheita", "production"},
	models.EventTrade:      {"export", "import", "shipment", "tender", "exportación", "exportação"},
	models.EventPolitics:   {"tax", "quota", " ban", "embargo", "sanction", "government", "tariff", "policy"},
	models.EventLogistics:  {" port", "freight", "corridor", "vessel", "shipping", "barge", "logistic"},
}

var eventOrder = []models.EventType{
	models.EventWeather, models.EventStocks, models.EventProduction,
	models.EventTrade, models.EventPolitics, models.EventLogistics,
}

// ScoreText returns a sentiment score for a piece of text.
// Score ranges from -1.0 (very bearish) to +1.0 (very bullish).
func ScoreText(text string) (score float64, confidence float64) {
	lower := strings.ToLower(text)

	bullScore := 0.0
	bearScore := 0.0
	matches := 0

	for word, weight := range bullishWords {
		if strings.Contains(lower, word) {
			bullScore += weight
			matches++
		}
	}

	for word, weight := range bearishWords {
		if strings.Contains(lower, word) {
			bearScore += weight
			matches++
		}
	}

	if matches == 0 {
		return 0, 0.1 // no signal
	}

	total := bullScore + bearScore
	if total == 0 {
		return 0, 0.1
	}

	// Net score normalized to -1..+1.
	score = (bullScore - bearScore) / total

	// Confidence based on number of keyword matches.
	confidence = math.Min(float64(matches)*0.15+0.2, 0.85)

	return score, confidence
}

// Classification is the offline stand-in for the LLM extraction.
type Classification struct {
	Commodity  models.Commodity
	EventType  models.EventType
	Sentiment  models.Sentiment
	Score      float64
	Confidence float64
}

// ClassifyText guesses commodity, event type and sentiment from raw text.
// The grain with the most keyword hits wins; ties and no hits give other.
func ClassifyText(text string) Classification {
	lower := strings.ToLower(text)

	best := models.CommodityOther
	bestHits := 0
	tie := false
	for _, c := range models.Grains() {
		hits := 0
		for _, w := range commodityWords[c] {
			hits += strings.Count(lower, w)
		}
		switch {
		case hits > bestHits:
			best, bestHits, tie = c, hits, false
		case hits == bestHits && hits > 0:
			tie = true
		}
	}
	if tie {
		best = models.CommodityOther
	}

	event := models.EventOther
	for _, et := range eventOrder {
		if containsAny(lower, eventWords[et]) {
			event = et
			break
		}
	}

	score, conf := ScoreText(text)
	s := models.Neutral
	switch {
	case score > 0.2:
		s = models.Bullish
	case score < -0.2:
		s = models.Bearish
	}

	return Classification{
		Commodity:  best,
		EventType:  event,
		Sentiment:  s,
		Score:      score,
		Confidence: conf,
	}
}

// Score maps a sentiment to +1 (bullish), -1 (bearish) or 0.
func Score(s models.Sentiment) int {
	return s.Polarity()
}

// ScoreArticle returns a copy of a with SentimentScore set.
func ScoreArticle(a models.ArticleRecord) models.ArticleRecord {
	a.SentimentScore = Score(a.Sentiment)
	return a
}

// NetScore sums sentiment polarity over articles.
func NetScore(articles []models.ArticleRecord) int {
	net := 0
	for _, a := range articles {
		net += a.Sentiment.Polarity()
	}
	return net
}

// BiasLabel formats a net sentiment score as a market bias.
func BiasLabel(score int) string {
	switch {
	case score > 0:
		return fmt.Sprintf("Bullish (score %d)", score)
	case score < 0:
		return fmt.Sprintf("Bearish (score %d)", score)
	default:
		return fmt.Sprintf("Neutral (score %d)", score)
	}
}

// CommodityStat is the article count and mean polarity of one commodity.
type CommodityStat struct {
	Commodity models.Commodity
	Count     int
	Mean      float64
}

// ByCommodity aggregates articles per commodity, sorted by commodity name.
func ByCommodity(articles []models.ArticleRecord) []CommodityStat {
	sums := make(map[models.Commodity]int)
	counts := make(map[models.Commodity]int)
	for _, a := range articles {
		c := models.ParseCommodity(string(a.Commodity))
		sums[c] += a.Sentiment.Polarity()
		counts[c]++
	}

	out := make([]CommodityStat, 0, len(counts))
	for c, n := range counts {
		out = append(out, CommodityStat{Commodity: c, Count: n, Mean: float64(sums[c]) / float64(n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Commodity < out[j].Commodity })
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
