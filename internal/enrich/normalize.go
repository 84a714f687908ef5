package enrich

import (
	"strings"

	"github.com/seenimoa/graintel/pkg/models"
)

// NormalizeCommodity maps a model answer (English or French) onto a
// commodity.
func NormalizeCommodity(raw string) models.Commodity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "wheat", "blé", "ble":
		return models.Wheat
	case "corn", "maïs", "mais", "maize":
		return models.Corn
	case "soy", "soja", "soybean", "soybeans":
		return models.Soy
	default:
		return models.CommodityOther
	}
}

var eventAliases = map[string]models.EventType{
	"weather":    models.EventWeather,
	"stocks":     models.EventStocks,
	"stock":      models.EventStocks,
	"production": models.EventProduction,
	"harvest":    models.EventProduction,
	"trade":      models.EventTrade,
	"commerce":   models.EventTrade,
	"politics":   models.EventPolitics,
	"policy":     models.EventPolitics,
	"logistics":  models.EventLogistics,
	"transport":  models.EventLogistics,
}

// eventSubstrings are tried in order when the answer is not an exact alias.
var eventSubstrings = []struct {
	event   models.EventType
	markers []string
}{
	{models.EventWeather, []string{"drought", "rain", "pluie", "sécheresse", "gel"}},
	{models.EventStocks, []string{"stock", "inventaire", "inventory"}},
	{models.EventProduction, []string{"récolte", "harvest", "yield", "production"}},
	{models.EventTrade, []string{"export", "import", "trade", "commerce"}},
	{models.EventPolitics, []string{"tax", "quota", "ban", "embargo", "policy", "gouvernement"}},
	{models.EventLogistics, []string{"port", "logistic", "logistique", "corridor", "freight"}},
}

// NormalizeEventType maps a free-form event label onto an event type.
func NormalizeEventType(raw string) models.EventType {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return models.EventOther
	}
	if et, ok := eventAliases[t]; ok {
		return et
	}
	for _, rule := range eventSubstrings {
		for _, m := range rule.markers {
			if strings.Contains(t, m) {
				return rule.event
			}
		}
	}
	return models.EventOther
}

// NormalizeSentiment maps a free-form price direction onto a sentiment.
// Bullish markers are checked first.
func NormalizeSentiment(raw string) models.Sentiment {
	t := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case t == "":
		return models.Neutral
	case strings.Contains(t, "bull"), strings.Contains(t, "hauss"), strings.Contains(t, "up"):
		return models.Bullish
	case strings.Contains(t, "bear"), strings.Contains(t, "baiss"), strings.Contains(t, "down"):
		return models.Bearish
	default:
		return models.Neutral
	}
}
