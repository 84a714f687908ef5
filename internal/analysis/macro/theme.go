// Package macro classifies non grain-specific articles into themes and
// aggregates their sentiment into the composite macro indicator.
package macro

import (
	"strings"

	"github.com/seenimoa/graintel/pkg/models"
)

// themeRule assigns theme when the event type matches or the lowercased URL
// contains any of the markers.
type themeRule struct {
	theme     models.Theme
	eventType models.EventType // "" = no event type trigger
	markers   []string
}

// Evaluated in order; the first matching rule wins.
var themeRules = []themeRule{
	{
		theme:     models.ThemeWeather,
		eventType: models.EventWeather,
		markers:   []string{"noaa", "droughtmonitor", "ecmwf", "climate.gov"},
	},
	{
		theme:   models.ThemeFX,
		markers: []string{"currencies/usd", "dollar-index", "usd-brl", "usd-ars"},
	},
	{
		theme:   models.ThemeEnergy,
		markers: []string{"brent-oil", "eia.gov", "energy"},
	},
	{
		theme:     models.ThemeShipping,
		eventType: models.EventLogistics,
		markers:   []string{"splash247", "blackseagrain", "baltic"},
	},
}

func (r themeRule) matches(et models.EventType, url string) bool {
	if r.eventType != "" && et == r.eventType {
		return true
	}
	for _, m := range r.markers {
		if strings.Contains(url, m) {
			return true
		}
	}
	return false
}

// ClassifyTheme assigns a macro article to exactly one theme.
func ClassifyTheme(a models.ArticleRecord) models.Theme {
	et := models.ParseEventType(string(a.EventType))
	url := strings.ToLower(a.URL)
	for _, r := range themeRules {
		if r.matches(et, url) {
			return r.theme
		}
	}
	return models.ThemeOther
}
