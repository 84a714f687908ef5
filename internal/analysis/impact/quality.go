package impact

import "strings"

// Source quality tiers, matched as lowercase URL substrings.
var (
	topTierSources = []string{
		"usda.gov", "fao.org", "igc.int", "ers.usda",
		"ec.europa.eu", "conab.gov.br", "noaa.gov", "ecmwf.int",
		"droughtmonitor.unl.edu", "climate.gov",
	}
	regionalSources = []string{
		".gov", ".gouv", ".gov.br", "agmanager.info",
		"kswheat.com", "kansasagconnection", "agroinformacion",
		"bolsadecereales", "news.agrofy.com.ar",
	}
)

const (
	qualityTopTier  = 1.0
	qualityRegional = 0.7
	qualityGeneric  = 0.5
	qualityNoURL    = 0.4
)

// SourceQuality rates an article URL between 0.4 (no URL) and 1.0
// (institutional source).
func SourceQuality(url string) float64 {
	u := strings.ToLower(url)
	switch {
	case containsAny(u, topTierSources):
		return qualityTopTier
	case containsAny(u, regionalSources):
		return qualityRegional
	case u != "":
		return qualityGeneric
	default:
		return qualityNoURL
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
