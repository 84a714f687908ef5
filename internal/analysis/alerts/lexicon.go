package alerts

import "github.com/seenimoa/graintel/pkg/models"

// ------------------------------------------------------------------
// Risk lexicon. Keys are lowercase; translations of the same concept
// are separate entries so each language contributes its own tag.
// ------------------------------------------------------------------

var riskKeywords = map[string]int{
	// weather
	"drought": 3, "sécheresse": 3, "sequia": 3, "seca": 3,
	"frost": 3, "gel": 3, "helada": 3, "geada": 3,
	"hail": 2, "grêle": 2, "granizo": 2,
	"heatwave": 2, "canicule": 2, "ola de calor": 2, "onda de calor": 2,

	// logistics
	"port closed": 4, "port closure": 4, "puerto cerrado": 4, "porto fechado": 4,
	"strike": 3, "grève": 3, "huelga": 3, "greve": 3,
	"corridor": 2, "grain corridor": 3, "зерновой коридор": 3,
	"blockade": 4, "blocus": 4,

	// trade policy
	"export ban": 4, "export banne": 4,
	"export restriction": 3, "export taxes": 3,
	"quota": 2, "embargo": 4,

	// geopolitics
	"sanction": 3, "sanctions": 3, "санкции": 3,
	"attack": 3, "bombardment": 3, "drone": 2, "missile": 3,
	"strike on port": 4,

	// production
	"crop failure": 4, "harvest loss": 3, "poor yields": 3, "yield loss": 3,
	"pérte de rendimiento": 3, "perda de rendimento": 3,
}

// Categorical bonuses, +1 each.
var (
	bonusEventTypes = map[models.EventType]bool{
		models.EventWeather:    true,
		models.EventLogistics:  true,
		models.EventTrade:      true,
		models.EventPolitics:   true,
		models.EventStocks:     true,
		models.EventProduction: true,
	}
	bonusSourceGroups = map[string]bool{
		"geopolitics": true,
		"shipping":    true,
	}
)

// Severity thresholds (inclusive lower bounds).
const (
	criticalThreshold = 7
	watchThreshold    = 4
	infoThreshold     = 2
)
