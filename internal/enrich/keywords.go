package enrich

import "strings"

// Text caps applied before a prompt is built.
const (
	maxRelevantChars = 6000
	maxFallbackChars = 3000
)

// relevanceKeywords select the paragraphs worth sending to the model. They
// cover grains, agronomy, weather, logistics, demand, crop disease, farm
// policy and the macro drivers, in the languages of the main producers.
var relevanceKeywords = []string{
	// wheat
	"wheat", "blé", "ble", "trigo", "trigueros", "trigal", "trigo duro",
	"trigo de invierno", "trigo de primavera", "trigo argentino",
	"trigo brasileiro", "пшеница", "пшениця", "小麦",
	// corn
	"corn", "maïs", "mais", "maiz", "maíz", "maicero",
	"milho", "safrinha", "milho safrinha", "пшено", "кукуруза", "кукурудза",
	"玉米",
	// soy
	"soy", "soja", "soya", "soybean", "soybeans",
	"soja argentina", "soja brasileira",
	"соевые", "соја", "大豆",
	// grains in general
	"grain", "grains", "céréale", "cereale", "cereal", "cereais",
	"cultivos", "culturas", "зерно", "穀物", "粮食",

	"harvest", "récolte", "cosecha", "colheita",
	"yield", "rendement", "rinde",
	"planting", "seeding", "siembra", "sementes", "plantio",
	"acreage", "hectares", "superficie",

	"drought", "sécheresse", "sequia", "seca",
	"rain", "pluie", "lluvia", "chuva",
	"floods", "inondations", "inundaciones", "enchentes",
	"frost", "gel", "helada", "geada",
	"heatwave", "canicule", "ola de calor", "onda de calor",
	"ENSO", "El Niño", "La Niña",

	"export", "import", "exportación", "importación",
	"exportação", "importação",
	"ports", "puerto", "porto",
	"embarcaciones", "navios", "ships",
	"freight", "fret", "flete", "fretamento",
	"corridor", "corredor marítimo", "зерновий коридор",
	"судно", "港口", "航运",

	"stocks", "stock", "inventories", "inventario", "estoques",
	"demand", "demande", "demanda",
	"supply", "offre", "oferta",

	"locusts", "langosta", "gafanhoto",
	"plaga", "praga", "fungus", "roya", "ferrugem asiática",
	"spodoptera", "lagarta militar",
	"black rust", "stem rust", "roya negra",

	"tariff", "duty", "tax", "quota",
	"arancel", "impuesto", "tasa",
	"tarifa", "subsídio", "subsidio",
	"embargo", "ban", "prohibición",
	"санкции", "制裁",

	"fuel", "diesel", "ethanol",
	"gasoline", "biofuel", "biodiesel",
	"crude oil", "Brent", "WTI",
	"FX", "currency", "ARS", "BRL", "UAH", "RUB",
	"inflation", "interest rate", "policy rate",
}

var lowerKeywords = func() []string {
	out := make([]string, len(relevanceKeywords))
	for i, k := range relevanceKeywords {
		out[i] = strings.ToLower(k)
	}
	return out
}()

// FilterRelevantText keeps the non-empty lines of raw that mention a
// keyword, joined by spaces and capped at 6000 characters. When no line
// matches, the first 3000 characters of raw are returned instead.
func FilterRelevantText(raw string) string {
	if raw == "" {
		return ""
	}

	var selected []string
	for _, line := range strings.Split(raw, "\n") {
		p := strings.TrimSpace(line)
		if p == "" {
			continue
		}
		lp := strings.ToLower(p)
		for _, k := range lowerKeywords {
			if strings.Contains(lp, k) {
				selected = append(selected, p)
				break
			}
		}
	}

	if len(selected) > 0 {
		return truncateRunes(strings.Join(selected, " "), maxRelevantChars)
	}
	return truncateRunes(raw, maxFallbackChars)
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
