package models

// Theme buckets a macro (non commodity-specific) article.
type Theme string

const (
	ThemeWeather  Theme = "weather"
	ThemeFX       Theme = "fx"
	ThemeEnergy   Theme = "energy"
	ThemeShipping Theme = "shipping"
	ThemeOther    Theme = "other"
)

// Themes returns all themes in display order.
func Themes() []Theme {
	return []Theme{ThemeWeather, ThemeFX, ThemeEnergy, ThemeShipping, ThemeOther}
}

// Label returns a human readable theme name.
func (t Theme) Label() string {
	switch t {
	case ThemeWeather:
		return "Weather"
	case ThemeFX:
		return "Currencies (FX)"
	case ThemeEnergy:
		return "Energy"
	case ThemeShipping:
		return "Logistics / Shipping"
	default:
		return "Other factors"
	}
}

// MacroScoreLimit bounds FinalMacroScore on both sides.
const MacroScoreLimit = 5

// MacroScore is the composite macro indicator for one batch of macro articles.
type MacroScore struct {
	FinalMacroScore int `json:"final_macro_score"` // clamped to [-5, 5]
	Weather         int `json:"weather"`
	FX              int `json:"fx"`
	Energy          int `json:"energy"`
	Shipping        int `json:"shipping"`
	Other           int `json:"other"`
}

// ThemeScore returns the sub-score of a theme.
func (m MacroScore) ThemeScore(t Theme) int {
	switch t {
	case ThemeWeather:
		return m.Weather
	case ThemeFX:
		return m.FX
	case ThemeEnergy:
		return m.Energy
	case ThemeShipping:
		return m.Shipping
	default:
		return m.Other
	}
}

// Add accumulates delta into the bucket of theme t. FinalMacroScore is left
// untouched.
func (m *MacroScore) Add(t Theme, delta int) {
	switch t {
	case ThemeWeather:
		m.Weather += delta
	case ThemeFX:
		m.FX += delta
	case ThemeEnergy:
		m.Energy += delta
	case ThemeShipping:
		m.Shipping += delta
	default:
		m.Other += delta
	}
}

// RawTotal is the unclamped sum of all theme buckets.
func (m MacroScore) RawTotal() int {
	return m.Weather + m.FX + m.Energy + m.Shipping + m.Other
}
