package models

import "strings"

// Commodity identifies the grain an article is about. Articles that are not
// about a specific grain (macro, FX, energy, shipping) carry CommodityOther.
type Commodity string

const (
	Wheat          Commodity = "wheat"
	Corn           Commodity = "corn"
	Soy            Commodity = "soy"
	CommodityOther Commodity = "other"
)

// Grains returns the tracked grains in display order.
func Grains() []Commodity {
	return []Commodity{Wheat, Corn, Soy}
}

// IsGrain reports whether c is one of the tracked grains.
func (c Commodity) IsGrain() bool {
	return c == Wheat || c == Corn || c == Soy
}

// Title returns the capitalized commodity name ("Wheat").
func (c Commodity) Title() string {
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseCommodity normalizes a raw commodity value. Unknown or empty values map
// to CommodityOther.
func ParseCommodity(raw string) Commodity {
	switch c := Commodity(strings.ToLower(strings.TrimSpace(raw))); c {
	case Wheat, Corn, Soy:
		return c
	default:
		return CommodityOther
	}
}

// FuturesTicker returns the CBOT front-month futures symbol used for price
// history (Yahoo Finance notation).
func (c Commodity) FuturesTicker() string {
	switch c {
	case Wheat:
		return "ZW=F"
	case Corn:
		return "ZC=F"
	case Soy:
		return "ZS=F"
	default:
		return ""
	}
}

