package macro

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seenimoa/graintel/pkg/models"
)

func TestClassifyTheme(t *testing.T) {
	tests := []struct {
		name string
		url  string
		et   models.EventType
		want models.Theme
	}{
		{"weather event", "https://example.com/x", models.EventWeather, models.ThemeWeather},
		{"noaa url", "https://www.cpc.NOAA.gov/outlook", models.EventOther, models.ThemeWeather},
		{"drought monitor", "https://droughtmonitor.unl.edu/", "", models.ThemeWeather},
		{"fx url", "https://www.investing.com/currencies/usd-brl", models.EventTrade, models.ThemeFX},
		{"dollar index", "https://example.com/dollar-index-today", "", models.ThemeFX},
		{"energy url", "https://www.eia.gov/petroleum", "", models.ThemeEnergy},
		{"brent", "https://www.investing.com/commodities/brent-oil", "", models.ThemeEnergy},
		{"logistics event", "https://example.com/", models.EventLogistics, models.ThemeShipping},
		{"baltic url", "https://www.balticexchange.com/", "", models.ThemeShipping},
		{"splash", "https://splash247.com/dry-bulk", models.EventTrade, models.ThemeShipping},
		{"nothing", "https://example.com/", models.EventPolitics, models.ThemeOther},
		{"empty", "", "", models.ThemeOther},
		// weather rule is checked before energy
		{"weather beats energy", "https://climate.gov/energy", "", models.ThemeWeather},
		// fx rule is checked before shipping
		{"fx beats logistics", "https://x.com/usd-ars", models.EventLogistics, models.ThemeFX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTheme(models.ArticleRecord{URL: tt.url, EventType: tt.et})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeScoreWeatherAndFX(t *testing.T) {
	got := ComputeScore([]models.ArticleRecord{
		{EventType: models.EventWeather, Sentiment: models.Bullish},
		{URL: "https://x.com/currencies/usd-index", Sentiment: models.Bearish},
	})
	assert.Equal(t, models.MacroScore{Weather: 1, FX: -1}, got)
	assert.Zero(t, got.FinalMacroScore)
}

func TestComputeScoreEmpty(t *testing.T) {
	assert.Equal(t, models.MacroScore{}, ComputeScore(nil))
}

func TestComputeScoreClamps(t *testing.T) {
	var batch []models.ArticleRecord
	for i := 0; i < 8; i++ {
		batch = append(batch, models.ArticleRecord{EventType: models.EventWeather, Sentiment: models.Bearish})
	}
	batch = append(batch, models.ArticleRecord{URL: "https://eia.gov", Sentiment: models.Bearish})

	got := ComputeScore(batch)
	assert.Equal(t, -8, got.Weather)
	assert.Equal(t, -1, got.Energy)
	assert.Equal(t, -5, got.FinalMacroScore)

	for i := range batch {
		batch[i].Sentiment = models.Bullish
	}
	assert.Equal(t, 5, ComputeScore(batch).FinalMacroScore)
}

func TestComputeScoreIsPermutationInvariant(t *testing.T) {
	batch := []models.ArticleRecord{
		{EventType: models.EventWeather, Sentiment: models.Bullish},
		{URL: "https://eia.gov/a", Sentiment: models.Bearish},
		{URL: "https://splash247.com/b", Sentiment: models.Bullish},
		{URL: "https://x.com/usd-brl", Sentiment: models.Bullish},
		{URL: "https://x.com/other", Sentiment: models.Bearish},
		{URL: "https://x.com/other", Sentiment: models.Neutral},
		{EventType: models.EventLogistics, Sentiment: "garbage"},
	}
	want := ComputeScore(batch)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]models.ArticleRecord(nil), batch...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, ComputeScore(shuffled))
	}
}

func TestSentimentScore(t *testing.T) {
	assert.Equal(t, 1, SentimentScore(models.Bullish))
	assert.Equal(t, -1, SentimentScore("Bearish"))
	assert.Equal(t, 0, SentimentScore(models.Neutral))
	assert.Equal(t, 0, SentimentScore(""))
}

func TestSelectMacro(t *testing.T) {
	got := SelectMacro([]models.ArticleRecord{
		{URL: "a", Commodity: models.Wheat},
		{URL: "b", Commodity: models.CommodityOther},
		{URL: "c", Commodity: "barley"},
		{URL: "d", Commodity: models.Soy},
	})
	assert.Len(t, got, 2)
	assert.Equal(t, "b", got[0].URL)
	assert.Equal(t, "c", got[1].URL)
}

func TestCountByTheme(t *testing.T) {
	got := CountByTheme([]models.ArticleRecord{
		{EventType: models.EventWeather},
		{EventType: models.EventWeather},
		{URL: "https://baltic.example"},
	})
	assert.Equal(t, map[models.Theme]int{models.ThemeWeather: 2, models.ThemeShipping: 1}, got)
}
