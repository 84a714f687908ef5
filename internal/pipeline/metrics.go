package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/seenimoa/graintel/pkg/models"
)

var (
	// RunsTotal counts daily runs by outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graintel",
			Name:      "pipeline_runs_total",
			Help:      "Total number of daily pipeline runs",
		},
		[]string{"status"},
	)

	// RunDuration measures a full daily run.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "graintel",
			Name:      "pipeline_run_duration_seconds",
			Help:      "Duration of daily pipeline runs in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	// ArticlesTotal counts articles leaving each stage.
	ArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graintel",
			Name:      "pipeline_articles_total",
			Help:      "Articles processed per pipeline stage",
		},
		[]string{"stage"},
	)

	// SourceFailuresTotal counts sources that could not be fetched.
	SourceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "graintel",
			Name:      "source_failures_total",
			Help:      "Total number of failed source fetches",
		},
	)

	// AlertsTotal counts scored articles by alert severity.
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graintel",
			Name:      "alerts_total",
			Help:      "Scored articles by alert severity",
		},
		[]string{"severity"},
	)

	// MacroScore is the final macro indicator of the last run.
	MacroScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "graintel",
			Name:      "macro_score",
			Help:      "Final macro-grains score of the last successful run",
		},
	)

	// LastSuccess is the unix time of the last successful run.
	LastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "graintel",
			Name:      "pipeline_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful pipeline run",
		},
	)
)

// Stage labels of ArticlesTotal.
const (
	StageFetched  = "fetched"
	StageRecent   = "recent"
	StageEnriched = "enriched"
	StageFallback = "fallback"
	StageSaved    = "saved"
)

func recordStage(stage string, n int) {
	ArticlesTotal.WithLabelValues(stage).Add(float64(n))
}

func recordIndicators(ind models.Indicators) {
	for _, a := range ind.Articles {
		AlertsTotal.WithLabelValues(string(a.AlertSeverity)).Inc()
	}
	MacroScore.Set(float64(ind.Macro.FinalMacroScore))
}
