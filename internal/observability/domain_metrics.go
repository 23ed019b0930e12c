package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	scrapesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgpulse_scrapes_total",
			Help: "Total number of statistics collection rounds.",
		},
	)
	scrapeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgpulse_scrape_duration_seconds",
			Help:    "Duration of one statistics collection round.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
	fetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgpulse_fetch_failures_total",
			Help: "Total number of failed statistic fetches, collapsed to the 0 sentinel.",
		},
		[]string{"stat"},
	)
	resetsDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgpulse_stat_resets_detected_total",
			Help: "Total number of inferred pg_stat_reset events per tracked counter.",
		},
		[]string{"stat"},
	)
	archiveRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgpulse_archive_runs_total",
			Help: "Total number of snapshot archive runs by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		scrapesTotal,
		scrapeDurationSeconds,
		fetchFailuresTotal,
		resetsDetectedTotal,
		archiveRunsTotal,
	)
}

func ObserveScrape(elapsed time.Duration) {
	scrapesTotal.Inc()
	scrapeDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementFetchFailure(stat string) {
	fetchFailuresTotal.WithLabelValues(stat).Inc()
}

func IncrementResetDetected(stat string) {
	resetsDetectedTotal.WithLabelValues(stat).Inc()
}

func ObserveArchiveRun(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	archiveRunsTotal.WithLabelValues(outcome).Inc()
}
