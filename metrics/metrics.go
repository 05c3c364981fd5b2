package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/use-agent/steel-scraper/models"
)

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeMalformed = "malformed"
)

var (
	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steel_scrapes_total",
			Help: "Total number of visit requests by outcome and error kind.",
		},
		[]string{"outcome", "kind"},
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "steel_scrape_duration_seconds",
			Help:    "Duration of visit requests, remote call included.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	TruncationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steel_truncations_total",
			Help: "Total number of results cut to the length budget.",
		},
		[]string{"format"},
	)

	QualityWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steel_quality_warnings_total",
			Help: "Total number of content quality warnings emitted.",
		},
		[]string{"format"},
	)

	HealthChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steel_health_checks_total",
			Help: "Total number of remote health probes by result.",
		},
		[]string{"result"},
	)
)

// ObserveScrape records one finished visit. kind is empty on success.
func ObserveScrape(outcome string, kind models.ErrorKind, d time.Duration) {
	ScrapesTotal.WithLabelValues(outcome, string(kind)).Inc()
	ScrapeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveContent records truncation and warnings for a successful visit.
func ObserveContent(format models.Format, truncated bool, warnings int) {
	label := FormatLabel(format)
	if truncated {
		TruncationsTotal.WithLabelValues(label).Inc()
	}
	if warnings > 0 {
		QualityWarningsTotal.WithLabelValues(label).Add(float64(warnings))
	}
}

// FormatLabel bounds the format label to the known formats plus "other".
func FormatLabel(format models.Format) string {
	for _, f := range models.Formats() {
		if f == format {
			return string(f)
		}
	}
	return "other"
}

// ObserveHealth records a health probe result.
func ObserveHealth(healthy bool) {
	result := "down"
	if healthy {
		result = "up"
	}
	HealthChecksTotal.WithLabelValues(result).Inc()
}
