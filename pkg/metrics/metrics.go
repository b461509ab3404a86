// Package metrics provides Prometheus metrics for reconciliation runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DealsIngestedTotal tracks deals kept per pipeline stage
	DealsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "ingest",
			Name:      "deals_total",
			Help:      "Total number of deals ingested by pipeline stage",
		},
		[]string{"stage"},
	)

	// DealsSkippedTotal tracks deals excluded before matching
	DealsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "ingest",
			Name:      "deals_skipped_total",
			Help:      "Total number of deals skipped by reason",
		},
		[]string{"reason"},
	)

	// LinkResultsTotal tracks linker outcomes per pipeline pair
	LinkResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "link_results_total",
			Help:      "Total number of linker outcomes by pipeline pair and result",
		},
		[]string{"pair", "result"},
	)

	// MatchScore tracks accepted match scores
	MatchScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "match_score",
			Help:      "Score of accepted matches",
			Buckets:   []float64{60, 65, 70, 75, 80, 90, 100, 115},
		},
		[]string{"pair"},
	)

	// OrderGroupsTotal tracks built order groups by kind
	OrderGroupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "grouping",
			Name:      "order_groups_total",
			Help:      "Total number of order groups by kind",
		},
		[]string{"kind"},
	)

	// ContactsTotal tracks materialized contacts by match method
	ContactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "clustering",
			Name:      "contacts_total",
			Help:      "Total number of contacts by match method",
		},
		[]string{"match_method"},
	)

	// RematchSuggestionsTotal tracks second pass recommendations
	RematchSuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "rematch",
			Name:      "suggestions_total",
			Help:      "Total number of rematch suggestions by recommendation",
		},
		[]string{"recommendation", "conflict"},
	)

	// RunDuration tracks full reconciliation run duration in seconds
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "processor",
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

// RecordIngest records the kept deal count of one stage
func RecordIngest(stage string, count int) {
	DealsIngestedTotal.WithLabelValues(stage).Add(float64(count))
}

// RecordSkipped records deals skipped for a reason
func RecordSkipped(reason string, count int) {
	if count == 0 {
		return
	}
	DealsSkippedTotal.WithLabelValues(reason).Add(float64(count))
}

// RecordLink records the outcome of one linking pass
func RecordLink(pair string, matched, unmatchedSources int, scores []float64) {
	LinkResultsTotal.WithLabelValues(pair, "matched").Add(float64(matched))
	LinkResultsTotal.WithLabelValues(pair, "unmatched").Add(float64(unmatchedSources))
	for _, s := range scores {
		MatchScore.WithLabelValues(pair).Observe(s)
	}
}

// RecordOrderGroup records one built order group
func RecordOrderGroup(kind string) {
	OrderGroupsTotal.WithLabelValues(kind).Inc()
}

// RecordContact records one materialized contact
func RecordContact(matchMethod string) {
	ContactsTotal.WithLabelValues(matchMethod).Inc()
}

// RecordRematch records one rematch suggestion
func RecordRematch(recommendation string, conflict bool) {
	c := "false"
	if conflict {
		c = "true"
	}
	RematchSuggestionsTotal.WithLabelValues(recommendation, c).Inc()
}

// RecordRun records a run duration
func RecordRun(durationSeconds float64) {
	RunDuration.Observe(durationSeconds)
}

// WriteTextfile writes every registered metric to path in the Prometheus text format,
// for pickup by a node exporter textfile collector
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
