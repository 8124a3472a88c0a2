package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	runsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "traveldesk",
			Name:      "runs_completed_total",
			Help:      "Count of reconciliation runs by result.",
		},
		[]string{"result"},
	)

	memberFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "traveldesk",
			Name:      "member_failures_total",
			Help:      "Count of cast members whose reconciliation failed.",
		},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "traveldesk",
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	importedAssignments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "traveldesk",
			Name:      "imported_assignments_total",
			Help:      "Count of assignment rows read from schedule workbooks.",
		},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "traveldesk",
			Name:      "cache_lookups_total",
			Help:      "Count of reconciliation cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(runsCompleted, memberFailures, runDuration, importedAssignments, cacheLookups)
	})
}

func IncRunCompleted(result string) {
	runsCompleted.WithLabelValues(result).Inc()
}

func AddMemberFailures(n int) {
	memberFailures.Add(float64(n))
}

func ObserveRunDuration(d time.Duration) {
	runDuration.Observe(d.Seconds())
}

func AddImportedAssignments(n int) {
	importedAssignments.Add(float64(n))
}

func IncCacheLookup(outcome string) {
	cacheLookups.WithLabelValues(outcome).Inc()
}
