package engagement

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "giftist"

var (
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engagement",
			Name:      "notifications_total",
			Help:      "Notifications by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engagement",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per stage, evaluation through dispatch",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	runsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engagement",
			Name:      "runs_total",
			Help:      "Completed engine runs",
		},
	)

	candidatesEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engagement",
			Name:      "candidates_evaluated_total",
			Help:      "Recipients examined per stage",
		},
		[]string{"kind"},
	)
)

// Notification outcomes.
const (
	statusSent    = "sent"
	statusDeduped = "deduped"
	statusSkipped = "skipped"
	statusFailed  = "failed"
)

// recordNotification records one notification outcome.
func recordNotification(kind, status string) {
	notificationsTotal.WithLabelValues(kind, status).Inc()
}

// recordStageDuration records how long one stage took end to end.
func recordStageDuration(kind string, duration time.Duration) {
	stageDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// recordRun records one completed run.
func recordRun() {
	runsTotal.Inc()
}

// recordEvaluated records how many recipients a stage examined.
func recordEvaluated(kind string, count int) {
	candidatesEvaluated.WithLabelValues(kind).Add(float64(count))
}
