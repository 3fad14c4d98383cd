package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Services accept a
// nil *Metrics, so tests can skip registration entirely.
type Metrics struct {
	DonationsCreated   prometheus.Counter
	DonationsCancelled prometheus.Counter
	DonationsExpired   prometheus.Counter

	ProposalsEmitted    prometheus.Counter
	MatchesCommitted    *prometheus.CounterVec
	MatchConflicts      prometheus.Counter
	MatchCommitDuration prometheus.Histogram

	DeliveryTransitions  *prometheus.CounterVec
	DeliveriesCompleted  prometheus.Counter
	InvalidTransitions   prometheus.Counter
	TransitionDuration   prometheus.Histogram
	NotificationsEmitted prometheus.Counter

	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	durationBuckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	return &Metrics{
		DonationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_donations_created_total",
			Help: "Total number of donations posted",
		}),
		DonationsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_donations_cancelled_total",
			Help: "Total number of donations cancelled by their donor",
		}),
		DonationsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_donations_expired_total",
			Help: "Total number of donations marked expired by the sweep",
		}),
		ProposalsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_match_proposals_total",
			Help: "Total number of auto-match proposals emitted",
		}),
		MatchesCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "foodbridge_matches_committed_total",
			Help: "Total number of committed matches by path (accept, change, claim)",
		}, []string{"path"}),
		MatchConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_match_conflicts_total",
			Help: "Total number of claim attempts that lost the exclusivity race",
		}),
		MatchCommitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "foodbridge_match_commit_duration_seconds",
			Help:    "Duration of match commit transactions",
			Buckets: durationBuckets,
		}),
		DeliveryTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "foodbridge_delivery_transitions_total",
			Help: "Total number of delivery state transitions by target status",
		}, []string{"to"}),
		DeliveriesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_deliveries_completed_total",
			Help: "Total number of deliveries reaching the delivered state",
		}),
		InvalidTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_invalid_transitions_total",
			Help: "Total number of rejected delivery transition attempts",
		}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "foodbridge_delivery_transition_duration_seconds",
			Help:    "Duration of delivery transition commits",
			Buckets: durationBuckets,
		}),
		NotificationsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "foodbridge_notifications_emitted_total",
			Help: "Total number of notifications emitted",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "foodbridge_http_request_duration_seconds",
			Help:    "HTTP request duration by route pattern and status class",
			Buckets: durationBuckets,
		}, []string{"route", "class"}),
	}
}
