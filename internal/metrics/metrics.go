package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors
type Metrics struct {
	VotesSubmitted       *prometheus.CounterVec
	NotificationsCreated *prometheus.CounterVec
	FanoutFailures       *prometheus.CounterVec
	NotificationsRead    *prometheus.CounterVec
	FeedGenerationTime   *prometheus.HistogramVec
	HTTPRequestsTotal    *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide collectors, registering them on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			VotesSubmitted: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pinboard_votes_submitted_total",
					Help: "Votes written to the ledger",
				},
				[]string{"entity_type", "value"},
			),
			NotificationsCreated: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pinboard_notifications_created_total",
					Help: "Notifications created by fan-out",
				},
				[]string{"type"},
			),
			FanoutFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pinboard_notification_fanout_failures_total",
					Help: "Notification inserts rolled back without failing the primary write",
				},
				[]string{"type"},
			),
			NotificationsRead: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pinboard_notifications_marked_read_total",
					Help: "Notifications and messages transitioned to read",
				},
				[]string{"kind"},
			),
			FeedGenerationTime: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pinboard_feed_generation_seconds",
					Help:    "Time to load and rank a feed",
					Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
				},
				[]string{"scope", "sort"},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pinboard_http_requests_total",
					Help: "HTTP requests by route and status",
				},
				[]string{"method", "path", "status"},
			),
		}
	})
	return instance
}
