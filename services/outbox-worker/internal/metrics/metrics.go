package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OutboxSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_outbox_sent_total",
		Help: "Fulfillment events published to the broker",
	})
	OutboxPublishErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_outbox_publish_errors_total",
		Help: "Publish attempts that failed and were rescheduled",
	})
	OutboxDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_outbox_dropped_total",
		Help: "Events given up on after the maximum number of attempts",
	})
	OutboxPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_outbox_pending",
		Help: "Events waiting to be published",
	})
)

func init() {
	prometheus.MustRegister(OutboxSentTotal, OutboxPublishErrorsTotal, OutboxDroppedTotal, OutboxPending)
}
