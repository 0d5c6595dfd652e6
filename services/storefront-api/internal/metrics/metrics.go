package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ClaimsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_claims_total",
		Help: "Inventory claims by product type and outcome",
	}, []string{"type", "outcome"})
	FulfillmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_fulfillments_total",
		Help: "Fulfillment attempts by outcome",
	}, []string{"outcome"})
	FulfillmentDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_fulfillment_duration_seconds",
		Help:    "Time spent claiming units and recording the order",
		Buckets: prometheus.DefBuckets,
	})
	StrandedUnitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_stranded_units_total",
		Help: "Units marked sold whose order could not be recorded",
	})
	NotificationsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_notifications_failed_total",
		Help: "Delivery notifications that could not be dispatched",
	})
)

func init() {
	prometheus.MustRegister(ClaimsTotal, FulfillmentsTotal, FulfillmentDuration, StrandedUnitsTotal, NotificationsFailedTotal)
}
