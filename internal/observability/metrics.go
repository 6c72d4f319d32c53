package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters. HTTP-level metrics live in the middleware package.
var (
	// OrdersCreated counts chat orders opened from the marketplace.
	OrdersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_orders_created_total",
		Help: "Chat orders created by purchase initiation.",
	})

	// OrderTransitions counts status changes by target status.
	OrderTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_order_transitions_total",
		Help: "Chat order status transitions by target status.",
	}, []string{"status"})

	// MessagesSent counts chat messages by content kind (text|image|order).
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_messages_sent_total",
		Help: "Chat messages sent by content kind.",
	}, []string{"kind"})

	// ExternalCalls counts outbound API calls by provider and outcome.
	ExternalCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_external_api_calls_total",
		Help: "Outbound API calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	// WeatherCache counts weather cache lookups by result (hit|miss).
	WeatherCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_weather_cache_lookups_total",
		Help: "Weather cache lookups by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(OrdersCreated, OrderTransitions, MessagesSent, ExternalCalls, WeatherCache)
}

// ObserveExternal records the outcome of one outbound call.
func ObserveExternal(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ExternalCalls.WithLabelValues(provider, outcome).Inc()
}
