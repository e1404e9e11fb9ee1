// Package metrics exposes the Prometheus collectors the gateway updates as
// it multiplexes and filters events. A single Registry is constructed at
// startup and threaded into the components that have something to count.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every collector the gateway updates, plus the Gatherer
// /metrics should read from so what's registered is what's exposed.
type Registry struct {
	ChannelsSubscribed prometheus.Gauge
	UpstreamSubscribes prometheus.Counter
	MessagesDispatched *prometheus.CounterVec
	FilterDrops        *prometheus.CounterVec
	SessionsActive     prometheus.Gauge

	Gatherer prometheus.Gatherer
}

// NewRegistry creates and registers all collectors against reg.
func NewRegistry(reg *prometheus.Registry) *Registry {
	r := &Registry{
		ChannelsSubscribed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamgate",
			Name:      "channels_subscribed",
			Help:      "Number of upstream channels currently physically subscribed.",
		}),
		UpstreamSubscribes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamgate",
			Name:      "upstream_subscribes_total",
			Help:      "Number of physical upstream SUBSCRIBE calls issued.",
		}),
		MessagesDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamgate",
			Name:      "messages_dispatched_total",
			Help:      "Messages handed to local listeners, by channel.",
		}, []string{"channel"}),
		FilterDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamgate",
			Name:      "filter_drops_total",
			Help:      "Events dropped by the visibility filter, by reason.",
		}, []string{"reason"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamgate",
			Name:      "sessions_active",
			Help:      "Number of currently open client sessions (SSE + WS).",
		}),

		Gatherer: reg,
	}

	reg.MustRegister(r.ChannelsSubscribed, r.UpstreamSubscribes, r.MessagesDispatched, r.FilterDrops, r.SessionsActive)
	return r
}
