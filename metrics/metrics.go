// Package metrics exposes aggregator activity to Prometheus.
//
//	headstats_notifications_total{kind="<type>"}
//	headstats_tx_rejected_total{reason="<reason>"}
//	headstats_tx_pending_total{authority="<host:port>"}
//	headstats_tx_confirmed_total{authority="<host:port>"}
//	headstats_players_added_total{authority="<host:port>"}
//	headstats_unknown_authority_total
//	headstats_heads_open
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tolelom/headstats/events"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "headstats"

// Collector counts emitter notifications. It owns its registry so several
// collectors can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	notifications    *prometheus.CounterVec
	txRejected       *prometheus.CounterVec
	txPending        *prometheus.CounterVec
	txConfirmed      *prometheus.CounterVec
	playersAdded     *prometheus.CounterVec
	unknownAuthority prometheus.Counter
	headsOpen        prometheus.Gauge
}

// New creates a Collector registered on a fresh registry.
func New() *Collector {
	counterVec := func(name, help, label string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: DefaultNamespace,
			Name:      name,
			Help:      help,
		}, []string{label})
	}
	c := &Collector{
		registry:      prometheus.NewRegistry(),
		notifications: counterVec("notifications_total", "Aggregator notifications by kind", "kind"),
		txRejected:    counterVec("tx_rejected_total", "Transactions dropped by validation, by reason", "reason"),
		txPending:     counterVec("tx_pending_total", "Transactions accepted as pending, by head", "authority"),
		txConfirmed:   counterVec("tx_confirmed_total", "Pending transactions confirmed by a snapshot, by head", "authority"),
		playersAdded:  counterVec("players_added_total", "Players added, by head", "authority"),
		unknownAuthority: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: DefaultNamespace,
			Name:      "unknown_authority_total",
			Help:      "Events received from an authority no node matches",
		}),
		headsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: DefaultNamespace,
			Name:      "heads_open",
			Help:      "Heads whose identity is known",
		}),
	}
	c.registry.MustRegister(
		c.notifications, c.txRejected, c.txPending, c.txConfirmed,
		c.playersAdded, c.unknownAuthority, c.headsOpen,
	)
	return c
}

// Attach subscribes c to every notification it counts.
func (c *Collector) Attach(emitter *events.Emitter) {
	for _, typ := range []events.EventType{
		events.EventHeadOpened,
		events.EventTxPending,
		events.EventTxRejected,
		events.EventTxConfirmed,
		events.EventPlayerAdded,
		events.EventUnknownNode,
	} {
		emitter.Subscribe(typ, c.observe)
	}
}

func (c *Collector) observe(n events.Notification) {
	c.notifications.WithLabelValues(string(n.Type)).Inc()
	switch n.Type {
	case events.EventHeadOpened:
		c.headsOpen.Inc()
	case events.EventTxPending:
		c.txPending.WithLabelValues(n.Authority).Inc()
	case events.EventTxConfirmed:
		c.txConfirmed.WithLabelValues(n.Authority).Inc()
	case events.EventTxRejected:
		reason, _ := n.Data["reason"].(string)
		c.txRejected.WithLabelValues(reason).Inc()
	case events.EventPlayerAdded:
		c.playersAdded.WithLabelValues(n.Authority).Inc()
	case events.EventUnknownNode:
		c.unknownAuthority.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
