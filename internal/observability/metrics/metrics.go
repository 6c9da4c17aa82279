package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotifyMetrics exposes counters/histograms for notification flows.
type NotifyMetrics struct {
	dispatchTotal  *prometheus.CounterVec
	inboundTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
	queueDepth     prometheus.Gauge
}

func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	m := &NotifyMetrics{
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainerhub",
			Subsystem: "notify",
			Name:      "dispatch_total",
			Help:      "Total outbound WhatsApp dispatch attempts",
		}, []string{"kind", "status"}),
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainerhub",
			Subsystem: "notify",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound gateway webhooks",
		}, []string{"outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trainerhub",
			Subsystem: "notify",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trainerhub",
			Subsystem: "notify",
			Name:      "queue_inflight",
			Help:      "Notification tasks currently being processed",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.dispatchTotal, m.inboundTotal, m.webhookLatency, m.queueDepth)
	return m
}

func (m *NotifyMetrics) ObserveDispatch(kind, status string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(kind, status).Inc()
}

func (m *NotifyMetrics) ObserveInbound(outcome string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(outcome).Inc()
}

func (m *NotifyMetrics) ObserveWebhookLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *NotifyMetrics) IncInflight() {
	if m == nil {
		return
	}
	m.queueDepth.Inc()
}

func (m *NotifyMetrics) DecInflight() {
	if m == nil {
		return
	}
	m.queueDepth.Dec()
}
