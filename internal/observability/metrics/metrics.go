package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for provider selection and replies.
type ChatMetrics struct {
	probeTotal   *prometheus.CounterVec
	probeLatency *prometheus.HistogramVec
	replyTotal   *prometheus.CounterVec
	replyLatency *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		probeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rahi",
			Subsystem: "assistant",
			Name:      "provider_probe_total",
			Help:      "Total provider probes by outcome",
		}, []string{"provider", "outcome"}),
		probeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rahi",
			Subsystem: "assistant",
			Name:      "provider_probe_seconds",
			Help:      "Latency of provider construction plus probe call",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		replyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rahi",
			Subsystem: "assistant",
			Name:      "reply_total",
			Help:      "Total replies by serving source and outcome",
		}, []string{"source", "outcome"}),
		replyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rahi",
			Subsystem: "assistant",
			Name:      "reply_latency_seconds",
			Help:      "Latency of reply production",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.probeTotal, m.probeLatency, m.replyTotal, m.replyLatency)
	return m
}

func (m *ChatMetrics) ObserveProbe(provider string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.probeTotal.WithLabelValues(provider, outcome).Inc()
	m.probeLatency.WithLabelValues(provider).Observe(seconds)
}

// ObserveReply records one reply. outcome is "ok", "cached" or "apology".
func (m *ChatMetrics) ObserveReply(source, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.replyTotal.WithLabelValues(source, outcome).Inc()
	m.replyLatency.WithLabelValues(source).Observe(seconds)
}
