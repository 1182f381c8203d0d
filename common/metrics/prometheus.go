package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder backs Recorder with the default Prometheus registry.
type PrometheusRecorder struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	upstreamForward *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	quarantines     *prometheus.CounterVec
	poolExhausted   *prometheus.GaugeVec
}

// NewPrometheusRecorder registers and returns a PrometheusRecorder. Callers
// must only construct one per process; registering twice panics.
func NewPrometheusRecorder() *PrometheusRecorder {
	r := &PrometheusRecorder{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gemini_proxy",
			Name:      "http_requests_total",
			Help:      "Total client-facing HTTP requests handled.",
		}, []string{"path", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gemini_proxy",
			Name:      "http_request_duration_seconds",
			Help:      "Client-facing HTTP request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		upstreamForward: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gemini_proxy",
			Name:      "upstream_forwards_total",
			Help:      "Total forward attempts to the upstream API, by outcome.",
		}, []string{"model", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gemini_proxy",
			Name:      "upstream_forward_duration_seconds",
			Help:      "Upstream forward duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
		quarantines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gemini_proxy",
			Name:      "credential_quarantines_total",
			Help:      "Total times a credential was quarantined for a model.",
		}, []string{"model", "cred_suffix"}),
		poolExhausted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gemini_proxy",
			Name:      "pool_exhausted",
			Help:      "1 when every credential is quarantined for the model, else 0.",
		}, []string{"model"}),
	}

	prometheus.MustRegister(
		r.httpRequests,
		r.httpDuration,
		r.upstreamForward,
		r.upstreamLatency,
		r.quarantines,
		r.poolExhausted,
	)
	return r
}

// RecordHTTPRequest implements Recorder.RecordHTTPRequest.
func (r *PrometheusRecorder) RecordHTTPRequest(startTime time.Time, path, method, statusCode string) {
	r.httpRequests.WithLabelValues(path, method, statusCode).Inc()
	r.httpDuration.WithLabelValues(path, method).Observe(time.Since(startTime).Seconds())
}

// RecordUpstreamForward implements Recorder.RecordUpstreamForward.
func (r *PrometheusRecorder) RecordUpstreamForward(startTime time.Time, model, credSuffix, outcome string) {
	r.upstreamForward.WithLabelValues(model, outcome).Inc()
	r.upstreamLatency.WithLabelValues(model).Observe(time.Since(startTime).Seconds())
}

// RecordQuarantine implements Recorder.RecordQuarantine.
func (r *PrometheusRecorder) RecordQuarantine(model, credSuffix string) {
	r.quarantines.WithLabelValues(model, credSuffix).Inc()
}

// UpdatePoolExhausted implements Recorder.UpdatePoolExhausted.
func (r *PrometheusRecorder) UpdatePoolExhausted(model string, exhausted bool) {
	v := 0.0
	if exhausted {
		v = 1.0
	}
	r.poolExhausted.WithLabelValues(model).Set(v)
}
