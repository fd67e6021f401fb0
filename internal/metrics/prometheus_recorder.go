package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	pages       *prom.CounterVec
	elements    *prom.CounterVec
	runDuration *prom.HistogramVec
	lastRun     prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		pages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docrestyle",
			Name:      "pages_total",
			Help:      "Pages processed by outcome",
		}, []string{"outcome"}),
		elements: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docrestyle",
			Name:      "elements_total",
			Help:      "Elements restyled by kind",
		}, []string{"kind"}),
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docrestyle",
			Name:      "run_duration_seconds",
			Help:      "Duration of restyle runs",
			Buckets:   prom.DefBuckets,
		}, []string{"trigger"}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: "docrestyle",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last restyle run finished",
		}),
	}
	reg.MustRegister(pr.pages, pr.elements, pr.runDuration, pr.lastRun)
	return pr
}

func (p *PrometheusRecorder) IncPage(outcome PageOutcome) {
	if p == nil {
		return
	}
	p.pages.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddElements(kind ElementKind, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.elements.WithLabelValues(string(kind)).Add(float64(n))
}

func (p *PrometheusRecorder) ObserveRunDuration(trigger string, d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetLastRun(t time.Time) {
	if p == nil {
		return
	}
	p.lastRun.Set(float64(t.Unix()))
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
