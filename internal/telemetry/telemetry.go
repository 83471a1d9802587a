// Package telemetry counts usage of the panel and the analysis worker on a
// Prometheus registry.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/five82/heapdiff/internal/census"
)

// Recorder owns a private registry so tests and multiple instances never
// collide on the default one.
type Recorder struct {
	registry        *prometheus.Registry
	censusDiffs     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a Recorder with its metrics registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		censusDiffs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "heapdiff_census_diffs_total",
			Help: "Delta censuses committed to the panel",
		}, []string{"breakdown", "inverted", "filtered"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heapdiff_worker_request_duration_seconds",
			Help:    "Duration of analysis worker HTTP requests",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"route", "status"}),
	}
}

// CountDiff records one completed delta census.
func (r *Recorder) CountDiff(filter string, display census.Display) {
	r.censusDiffs.WithLabelValues(
		string(display.Breakdown),
		strconv.FormatBool(display.Inverted),
		strconv.FormatBool(filter != ""),
	).Inc()
}

// ObserveRequest records one worker HTTP request.
func (r *Recorder) ObserveRequest(route string, status int, elapsed time.Duration) {
	r.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
