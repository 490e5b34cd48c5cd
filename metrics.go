package cfddns

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	actVerifyToken  = "verify_token"
	actGetZone      = "get_zone"
	actGetRecord    = "get_record"
	actListRecords  = "list_records"
	actUpdateRecord = "update_record"
	actResolveIP    = "resolve_ip"
)

// Metrics counts API calls per action.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	successfulAPICallsTotal *prometheus.CounterVec
	failedAPICallsTotal     *prometheus.CounterVec
	apiDelay                *prometheus.HistogramVec
	lastUpdateSuccess       prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		successfulAPICallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cfddns",
				Name:      "successful_api_calls_total",
				Help:      "The number of API calls that returned a 2xx status",
			},
			[]string{"action"},
		),
		failedAPICallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cfddns",
				Name:      "failed_api_calls_total",
				Help:      "The number of API calls that failed or returned a non-2xx status",
			},
			[]string{"action"},
		),
		apiDelay: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cfddns",
				Name:      "api_delay_ms",
				Help:      "Histogram of the delay in milliseconds of each API call",
				Buckets:   []float64{10, 100, 250, 500, 1000, 1500, 2000, 5000, 10000},
			},
			[]string{"action"},
		),
		lastUpdateSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cfddns",
			Name:      "last_update_success_timestamp_seconds",
			Help:      "Unix time of the last successful record update",
		}),
	}
	reg.MustRegister(m.successfulAPICallsTotal)
	reg.MustRegister(m.failedAPICallsTotal)
	reg.MustRegister(m.apiDelay)
	reg.MustRegister(m.lastUpdateSuccess)
	return m
}

// Registry returns the registry holding all cfddns metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format,
// for use with the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(filename string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(filename, m.registry)
}

func (m *Metrics) observe(action string, ok bool, delay time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"action": action}
	if ok {
		m.successfulAPICallsTotal.With(labels).Inc()
	} else {
		m.failedAPICallsTotal.With(labels).Inc()
	}
	m.apiDelay.With(labels).Observe(float64(delay.Milliseconds()))
}

func (m *Metrics) updateSucceeded(t time.Time) {
	if m == nil {
		return
	}
	m.lastUpdateSuccess.Set(float64(t.Unix()))
}
