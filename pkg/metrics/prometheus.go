package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exposes quote cache metrics to Prometheus.
type Recorder struct {
	lookups     *prometheus.CounterVec
	expired     *prometheus.CounterVec
	missing     *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	calendars   prometheus.Gauge
	latency     *prometheus.HistogramVec
	events      *prometheus.CounterVec
}

// New creates a recorder registered on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotecache_lookups_total",
				Help: "Series lookups by result (hit, miss)",
			},
			[]string{"interval", "result"},
		),
		expired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotecache_expired_points_total",
				Help: "Cached points found expired during planning",
			},
			[]string{"interval"},
		),
		missing: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotecache_missing_ranges_total",
				Help: "Fetch ranges produced by gap planning",
			},
			[]string{"interval"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotecache_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		calendars: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quotecache_calendars_loaded",
			Help: "Exchange calendars currently registered",
		}),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quotecache_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotecache_series_events_total",
				Help: "Series change events by direction (out, in) and result",
			},
			[]string{"direction", "result"},
		),
	}
	reg.MustRegister(r.lookups, r.expired, r.missing, r.errorsTotal, r.calendars, r.latency, r.events)
	return r
}

// Nop returns a recorder registered nowhere.
func Nop() *Recorder {
	return New(prometheus.NewRegistry())
}

// RecordLookup counts a series lookup.
func (r *Recorder) RecordLookup(interval string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.lookups.WithLabelValues(interval, result).Inc()
}

func (r *Recorder) RecordExpired(interval string, n int) {
	r.expired.WithLabelValues(interval).Add(float64(n))
}

func (r *Recorder) RecordMissing(interval string, n int) {
	r.missing.WithLabelValues(interval).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) SetCalendars(n int) {
	r.calendars.Set(float64(n))
}

// RecordLatency records operation latency since start.
func (r *Recorder) RecordLatency(op string, start time.Time) {
	r.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordEvent counts a published or consumed series event.
func (r *Recorder) RecordEvent(direction, result string) {
	r.events.WithLabelValues(direction, result).Inc()
}
