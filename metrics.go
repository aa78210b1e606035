package antrian

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the call lifecycle and
// the orchestration layers. It is safe for concurrent use and every Record
// method is a no-op on a nil collector.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions prometheus.Counter
	cacheSize      prometheus.Gauge

	throttleDelays *prometheus.HistogramVec

	queueRunning prometheus.Gauge
	queueWaiting prometheus.Gauge

	supersessions *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)
	factory.NewGauge(prometheus.GaugeOpts{
		Name:        "antrian_build_info",
		Help:        "Always 1; labelled with the library and Go versions",
		ConstLabels: GetVersionInfo(),
	}).Set(1)

	return &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "antrian_requests_total",
				Help: "Total number of transport calls made",
			},
			[]string{"method", "status_code", "class"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "antrian_request_duration_seconds",
				Help:    "Duration of transport calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "class"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "antrian_requests_in_flight",
				Help: "Number of transport calls currently in flight",
			},
			[]string{"method", "class"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "antrian_retries_total",
				Help: "Total number of scheduled retries",
			},
			[]string{"method", "class", "kind"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "antrian_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"method", "class"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "antrian_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"method", "class"},
		),
		cacheEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "antrian_cache_evictions_total",
				Help: "Total number of entries evicted at capacity",
			},
		),
		cacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "antrian_cache_size",
				Help: "Current number of entries in cache",
			},
		),
		throttleDelays: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "antrian_throttle_delay_seconds",
				Help:    "Throttle waits imposed before dispatch",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"class"},
		),
		queueRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "antrian_queue_running",
				Help: "Critical tasks currently executing",
			},
		),
		queueWaiting: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "antrian_queue_waiting",
				Help: "Critical tasks waiting for a slot",
			},
		),
		supersessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "antrian_supersessions_total",
				Help: "Pending calls cancelled by a newer identical call",
			},
			[]string{"method"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "antrian_errors_total",
				Help: "Calls that resolved with an error, by kind",
			},
			[]string{"kind", "method", "class"},
		),
	}
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, class string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, class).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, class).Observe(duration.Seconds())
}

// RecordRequestStart increments in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, class string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, class).Inc()
}

// RecordRequestEnd decrements in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, class string) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, class).Dec()
}

// RecordRetry increments retry counter.
func (mc *MetricsCollector) RecordRetry(method, class string, kind ErrorKind) {
	if mc == nil {
		return
	}
	mc.retriesTotal.WithLabelValues(method, class, kind.String()).Inc()
}

// RecordCacheHit increments cache hit counter.
func (mc *MetricsCollector) RecordCacheHit(method, class string) {
	if mc == nil {
		return
	}
	mc.cacheHits.WithLabelValues(method, class).Inc()
}

// RecordCacheMiss increments cache miss counter.
func (mc *MetricsCollector) RecordCacheMiss(method, class string) {
	if mc == nil {
		return
	}
	mc.cacheMisses.WithLabelValues(method, class).Inc()
}

// RecordCacheEviction increments the eviction counter.
func (mc *MetricsCollector) RecordCacheEviction() {
	if mc == nil {
		return
	}
	mc.cacheEvictions.Inc()
}

// RecordCacheSize sets current cache size gauge.
func (mc *MetricsCollector) RecordCacheSize(size int) {
	if mc == nil {
		return
	}
	mc.cacheSize.Set(float64(size))
}

// RecordThrottleDelay observes one throttle wait.
func (mc *MetricsCollector) RecordThrottleDelay(class string, delay time.Duration) {
	if mc == nil {
		return
	}
	mc.throttleDelays.WithLabelValues(class).Observe(delay.Seconds())
}

// RecordQueueRunning sets the running tasks gauge.
func (mc *MetricsCollector) RecordQueueRunning(n int) {
	if mc == nil {
		return
	}
	mc.queueRunning.Set(float64(n))
}

// RecordQueueWaiting sets the waiting tasks gauge.
func (mc *MetricsCollector) RecordQueueWaiting(n int) {
	if mc == nil {
		return
	}
	mc.queueWaiting.Set(float64(n))
}

// RecordSupersession increments the supersession counter.
func (mc *MetricsCollector) RecordSupersession(method string) {
	if mc == nil {
		return
	}
	mc.supersessions.WithLabelValues(method).Inc()
}

// RecordError increments the error counter. Cancelled calls are not errors
// and are never passed here.
func (mc *MetricsCollector) RecordError(kind ErrorKind, method, class string) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(kind.String(), method, class).Inc()
}
