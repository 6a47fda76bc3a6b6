package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry encapsulates all metrics and provides a clean interface
// for recording metrics without global state
type Registry struct {
	registry *prometheus.Registry

	// Publisher metrics
	publishTotal    *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec

	// Streaming consumer metrics
	consumeTotal *prometheus.CounterVec

	// Dispatcher metrics
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec

	// Polling consumer metrics
	pollTotal     *prometheus.CounterVec
	pollDuration  prometheus.Histogram
	pollBatchSize prometheus.Histogram
	fetchedTotal  *prometheus.CounterVec

	// Broker connection metrics
	reconnectsTotal prometheus.Counter
	connectionState prometheus.Gauge

	// System health metrics
	systemInfo *prometheus.GaugeVec
	startTime  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		publishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_publish_total",
				Help: "Total number of publish operations",
			},
			[]string{"exchange", "status"}, // status: success, error
		),

		publishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notifier_publish_duration_seconds",
				Help:    "Time spent publishing events",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"exchange"},
		),

		consumeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_consume_total",
				Help: "Total number of deliveries handled by the streaming consumer",
			},
			[]string{"queue", "outcome"}, // outcome: sent, skipped, failed, decode_error
		),

		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_dispatch_total",
				Help: "Total number of dispatch attempts",
			},
			[]string{"event_type", "status"},
		),

		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notifier_dispatch_duration_seconds",
				Help:    "Time spent rendering and sending notifications",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event_type"},
		),

		pollTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_poll_total",
				Help: "Total number of poll invocations",
			},
			[]string{"status"}, // status: success, error, empty
		),

		pollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notifier_poll_duration_seconds",
				Help:    "Time spent per poll invocation",
				Buckets: prometheus.DefBuckets,
			},
		),

		pollBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notifier_poll_batch_size",
				Help:    "Number of messages processed per poll invocation",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
		),

		fetchedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_poll_fetched_total",
				Help: "Total number of messages fetched through the management API",
			},
			[]string{"queue"},
		),

		reconnectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "notifier_broker_reconnects_total",
				Help: "Total number of successful broker connections",
			},
		),

		connectionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "notifier_broker_connection_state",
				Help: "Current connection state (0=disconnected, 1=connecting, 2=topology-ready, 3=active)",
			},
		),

		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "notifier_system_info",
				Help: "System information (value is always 1, labels contain info)",
			},
			[]string{"component", "build_time"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "notifier_start_time_seconds",
				Help: "Unix timestamp when the application started",
			},
		),
	}

	// add default Go metrics (memory, GC, goroutines, etc.)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Register application metrics
	registry.MustRegister(
		r.publishTotal,
		r.publishDuration,
		r.consumeTotal,
		r.dispatchTotal,
		r.dispatchDuration,
		r.pollTotal,
		r.pollDuration,
		r.pollBatchSize,
		r.fetchedTotal,
		r.reconnectsTotal,
		r.connectionState,
		r.systemInfo,
		r.startTime,
	)

	// Set start time
	r.startTime.SetToCurrentTime()

	return r
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// RecordPublish records a publish operation
func (r *Registry) RecordPublish(exchange string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	r.publishTotal.WithLabelValues(exchange, status).Inc()
	r.publishDuration.WithLabelValues(exchange).Observe(duration.Seconds())
}

// RecordConsume records one delivery handled by the streaming consumer
func (r *Registry) RecordConsume(queue, outcome string) {
	r.consumeTotal.WithLabelValues(queue, outcome).Inc()
}

// RecordDispatch records a dispatch attempt
func (r *Registry) RecordDispatch(eventType, status string, duration time.Duration) {
	r.dispatchTotal.WithLabelValues(eventType, status).Inc()
	r.dispatchDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordPoll records a poll invocation
func (r *Registry) RecordPoll(processed int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	} else if processed == 0 {
		status = "empty"
	}

	r.pollTotal.WithLabelValues(status).Inc()
	r.pollDuration.Observe(duration.Seconds())
	if err == nil {
		r.pollBatchSize.Observe(float64(processed))
	}
}

// RecordFetched records messages fetched from a queue through the management API
func (r *Registry) RecordFetched(queue string, count int) {
	r.fetchedTotal.WithLabelValues(queue).Add(float64(count))
}

// RecordReconnect records a successful broker connection
func (r *Registry) RecordReconnect() {
	r.reconnectsTotal.Inc()
}

// SetConnectionState publishes the supervisor's current state
func (r *Registry) SetConnectionState(state int) {
	r.connectionState.Set(float64(state))
}

// SetSystemInfo sets the system information metric
func (r *Registry) SetSystemInfo(component, buildTime string) {
	r.systemInfo.WithLabelValues(component, buildTime).Set(1)
}
