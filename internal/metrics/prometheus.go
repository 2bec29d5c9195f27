package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Scheduler metrics
	ticksTotal         prometheus.Counter
	tickErrorsTotal    prometheus.Counter
	triggersFiredTotal prometheus.Counter
	tickDuration       prometheus.Histogram

	// Worker metrics
	dispatchesTotal       *prometheus.CounterVec
	dispatchOutcomesTotal *prometheus.CounterVec
	webhookDuration       prometheus.Histogram
	eventsInFlight        prometheus.Gauge

	// EventBus metrics
	bufferSize       prometheus.Gauge
	bufferCapacity   prometheus.Gauge
	bufferSaturation prometheus.Gauge
	emitErrorsTotal  prometheus.Counter
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initSchedulerMetrics(reg)
	s.initWorkerMetrics(reg)
	s.initEventBusMetrics(reg)
	return s
}

func (s *PrometheusSink) initSchedulerMetrics(reg prometheus.Registerer) {
	s.ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notehub_scheduler_ticks_total",
		Help: "Total number of scheduler ticks processed.",
	})
	s.tickErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notehub_scheduler_tick_errors_total",
		Help: "Total number of scheduler tick errors.",
	})
	s.triggersFiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notehub_scheduler_triggers_fired_total",
		Help: "Total number of triggers fired (fire events emitted).",
	})
	s.tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notehub_scheduler_tick_duration_seconds",
		Help:    "Duration of each scheduler tick in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	s.register(reg, s.ticksTotal, "notehub_scheduler_ticks_total")
	s.register(reg, s.tickErrorsTotal, "notehub_scheduler_tick_errors_total")
	s.register(reg, s.triggersFiredTotal, "notehub_scheduler_triggers_fired_total")
	s.register(reg, s.tickDuration, "notehub_scheduler_tick_duration_seconds")
}

func (s *PrometheusSink) initWorkerMetrics(reg prometheus.Registerer) {
	s.dispatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notehub_worker_dispatches_total",
		Help: "Total number of notification dispatches.",
	}, []string{"status_class"})

	s.dispatchOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notehub_worker_dispatch_outcomes_total",
		Help: "Total number of delivery outcomes per fire event.",
	}, []string{"outcome"})

	s.webhookDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notehub_worker_webhook_duration_seconds",
		Help:    "Webhook request latency in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	s.eventsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notehub_worker_events_in_flight",
		Help: "Number of fire events currently being processed.",
	})

	s.register(reg, s.dispatchesTotal, "notehub_worker_dispatches_total")
	s.register(reg, s.dispatchOutcomesTotal, "notehub_worker_dispatch_outcomes_total")
	s.register(reg, s.webhookDuration, "notehub_worker_webhook_duration_seconds")
	s.register(reg, s.eventsInFlight, "notehub_worker_events_in_flight")
}

func (s *PrometheusSink) initEventBusMetrics(reg prometheus.Registerer) {
	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notehub_eventbus_buffer_size",
		Help: "Current number of fire events in the event bus buffer.",
	})
	s.bufferCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notehub_eventbus_buffer_capacity",
		Help: "Configured capacity of the event bus buffer.",
	})
	s.bufferSaturation = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notehub_eventbus_buffer_saturation",
		Help: "Event bus buffer fill ratio between 0 and 1.",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notehub_eventbus_emit_errors_total",
		Help: "Total number of emit errors (buffer full).",
	})

	s.register(reg, s.bufferSize, "notehub_eventbus_buffer_size")
	s.register(reg, s.bufferCapacity, "notehub_eventbus_buffer_capacity")
	s.register(reg, s.bufferSaturation, "notehub_eventbus_buffer_saturation")
	s.register(reg, s.emitErrorsTotal, "notehub_eventbus_emit_errors_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// Scheduler metrics implementation

func (s *PrometheusSink) TickStarted() {
	s.ticksTotal.Inc()
}

func (s *PrometheusSink) TickCompleted(duration time.Duration, triggersFired int, err error) {
	s.tickDuration.Observe(duration.Seconds())
	s.triggersFiredTotal.Add(float64(triggersFired))
	if err != nil {
		s.tickErrorsTotal.Inc()
	}
}

// Worker metrics implementation

func (s *PrometheusSink) DispatchCompleted(statusClass string, duration time.Duration) {
	s.dispatchesTotal.WithLabelValues(statusClass).Inc()
	s.webhookDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) DispatchOutcome(outcome string) {
	s.dispatchOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) EventsInFlightIncr() {
	s.eventsInFlight.Inc()
}

func (s *PrometheusSink) EventsInFlightDecr() {
	s.eventsInFlight.Dec()
}

// EventBus metrics implementation

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) BufferCapacitySet(capacity int) {
	s.bufferCapacity.Set(float64(capacity))
}

func (s *PrometheusSink) BufferSaturationUpdate(saturation float64) {
	s.bufferSaturation.Set(saturation)
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}
