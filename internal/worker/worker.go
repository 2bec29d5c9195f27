// Package worker consumes fire events and performs the dispatch side effect.
//
// Each fire event is processed exactly once: it was claimed exactly once
// upstream and the pool reads it from the channel exactly once. A failed
// dispatch is recorded and surfaced to observability; it is never requeued
// or retried.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"notehub/internal/dispatch"
	"notehub/internal/domain"
	"notehub/internal/metrics"
)

// DeliveryLog records dispatch outcomes. Optional; recording failures never
// affect dispatch correctness.
type DeliveryLog interface {
	Record(ctx context.Context, rec domain.DeliveryRecord) error
}

// AnalyticsSink counts fire events as a best-effort side effect.
// Implementations handle their own errors.
type AnalyticsSink interface {
	Record(ctx context.Context, event domain.FireEvent)
}

// MetricsSink defines the interface for recording worker metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	DispatchCompleted(statusClass string, duration time.Duration)
	DispatchOutcome(outcome string)
	EventsInFlightIncr()
	EventsInFlightDecr()
}

type Config struct {
	// Workers is the pool size; distinct fire events process concurrently.
	Workers int

	// DrainTimeout bounds how long shutdown waits for buffered events.
	DrainTimeout time.Duration
}

const (
	defaultWorkers      = 1
	defaultDrainTimeout = 30 * time.Second
)

type Worker struct {
	config     Config
	dispatcher dispatch.Dispatcher
	deliveries DeliveryLog   // optional, nil = log only
	analytics  AnalyticsSink // optional, nil = disabled
	metrics    MetricsSink   // optional, nil = disabled
	clock      func() time.Time
}

func New(config Config, dispatcher dispatch.Dispatcher) *Worker {
	if config.Workers <= 0 {
		config.Workers = defaultWorkers
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = defaultDrainTimeout
	}
	return &Worker{
		config:     config,
		dispatcher: dispatcher,
		clock:      time.Now,
	}
}

// WithDeliveryLog attaches a delivery record sink.
func (w *Worker) WithDeliveryLog(dl DeliveryLog) *Worker {
	w.deliveries = dl
	return w
}

// WithAnalytics attaches an analytics sink.
func (w *Worker) WithAnalytics(sink AnalyticsSink) *Worker {
	w.analytics = sink
	return w
}

// WithMetrics attaches a metrics sink.
func (w *Worker) WithMetrics(sink MetricsSink) *Worker {
	w.metrics = sink
	return w
}

// Run processes events from ch until ctx is cancelled, then drains buffered
// events with a timeout before returning.
func (w *Worker) Run(ctx context.Context, ch <-chan domain.FireEvent) {
	var wg sync.WaitGroup
	for i := 0; i < w.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx, ch)
		}()
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, ch <-chan domain.FireEvent) {
	for {
		select {
		case <-ctx.Done():
			w.drain(ch)
			return
		case event := <-ch:
			w.process(ctx, event)
		}
	}
}

// drain processes remaining buffered events after the shutdown signal.
// Uses a background context since the main context is already cancelled.
func (w *Worker) drain(ch <-chan domain.FireEvent) {
	drainCtx, cancel := context.WithTimeout(context.Background(), w.config.DrainTimeout)
	defer cancel()

	count := 0
	for {
		select {
		case <-drainCtx.Done():
			if count > 0 {
				log.Printf("worker: drain timeout, processed %d events", count)
			}
			return
		case event, ok := <-ch:
			if !ok {
				if count > 0 {
					log.Printf("worker: drain complete, processed %d events", count)
				}
				return
			}
			w.process(drainCtx, event)
			count++
		default:
			if count > 0 {
				log.Printf("worker: drain complete, processed %d events", count)
			}
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, event domain.FireEvent) {
	if w.metrics != nil {
		w.metrics.EventsInFlightIncr()
		defer w.metrics.EventsInFlightDecr()
	}

	// Analytics counts firings, not successful deliveries.
	if w.analytics != nil {
		w.analytics.Record(ctx, event)
	}

	startedAt := w.clock().UTC()
	result := w.dispatcher.Dispatch(ctx, event)
	finishedAt := w.clock().UTC()

	if w.metrics != nil {
		w.metrics.DispatchCompleted(metrics.ClassifyStatus(result.StatusCode, result.Error), result.Duration)
	}

	rec := domain.DeliveryRecord{
		ID:         uuid.New(),
		TriggerKey: event.TriggerKey,
		SubjectID:  event.SubjectID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}

	if result.IsSuccess() {
		rec.Outcome = domain.DeliveryOutcomeDelivered
		log.Printf("worker: delivered subject=%s key=%s", event.SubjectID, event.TriggerKey)
		if w.metrics != nil {
			w.metrics.DispatchOutcome(string(domain.DeliveryOutcomeDelivered))
		}
	} else {
		rec.Outcome = domain.DeliveryOutcomeFailed
		if result.Error != nil {
			rec.Error = result.Error.Error()
		}
		// No retry: the failure is retained as a record and surfaced here.
		log.Printf("worker: dispatch failed subject=%s key=%s status=%d err=%v",
			event.SubjectID, event.TriggerKey, result.StatusCode, result.Error)
		if w.metrics != nil {
			w.metrics.DispatchOutcome(string(domain.DeliveryOutcomeFailed))
		}
	}

	if w.deliveries != nil {
		if err := w.deliveries.Record(ctx, rec); err != nil {
			log.Printf("worker: failed to record delivery: %v", err)
		}
	}
}
