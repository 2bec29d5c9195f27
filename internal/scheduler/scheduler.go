// Package scheduler drives the trigger engine: each tick claims due triggers
// from the store and emits one fire event per claim.
//
// Handoff is at-most-once. A claimed trigger is consumed the moment ListDue
// returns it; if the emit fails or the process dies before the worker sees
// the event, that firing is lost. There is no retry of a claimed trigger.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"notehub/internal/domain"
)

// Store is the claim surface the scheduler needs from the trigger store.
type Store interface {
	ListDue(ctx context.Context, now time.Time) ([]domain.ArmedTrigger, error)
}

// EventEmitter hands fire events to the worker side.
type EventEmitter interface {
	Emit(ctx context.Context, event domain.FireEvent) error
}

// MetricsSink defines the interface for recording scheduler metrics.
// All methods must be non-blocking and fire-and-forget.
type MetricsSink interface {
	TickStarted()
	TickCompleted(duration time.Duration, fired int, err error)
}

type Config struct {
	TickInterval time.Duration
}

type Scheduler struct {
	config  Config
	store   Store
	emitter EventEmitter
	metrics MetricsSink // optional, nil = disabled
	clock   func() time.Time
}

func New(config Config, store Store, emitter EventEmitter) *Scheduler {
	return &Scheduler{
		config:  config,
		store:   store,
		emitter: emitter,
		clock:   time.Now,
	}
}

// WithMetrics attaches a metrics sink to the scheduler.
func (s *Scheduler) WithMetrics(sink MetricsSink) *Scheduler {
	s.metrics = sink
	return s
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	log.Printf("scheduler: started, tick=%s", s.config.TickInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.processTick(ctx); err != nil {
				log.Printf("scheduler: tick error: %v", err)
			}
		}
	}
}

func (s *Scheduler) processTick(ctx context.Context) error {
	start := s.clock().UTC()
	if s.metrics != nil {
		s.metrics.TickStarted()
	}

	fired, err := s.fireDue(ctx, start)

	if s.metrics != nil {
		s.metrics.TickCompleted(s.clock().UTC().Sub(start), fired, err)
	}
	return err
}

// fireDue claims everything due at now and emits one event per claim.
// Returns the number of events successfully handed to the bus.
func (s *Scheduler) fireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due triggers: %w", err)
	}

	fired := 0
	for _, t := range due {
		event := domain.FireEvent{
			TriggerKey:  t.Key,
			SubjectID:   t.SubjectID,
			Payload:     t.Payload,
			ScheduledAt: t.NextFireAt,
			FiredAt:     now,
		}

		if err := s.emitter.Emit(ctx, event); err != nil {
			// The trigger is already claimed; this firing is lost.
			log.Printf("scheduler: dropped fire event subject=%s key=%s: %v", t.SubjectID, t.Key, err)
			continue
		}

		log.Printf("scheduler: fired subject=%s key=%s scheduled_at=%s",
			t.SubjectID, t.Key, t.NextFireAt.Format(time.RFC3339))
		fired++
	}

	return fired, nil
}
