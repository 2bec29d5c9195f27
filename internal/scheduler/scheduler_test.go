package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"notehub/internal/domain"
	"notehub/internal/testutil"
	"notehub/internal/trigger/memory"
)

// mockEmitter tracks emitted events.
type mockEmitter struct {
	mu     sync.Mutex
	events []domain.FireEvent
	err    error
}

func (e *mockEmitter) Emit(ctx context.Context, event domain.FireEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *mockEmitter) eventCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

func (e *mockEmitter) lastEvent() domain.FireEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events[len(e.events)-1]
}

func TestScheduler_FiresDueTriggerOnce(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	store := memory.New().WithClock(clock.Now)
	emitter := &mockEmitter{}
	ctx := testutil.TestContext(t)

	key, err := store.Arm(ctx, "note-1", []byte("payload"), domain.DailyTime{Hour: 9, Minute: 0})
	if err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	sched := New(Config{TickInterval: time.Minute}, store, emitter)
	sched.clock = clock.Now

	// Tick before the fire time: nothing happens.
	if err := sched.processTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if emitter.eventCount() != 0 {
		t.Fatalf("expected no events before fire time, got %d", emitter.eventCount())
	}

	// Advance past 09:00 and tick: exactly one fire event.
	clock.Advance(61 * time.Minute)
	if err := sched.processTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if emitter.eventCount() != 1 {
		t.Fatalf("expected 1 event, got %d", emitter.eventCount())
	}

	event := emitter.lastEvent()
	if event.SubjectID != "note-1" || event.TriggerKey != key {
		t.Errorf("event = subject %q key %s, want note-1 / %s", event.SubjectID, event.TriggerKey, key)
	}
	wantScheduled := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	if !event.ScheduledAt.Equal(wantScheduled) {
		t.Errorf("ScheduledAt = %s, want %s", event.ScheduledAt, wantScheduled)
	}

	// Later ticks yield nothing: the trigger was retired on claim.
	clock.Advance(24 * time.Hour)
	if err := sched.processTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if emitter.eventCount() != 1 {
		t.Errorf("expected still 1 event after later tick, got %d", emitter.eventCount())
	}

	if _, ok, _ := store.Get(ctx, "note-1"); ok {
		t.Error("store still holds a scheduled trigger after firing")
	}
}

func TestScheduler_EmitFailureDropsFiring(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	store := memory.New().WithClock(clock.Now)
	emitter := &mockEmitter{err: errors.New("buffer full")}
	ctx := testutil.TestContext(t)

	if _, err := store.Arm(ctx, "note-1", nil, domain.DailyTime{Hour: 9, Minute: 0}); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	sched := New(Config{TickInterval: time.Minute}, store, emitter)
	sched.clock = clock.Now

	clock.Advance(2 * time.Hour)
	if err := sched.processTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	// The firing is lost: claimed from the store, not re-emitted later.
	emitter.mu.Lock()
	emitter.err = nil
	emitter.mu.Unlock()

	clock.Advance(time.Hour)
	if err := sched.processTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if emitter.eventCount() != 0 {
		t.Errorf("dropped firing was re-emitted, got %d events", emitter.eventCount())
	}
}

func TestScheduler_MultipleSubjectsDueTogether(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	store := memory.New().WithClock(clock.Now)
	emitter := &mockEmitter{}
	ctx := testutil.TestContext(t)

	for _, subject := range []string{"note-1", "note-2", "note-3"} {
		if _, err := store.Arm(ctx, subject, nil, domain.DailyTime{Hour: 9, Minute: 0}); err != nil {
			t.Fatalf("Arm(%s) failed: %v", subject, err)
		}
	}

	sched := New(Config{TickInterval: time.Minute}, store, emitter)
	sched.clock = clock.Now

	clock.Advance(90 * time.Minute)
	if err := sched.processTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	if emitter.eventCount() != 3 {
		t.Errorf("expected 3 events (one per subject), got %d", emitter.eventCount())
	}

	seen := make(map[string]bool)
	emitter.mu.Lock()
	for _, ev := range emitter.events {
		if seen[ev.SubjectID] {
			t.Errorf("subject %q fired more than once", ev.SubjectID)
		}
		seen[ev.SubjectID] = true
	}
	emitter.mu.Unlock()
}

// mockTickMetrics records tick metric calls.
type mockTickMetrics struct {
	mu        sync.Mutex
	started   int
	completed int
	lastFired int
}

func (m *mockTickMetrics) TickStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *mockTickMetrics) TickCompleted(duration time.Duration, fired int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
	m.lastFired = fired
}

func TestScheduler_MetricsPerTick(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	store := memory.New().WithClock(clock.Now)
	emitter := &mockEmitter{}
	metrics := &mockTickMetrics{}
	ctx := testutil.TestContext(t)

	if _, err := store.Arm(ctx, "note-1", nil, domain.DailyTime{Hour: 9, Minute: 0}); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	sched := New(Config{TickInterval: time.Minute}, store, emitter).WithMetrics(metrics)
	sched.clock = clock.Now

	clock.Advance(2 * time.Hour)
	if err := sched.processTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.started != 1 || metrics.completed != 1 {
		t.Errorf("metrics started=%d completed=%d, want 1/1", metrics.started, metrics.completed)
	}
	if metrics.lastFired != 1 {
		t.Errorf("metrics lastFired=%d, want 1", metrics.lastFired)
	}
}
