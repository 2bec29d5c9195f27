package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"notehub/internal/dispatch"
	"notehub/internal/domain"
	"notehub/internal/testutil"
	"notehub/internal/transport/channel"
	"notehub/internal/trigger"
	"notehub/internal/trigger/memory"
	"notehub/internal/worker"
)

// capturingDispatcher records every event it is asked to deliver.
type capturingDispatcher struct {
	mu     sync.Mutex
	events []domain.FireEvent
}

func (d *capturingDispatcher) Dispatch(ctx context.Context, event domain.FireEvent) dispatch.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return dispatch.Result{StatusCode: 200, Duration: time.Millisecond}
}

func (d *capturingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

func (d *capturingDispatcher) first() domain.FireEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events[0]
}

// TestPipeline_ArmAtEightFiresAtNine walks a trigger through the whole
// chain: armed for 09:00 at 08:00, claimed by a tick after 09:00, carried
// over the bus and delivered exactly once by the worker.
func TestPipeline_ArmAtEightFiresAtNine(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	store := memory.New().WithClock(clock.Now)
	service := trigger.NewService(store)
	ctx := testutil.TestContext(t)

	key, err := service.Arm(ctx, "note-1", "09:00", []byte(`{"title":"standup"}`))
	if err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	bus := channel.NewEventBus(8)
	sched := New(Config{TickInterval: time.Minute}, store, bus)
	sched.clock = clock.Now

	dispatcher := &capturingDispatcher{}
	notifier := worker.New(worker.Config{Workers: 1, DrainTimeout: time.Second}, dispatcher)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		notifier.Run(workerCtx, bus.Channel())
	}()
	defer func() {
		stopWorker()
		wg.Wait()
	}()

	// A tick at 08:00 delivers nothing.
	if err := sched.processTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	clock.Advance(61 * time.Minute)
	if err := sched.processTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for dispatcher.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for dispatch")
		}
		time.Sleep(5 * time.Millisecond)
	}

	event := dispatcher.first()
	if event.SubjectID != "note-1" || event.TriggerKey != key {
		t.Errorf("delivered subject %q key %s, want note-1 / %s", event.SubjectID, event.TriggerKey, key)
	}
	wantScheduled := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	if !event.ScheduledAt.Equal(wantScheduled) {
		t.Errorf("ScheduledAt = %s, want %s", event.ScheduledAt, wantScheduled)
	}

	// The trigger retired on claim: a day later nothing fires again.
	clock.Advance(24 * time.Hour)
	if err := sched.processTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if dispatcher.count() != 1 {
		t.Errorf("expected exactly 1 delivery, got %d", dispatcher.count())
	}
}
