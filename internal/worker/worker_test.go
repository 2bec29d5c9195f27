package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"notehub/internal/dispatch"
	"notehub/internal/domain"
)

// mockDispatcher returns canned results and counts calls per trigger key.
type mockDispatcher struct {
	mu      sync.Mutex
	result  dispatch.Result
	calls   map[uuid.UUID]int
	blockCh chan struct{} // optional: dispatch blocks until closed
}

func newMockDispatcher(result dispatch.Result) *mockDispatcher {
	return &mockDispatcher{
		result: result,
		calls:  make(map[uuid.UUID]int),
	}
}

func (d *mockDispatcher) Dispatch(ctx context.Context, event domain.FireEvent) dispatch.Result {
	if d.blockCh != nil {
		<-d.blockCh
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[event.TriggerKey]++
	return d.result
}

func (d *mockDispatcher) callCount(key uuid.UUID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[key]
}

func (d *mockDispatcher) totalCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, n := range d.calls {
		total += n
	}
	return total
}

// mockDeliveryLog collects delivery records.
type mockDeliveryLog struct {
	mu      sync.Mutex
	records []domain.DeliveryRecord
}

func (l *mockDeliveryLog) Record(ctx context.Context, rec domain.DeliveryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *mockDeliveryLog) byKey(key uuid.UUID) (domain.DeliveryRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.TriggerKey == key {
			return r, true
		}
	}
	return domain.DeliveryRecord{}, false
}

func newFireEvent() domain.FireEvent {
	return domain.FireEvent{
		TriggerKey:  uuid.New(),
		SubjectID:   "note-1",
		Payload:     []byte(`{"title":"standup"}`),
		ScheduledAt: time.Now().UTC(),
		FiredAt:     time.Now().UTC(),
	}
}

func runWorker(t *testing.T, w *Worker, ch chan domain.FireEvent) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, ch)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
	}
}

func TestWorker_DispatchSuccessRecorded(t *testing.T) {
	disp := newMockDispatcher(dispatch.Result{StatusCode: 200})
	deliveries := &mockDeliveryLog{}
	w := New(Config{Workers: 1}, disp).WithDeliveryLog(deliveries)

	ch := make(chan domain.FireEvent, 1)
	stop := runWorker(t, w, ch)

	event := newFireEvent()
	ch <- event

	waitFor(t, func() bool { return disp.callCount(event.TriggerKey) == 1 })
	stop()

	rec, ok := deliveries.byKey(event.TriggerKey)
	if !ok {
		t.Fatal("no delivery record for dispatched event")
	}
	if rec.Outcome != domain.DeliveryOutcomeDelivered {
		t.Errorf("Outcome = %q, want delivered", rec.Outcome)
	}
	if rec.SubjectID != "note-1" {
		t.Errorf("SubjectID = %q, want note-1", rec.SubjectID)
	}
}

func TestWorker_DispatchFailureNotRetried(t *testing.T) {
	disp := newMockDispatcher(dispatch.Result{StatusCode: 500, Error: errors.New("gateway down")})
	deliveries := &mockDeliveryLog{}
	w := New(Config{Workers: 1}, disp).WithDeliveryLog(deliveries)

	ch := make(chan domain.FireEvent, 1)
	stop := runWorker(t, w, ch)

	event := newFireEvent()
	ch <- event

	waitFor(t, func() bool { return disp.callCount(event.TriggerKey) >= 1 })

	// Allow time for any erroneous retry before stopping.
	time.Sleep(50 * time.Millisecond)
	stop()

	if got := disp.callCount(event.TriggerKey); got != 1 {
		t.Errorf("dispatch called %d times, want exactly 1 (no retry)", got)
	}

	rec, ok := deliveries.byKey(event.TriggerKey)
	if !ok {
		t.Fatal("no delivery record for failed dispatch")
	}
	if rec.Outcome != domain.DeliveryOutcomeFailed {
		t.Errorf("Outcome = %q, want failed", rec.Outcome)
	}
	if rec.Error == "" {
		t.Error("delivery record has empty error for failed dispatch")
	}
}

func TestWorker_ProcessesEventsConcurrently(t *testing.T) {
	disp := newMockDispatcher(dispatch.Result{StatusCode: 200})
	disp.blockCh = make(chan struct{})
	w := New(Config{Workers: 3}, disp)

	ch := make(chan domain.FireEvent, 3)
	stop := runWorker(t, w, ch)
	defer stop()

	for i := 0; i < 3; i++ {
		ch <- newFireEvent()
	}

	// All three events should be consumed from the channel while dispatch
	// is blocked, proving three executors run in parallel.
	waitFor(t, func() bool { return len(ch) == 0 })

	close(disp.blockCh)
	waitFor(t, func() bool { return disp.totalCalls() == 3 })
}

func TestWorker_DrainsBufferedEventsOnShutdown(t *testing.T) {
	disp := newMockDispatcher(dispatch.Result{StatusCode: 200})
	w := New(Config{Workers: 1, DrainTimeout: 2 * time.Second}, disp)

	// Buffered events that the worker has not seen yet.
	ch := make(chan domain.FireEvent, 4)
	for i := 0; i < 4; i++ {
		ch <- newFireEvent()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled: Run goes straight to drain

	done := make(chan struct{})
	go func() {
		w.Run(ctx, ch)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish draining")
	}

	if got := disp.totalCalls(); got != 4 {
		t.Errorf("drained %d events, want 4", got)
	}
}

// mockWorkerMetrics counts outcome calls.
type mockWorkerMetrics struct {
	mu        sync.Mutex
	outcomes  map[string]int
	completed int
	inFlight  int
}

func newMockWorkerMetrics() *mockWorkerMetrics {
	return &mockWorkerMetrics{outcomes: make(map[string]int)}
}

func (m *mockWorkerMetrics) DispatchCompleted(statusClass string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
}

func (m *mockWorkerMetrics) DispatchOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *mockWorkerMetrics) EventsInFlightIncr() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight++
}

func (m *mockWorkerMetrics) EventsInFlightDecr() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
}

func TestWorker_MetricsOnFailure(t *testing.T) {
	disp := newMockDispatcher(dispatch.Result{StatusCode: 503})
	metrics := newMockWorkerMetrics()
	w := New(Config{Workers: 1}, disp).WithMetrics(metrics)

	ch := make(chan domain.FireEvent, 1)
	stop := runWorker(t, w, ch)

	event := newFireEvent()
	ch <- event

	waitFor(t, func() bool { return disp.callCount(event.TriggerKey) == 1 })
	stop()

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.outcomes["failed"] != 1 {
		t.Errorf("failed outcome count = %d, want 1", metrics.outcomes["failed"])
	}
	if metrics.completed != 1 {
		t.Errorf("completed count = %d, want 1", metrics.completed)
	}
	if metrics.inFlight != 0 {
		t.Errorf("in-flight gauge = %d after processing, want 0", metrics.inFlight)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
