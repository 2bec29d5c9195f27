// Package memory provides the in-memory trigger store used for
// single-process deployments. Armed triggers do not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"notehub/internal/domain"
)

// Store keeps armed triggers in two maps guarded by one mutex: subject id to
// trigger, and trigger key to subject id. Keying the primary map by subject
// enforces the one-scheduled-trigger-per-subject invariant structurally.
// A single lock serializes arm/cancel/claim, which is plenty at expected
// trigger volume and makes the cancel-vs-claim race trivially exclusive.
type Store struct {
	mu        sync.Mutex
	bySubject map[string]*domain.ArmedTrigger
	byKey     map[uuid.UUID]string

	clock func() time.Time
}

func New() *Store {
	return &Store{
		bySubject: make(map[string]*domain.ArmedTrigger),
		byKey:     make(map[uuid.UUID]string),
		clock:     time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) Arm(ctx context.Context, subjectID string, payload []byte, recurrence domain.DailyTime) (uuid.UUID, error) {
	now := s.clock().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.bySubject[subjectID]; ok {
		delete(s.byKey, old.Key)
	}

	t := &domain.ArmedTrigger{
		Key:        uuid.New(),
		SubjectID:  subjectID,
		Recurrence: recurrence,
		NextFireAt: recurrence.Next(now),
		Payload:    payload,
		State:      domain.TriggerStateScheduled,
		CreatedAt:  now,
	}
	s.bySubject[subjectID] = t
	s.byKey[t.Key] = subjectID

	return t.Key, nil
}

func (s *Store) Cancel(ctx context.Context, key uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subjectID, ok := s.byKey[key]
	if !ok {
		return false, nil
	}

	delete(s.bySubject, subjectID)
	delete(s.byKey, key)
	return true, nil
}

func (s *Store) ListDue(ctx context.Context, now time.Time) ([]domain.ArmedTrigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.ArmedTrigger
	for subjectID, t := range s.bySubject {
		if t.NextFireAt.After(now) {
			continue
		}
		claimed := *t
		claimed.State = domain.TriggerStateFired
		due = append(due, claimed)

		delete(s.bySubject, subjectID)
		delete(s.byKey, t.Key)
	}

	return due, nil
}

func (s *Store) Get(ctx context.Context, subjectID string) (domain.ArmedTrigger, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.bySubject[subjectID]
	if !ok {
		return domain.ArmedTrigger{}, false, nil
	}
	return *t, true, nil
}

// Len reports the number of scheduled triggers. Intended for tests and
// status endpoints.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bySubject)
}
