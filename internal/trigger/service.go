package trigger

import (
	"context"
	"log"

	"github.com/google/uuid"

	"notehub/internal/domain"
	"notehub/internal/schedule"
)

// Service is the arm/cancel surface consumed by the note layer. It compiles
// the raw HH:mm spec and delegates to the store; it carries no state of its
// own.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Arm compiles spec and arms (or rearms) the trigger for the subject.
// Fails with schedule.ErrInvalidScheduleFormat before touching the store.
func (s *Service) Arm(ctx context.Context, subjectID, spec string, payload []byte) (uuid.UUID, error) {
	recurrence, err := schedule.Compile(spec)
	if err != nil {
		return uuid.Nil, err
	}

	// The compile contract stays permissive; values outside the cron range
	// still arm, they just normalize at fire time via date wrapping.
	if err := schedule.ValidateCron(recurrence); err != nil {
		log.Printf("WARNING [P1]: schedule %q for subject %s is not broker-compatible "+
			"(fire time normalizes by date wrapping): %v", spec, subjectID, err)
	}

	return s.store.Arm(ctx, subjectID, payload, recurrence)
}

// Cancel withdraws a scheduled trigger by key. False means no live trigger
// had that key.
func (s *Service) Cancel(ctx context.Context, key uuid.UUID) (bool, error) {
	return s.store.Cancel(ctx, key)
}

// Get returns the armed trigger for a subject, if one is scheduled.
func (s *Service) Get(ctx context.Context, subjectID string) (domain.ArmedTrigger, bool, error) {
	return s.store.Get(ctx, subjectID)
}
