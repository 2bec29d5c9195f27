// Package trigger defines the armed-trigger registry and the arm/cancel
// service exposed to the surrounding note service.
//
// The store holds at most one scheduled trigger per subject. Arming replaces,
// never appends. ListDue claims: due triggers are removed from the store in
// the same atomic step that returns them, so a trigger fires at most once and
// a concurrent cancel observes either the trigger or its absence, never both.
package trigger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"notehub/internal/domain"
)

// Store is the persistent registry of armed triggers, keyed by subject id.
type Store interface {
	// Arm stores a scheduled trigger for the subject, atomically replacing
	// any existing scheduled trigger (the reschedule path). NextFireAt is
	// the soonest future instant matching the recurrence. Returns the new
	// trigger's key.
	Arm(ctx context.Context, subjectID string, payload []byte, recurrence domain.DailyTime) (uuid.UUID, error)

	// Cancel removes the scheduled trigger with the given key. Returns false
	// when no scheduled trigger has that key (unknown, already fired, or
	// already cancelled) - a normal negative result, not an error.
	Cancel(ctx context.Context, key uuid.UUID) (bool, error)

	// ListDue claims every scheduled trigger with NextFireAt <= now: the
	// returned triggers are removed from the store as part of the call and
	// come back in state fired.
	ListDue(ctx context.Context, now time.Time) ([]domain.ArmedTrigger, error)

	// Get returns the scheduled trigger for a subject, if any. Read-only.
	Get(ctx context.Context, subjectID string) (domain.ArmedTrigger, bool, error)
}
