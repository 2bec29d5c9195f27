package domain

import (
	"time"

	"github.com/google/uuid"
)

// FireEvent is the one-time signal handed from the scheduler to the worker
// when a trigger becomes due. Each event is emitted exactly once per claim;
// it is never replayed.
type FireEvent struct {
	TriggerKey uuid.UUID
	SubjectID  string

	Payload []byte

	ScheduledAt time.Time // intended fire time (UTC)
	FiredAt     time.Time // actual claim time
}
