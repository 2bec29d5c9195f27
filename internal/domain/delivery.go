package domain

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryOutcome string

const (
	DeliveryOutcomeDelivered DeliveryOutcome = "delivered"
	DeliveryOutcomeFailed    DeliveryOutcome = "failed"
)

// DeliveryRecord captures the outcome of one dispatch. Failed dispatches are
// retained as records; they are never retried.
type DeliveryRecord struct {
	ID         uuid.UUID
	TriggerKey uuid.UUID
	SubjectID  string

	Outcome DeliveryOutcome
	Error   string

	StartedAt  time.Time
	FinishedAt time.Time
}
