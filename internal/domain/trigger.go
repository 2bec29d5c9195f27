package domain

import (
	"time"

	"github.com/google/uuid"
)

type TriggerState string

const (
	TriggerStateScheduled TriggerState = "scheduled"
	TriggerStateFired     TriggerState = "fired"
	TriggerStateCancelled TriggerState = "cancelled"
)

// ArmedTrigger is a single-fire daily trigger owned by the trigger store
// while scheduled. Ownership moves to the worker once it is claimed.
type ArmedTrigger struct {
	Key       uuid.UUID
	SubjectID string

	Recurrence DailyTime
	NextFireAt time.Time

	Payload []byte
	State   TriggerState

	CreatedAt time.Time
}

// DailyTime is a wall-clock recurrence: fire every day at Hour:Minute.
// Values come from the schedule compiler; they are not range-checked
// beyond the two-digit input shape.
type DailyTime struct {
	Hour   int
	Minute int
}

// Next returns the soonest instant strictly after `after` whose wall clock
// in after's location equals Hour:Minute, rolling to the next calendar day
// when today's occurrence has already passed. Out-of-range components
// normalize through time.Date.
func (d DailyTime) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), d.Hour, d.Minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
