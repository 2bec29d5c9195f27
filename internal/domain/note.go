package domain

import (
	"time"

	"github.com/google/uuid"
)

// Note is the stored note record. DeletedAt is a soft-delete marker; deleted
// notes are excluded from reads but kept in the table.
type Note struct {
	ID uuid.UUID

	Title string
	Body  string
	Tags  []string

	// Schedule is the raw HH:mm notification schedule, empty when the note
	// has no armed trigger.
	Schedule string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
