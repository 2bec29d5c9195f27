// Package notes defines the note store contract. Notes are soft-deleted;
// callers never see a deleted note but its row survives for audit.
package notes

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"notehub/internal/domain"
)

// ErrNoteNotFound is returned when a note does not exist or is deleted.
var ErrNoteNotFound = errors.New("note not found")

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListParams filters and pages note listings.
type ListParams struct {
	Limit  int
	Offset int

	// Search matches title or body, case-insensitive.
	Search string

	// Tags restricts to notes carrying at least one of the given tags.
	Tags []string

	// SortBy is one of "created_at", "updated_at", "title".
	SortBy string

	// SortOrder is "asc" or "desc".
	SortOrder string
}

// Normalize clamps paging values and falls back to defaults for unknown
// sort fields instead of erroring.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	switch p.SortBy {
	case "created_at", "updated_at", "title":
	default:
		p.SortBy = "created_at"
	}
	switch p.SortOrder {
	case "asc", "desc":
	default:
		p.SortOrder = "desc"
	}
	return p
}

// Store persists notes.
type Store interface {
	Create(ctx context.Context, note domain.Note) error
	Get(ctx context.Context, id uuid.UUID) (domain.Note, error)
	Update(ctx context.Context, note domain.Note) error

	// SoftDelete marks the note deleted. Returns ErrNoteNotFound if the
	// note does not exist or is already deleted.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// List returns a page of live notes plus the total count matching the
	// filters.
	List(ctx context.Context, params ListParams) ([]domain.Note, int, error)
}
