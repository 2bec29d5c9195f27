// Package memory provides the in-memory note store used for single-process
// deployments. Notes do not survive a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"notehub/internal/domain"
	"notehub/internal/notes"
)

type Store struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]domain.Note
	clock func() time.Time
}

func New() *Store {
	return &Store{
		byID:  make(map[uuid.UUID]domain.Note),
		clock: time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) Create(ctx context.Context, note domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[note.ID] = note
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.byID[id]
	if !ok || note.DeletedAt != nil {
		return domain.Note{}, notes.ErrNoteNotFound
	}
	return note, nil
}

func (s *Store) Update(ctx context.Context, note domain.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[note.ID]
	if !ok || existing.DeletedAt != nil {
		return notes.ErrNoteNotFound
	}
	note.UpdatedAt = s.clock().UTC()
	s.byID[note.ID] = note
	return nil
}

func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.byID[id]
	if !ok || note.DeletedAt != nil {
		return notes.ErrNoteNotFound
	}
	now := s.clock().UTC()
	note.DeletedAt = &now
	note.UpdatedAt = now
	s.byID[id] = note
	return nil
}

func (s *Store) List(ctx context.Context, params notes.ListParams) ([]domain.Note, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	params = params.Normalize()

	var matched []domain.Note
	for _, note := range s.byID {
		if note.DeletedAt != nil {
			continue
		}
		if !matchesSearch(note, params.Search) {
			continue
		}
		if !matchesTags(note, params.Tags) {
			continue
		}
		matched = append(matched, note)
	}

	sortNotes(matched, params.SortBy, params.SortOrder)

	total := len(matched)
	if params.Offset >= total {
		return nil, total, nil
	}
	end := params.Offset + params.Limit
	if end > total {
		end = total
	}
	return matched[params.Offset:end], total, nil
}

func matchesSearch(note domain.Note, search string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(note.Title), search) ||
		strings.Contains(strings.ToLower(note.Body), search)
}

func matchesTags(note domain.Note, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range note.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

func sortNotes(list []domain.Note, sortBy, sortOrder string) {
	less := func(i, j int) bool {
		switch sortBy {
		case "title":
			return list[i].Title < list[j].Title
		case "updated_at":
			return list[i].UpdatedAt.Before(list[j].UpdatedAt)
		default:
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
	}
	if sortOrder == "desc" {
		sort.SliceStable(list, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(list, less)
}

// Compile-time interface assertion
var _ notes.Store = (*Store)(nil)
