// Package postgres provides the durable note store backed by lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"notehub/internal/domain"
	"notehub/internal/notes"
)

type Store struct {
	db        *sql.DB
	opTimeout time.Duration
	clock     func() time.Time
}

func New(db *sql.DB, opTimeout time.Duration) *Store {
	return &Store{
		db:        db,
		opTimeout: opTimeout,
		clock:     time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *Store) Create(ctx context.Context, note domain.Note) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, queryInsertNote,
		note.ID,
		note.Title,
		note.Body,
		pq.Array(note.Tags),
		note.Schedule,
		note.CreatedAt,
		note.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (domain.Note, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var note domain.Note
	err := s.db.QueryRowContext(ctx, queryGetNote, id).Scan(
		&note.ID,
		&note.Title,
		&note.Body,
		pq.Array(&note.Tags),
		&note.Schedule,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.Note{}, notes.ErrNoteNotFound
	}
	if err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

func (s *Store) Update(ctx context.Context, note domain.Note) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, queryUpdateNote,
		note.ID,
		note.Title,
		note.Body,
		pq.Array(note.Tags),
		note.Schedule,
		s.clock().UTC(),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notes.ErrNoteNotFound
	}
	return nil
}

func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, querySoftDeleteNote, id, s.clock().UTC())
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notes.ErrNoteNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, params notes.ListParams) ([]domain.Note, int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	params = params.Normalize()

	var total int
	err := s.db.QueryRowContext(ctx, queryCountNotes,
		params.Search,
		pq.Array(params.Tags),
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	// Normalize whitelists sort values, so formatting them in is safe.
	query := fmt.Sprintf(queryListNotes, params.SortBy, params.SortOrder)
	rows, err := s.db.QueryContext(ctx, query,
		params.Search,
		pq.Array(params.Tags),
		params.Limit,
		params.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Note
	for rows.Next() {
		var note domain.Note
		err := rows.Scan(
			&note.ID,
			&note.Title,
			&note.Body,
			pq.Array(&note.Tags),
			&note.Schedule,
			&note.CreatedAt,
			&note.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, note)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Compile-time interface assertion
var _ notes.Store = (*Store)(nil)
