// Package postgres provides the durable trigger store. Armed triggers
// survive process restarts; a single DELETE ... RETURNING claims due
// triggers atomically, so cancel and claim on the same key always have
// exactly one winner regardless of how many instances share the table.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"notehub/internal/domain"
	"notehub/internal/trigger"
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

func (s *Store) Arm(ctx context.Context, subjectID string, payload []byte, recurrence domain.DailyTime) (uuid.UUID, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.clock().UTC()
	t := domain.ArmedTrigger{
		Key:        uuid.New(),
		SubjectID:  subjectID,
		Recurrence: recurrence,
		NextFireAt: recurrence.Next(now),
		Payload:    payload,
		State:      domain.TriggerStateScheduled,
		CreatedAt:  now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	// Replace-then-insert inside one transaction keeps the
	// one-scheduled-trigger-per-subject invariant; the unique index on
	// subject_id backstops it.
	if _, err := tx.ExecContext(ctx, queryDeleteBySubject, subjectID); err != nil {
		return uuid.Nil, err
	}
	_, err = tx.ExecContext(ctx, queryInsertTrigger,
		t.Key,
		t.SubjectID,
		t.Recurrence.Hour,
		t.Recurrence.Minute,
		t.NextFireAt,
		t.Payload,
		string(t.State),
		t.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}
	return t.Key, nil
}

func (s *Store) Cancel(ctx context.Context, key uuid.UUID) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// The state guard in the WHERE clause makes cancel-vs-claim mutually
	// exclusive: whichever statement touches the row first wins, the other
	// sees zero rows.
	result, err := s.db.ExecContext(ctx, queryCancelTrigger, key)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) ListDue(ctx context.Context, now time.Time) ([]domain.ArmedTrigger, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryClaimDue, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []domain.ArmedTrigger
	for rows.Next() {
		var t domain.ArmedTrigger
		err := rows.Scan(
			&t.Key,
			&t.SubjectID,
			&t.Recurrence.Hour,
			&t.Recurrence.Minute,
			&t.NextFireAt,
			&t.Payload,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		t.State = domain.TriggerStateFired
		due = append(due, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return due, nil
}

func (s *Store) Get(ctx context.Context, subjectID string) (domain.ArmedTrigger, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var t domain.ArmedTrigger
	var state string
	err := s.db.QueryRowContext(ctx, queryGetBySubject, subjectID).Scan(
		&t.Key,
		&t.SubjectID,
		&t.Recurrence.Hour,
		&t.Recurrence.Minute,
		&t.NextFireAt,
		&t.Payload,
		&state,
		&t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.ArmedTrigger{}, false, nil
	}
	if err != nil {
		return domain.ArmedTrigger{}, false, err
	}
	t.State = domain.TriggerState(state)
	return t, true, nil
}

// Compile-time interface assertion
var _ trigger.Store = (*Store)(nil)
