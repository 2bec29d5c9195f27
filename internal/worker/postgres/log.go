// Package postgres persists delivery records for audit queries.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"notehub/internal/domain"
	"notehub/internal/worker"
)

const queryInsertDelivery = `
INSERT INTO delivery_records (id, trigger_key, subject_id, outcome, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

type DeliveryLog struct {
	db        *sql.DB
	opTimeout time.Duration
}

func NewDeliveryLog(db *sql.DB, opTimeout time.Duration) *DeliveryLog {
	return &DeliveryLog{db: db, opTimeout: opTimeout}
}

func (l *DeliveryLog) Record(ctx context.Context, rec domain.DeliveryRecord) error {
	if l.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opTimeout)
		defer cancel()
	}

	_, err := l.db.ExecContext(ctx, queryInsertDelivery,
		rec.ID,
		rec.TriggerKey,
		rec.SubjectID,
		string(rec.Outcome),
		rec.Error,
		rec.StartedAt,
		rec.FinishedAt,
	)
	return err
}

// Compile-time interface assertion
var _ worker.DeliveryLog = (*DeliveryLog)(nil)
