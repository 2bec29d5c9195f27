package postgres

const queryInsertTrigger = `
INSERT INTO triggers (key, subject_id, hour, minute, next_fire_at, payload, state, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const queryDeleteBySubject = `
DELETE FROM triggers WHERE subject_id = $1 AND state = 'scheduled'
`

const queryCancelTrigger = `
DELETE FROM triggers
WHERE key = $1
  AND state = 'scheduled'
`

const queryClaimDue = `
DELETE FROM triggers
WHERE key IN (
    SELECT key FROM triggers
    WHERE state = 'scheduled'
      AND next_fire_at <= $1
    FOR UPDATE SKIP LOCKED
)
RETURNING key, subject_id, hour, minute, next_fire_at, payload, created_at
`

const queryGetBySubject = `
SELECT key, subject_id, hour, minute, next_fire_at, payload, state, created_at
FROM triggers
WHERE subject_id = $1
  AND state = 'scheduled'
`
