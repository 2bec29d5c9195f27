package postgres

const queryInsertNote = `
INSERT INTO notes (id, title, body, tags, schedule, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const queryGetNote = `
SELECT id, title, body, tags, schedule, created_at, updated_at
FROM notes
WHERE id = $1 AND deleted_at IS NULL`

const queryUpdateNote = `
UPDATE notes
SET title = $2, body = $3, tags = $4, schedule = $5, updated_at = $6
WHERE id = $1 AND deleted_at IS NULL`

const querySoftDeleteNote = `
UPDATE notes
SET deleted_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL`

// Filters match the List contract: empty search matches everything, an
// empty tag array disables the tag filter. ORDER BY is formatted in from
// whitelisted values only.
const queryListNotes = `
SELECT id, title, body, tags, schedule, created_at, updated_at
FROM notes
WHERE deleted_at IS NULL
  AND ($1 = '' OR title ILIKE '%%' || $1 || '%%' OR body ILIKE '%%' || $1 || '%%')
  AND (cardinality($2::text[]) = 0 OR tags && $2::text[])
ORDER BY %s %s
LIMIT $3 OFFSET $4`

const queryCountNotes = `
SELECT count(*)
FROM notes
WHERE deleted_at IS NULL
  AND ($1 = '' OR title ILIKE '%' || $1 || '%' OR body ILIKE '%' || $1 || '%')
  AND (cardinality($2::text[]) = 0 OR tags && $2::text[])`
