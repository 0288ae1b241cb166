package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// nullIfEmpty stores "" as SQL NULL so unique indexes on optional columns
// ignore it.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func textOrEmpty(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

func timestamptzPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// datePtr drops the session time zone pgx attaches to DATE values.
func datePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	y, m, day := d.Time.Date()
	v := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return &v
}

func uuidOrEmpty(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// validID reports whether id can be compared against a uuid column. Anything
// else cannot match a row and is treated as not found by callers.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}
