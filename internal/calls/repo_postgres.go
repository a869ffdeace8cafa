package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// NOTE: This store assumes the following table exists:
//
// CREATE TABLE call_records (
//     call_id     TEXT PRIMARY KEY,
//     caller_id   TEXT NOT NULL,
//     receiver_id TEXT NOT NULL,
//     call_type   TEXT NOT NULL,
//     status      TEXT NOT NULL,
//     start_time  TIMESTAMPTZ,
//     end_time    TIMESTAMPTZ,
//     duration    INT NOT NULL DEFAULT 0,
//     created_at  TIMESTAMPTZ NOT NULL,
//     updated_at  TIMESTAMPTZ NOT NULL
// );
// CREATE INDEX ON call_records (caller_id, created_at DESC);
// CREATE INDEX ON call_records (receiver_id, created_at DESC);

// PostgresStore is the durable call-record store (pgx stdlib driver).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Upsert(ctx context.Context, s Session) error {
	if s.CallID == "" {
		return errors.New("call_id required")
	}
	const q = `
INSERT INTO call_records (call_id, caller_id, receiver_id, call_type, status, start_time, end_time, duration, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (call_id) DO UPDATE SET
    status     = EXCLUDED.status,
    start_time = EXCLUDED.start_time,
    end_time   = EXCLUDED.end_time,
    duration   = EXCLUDED.duration,
    updated_at = EXCLUDED.updated_at
`
	_, err := p.db.ExecContext(ctx, q,
		s.CallID,
		s.CallerID,
		s.ReceiverID,
		string(s.Type),
		string(s.Status),
		nullTime(s.StartTime),
		nullTime(s.EndTime),
		s.DurationSeconds,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) GetByCallID(ctx context.Context, callID string) (Session, error) {
	const q = `
SELECT call_id, caller_id, receiver_id, call_type, status, start_time, end_time, duration, created_at, updated_at
FROM call_records
WHERE call_id = $1
`
	return scanSession(p.db.QueryRowContext(ctx, q, callID))
}

func (p *PostgresStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `
SELECT call_id, caller_id, receiver_id, call_type, status, start_time, end_time, duration, created_at, updated_at
FROM call_records
WHERE caller_id = $1 OR receiver_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`
	rows, err := p.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Session, 0, limit)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (Session, error) {
	var (
		s          Session
		typ        string
		status     string
		start, end sql.NullTime
	)
	err := r.Scan(
		&s.CallID,
		&s.CallerID,
		&s.ReceiverID,
		&typ,
		&status,
		&start,
		&end,
		&s.DurationSeconds,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	s.Type = CallType(typ)
	s.Status = Status(status)
	if start.Valid {
		s.StartTime = start.Time
	}
	if end.Valid {
		s.EndTime = end.Time
	}
	return s, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
