package audit

import (
	"context"
	"database/sql"
)

// NOTE: This repo assumes the following table exists:
//
// CREATE TABLE audit_events (
//     id            TEXT PRIMARY KEY,
//     event_type    TEXT NOT NULL,
//     actor_user_id TEXT NOT NULL DEFAULT '',
//     peer_user_id  TEXT NOT NULL DEFAULT '',
//     call_id       TEXT NOT NULL DEFAULT '',
//     conn_id       TEXT NOT NULL DEFAULT '',
//     message       TEXT NOT NULL DEFAULT '',
//     metadata      TEXT NOT NULL DEFAULT '',
//     created_at    TIMESTAMPTZ NOT NULL
// );
// CREATE INDEX ON audit_events (call_id, created_at);
//
// Append-only on purpose: no UPDATE or DELETE is ever issued here.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, event_type, actor_user_id, peer_user_id, call_id, conn_id, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		e.ActorUserID,
		e.PeerUserID,
		e.CallID,
		e.ConnID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
