package calls

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("calls: not found")

// Store is the durable call-record contract.
//
// Upsert must be idempotent and keyed by call_id: the service re-persists the
// full session after every transition, and a retried write must not duplicate
// history. In-memory service state remains the source of truth for live
// routing decisions; the store is for history that survives restarts.

type Store interface {
	Upsert(ctx context.Context, s Session) error
	GetByCallID(ctx context.Context, callID string) (Session, error)

	// ListByUser returns sessions where the user was caller or receiver,
	// newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Session, error)
}
