package presence

import (
	"context"
	"time"

	"peerlink/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisMirror publishes presence to redis as TTL'd ownership keys
// (presence:<user_id> = <conn_id>). The TTL guarantees a crashed process
// cannot leave users marked online forever; the owner guard guarantees a
// stale disconnect cannot clear a newer connection's claim.
type RedisMirror struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisMirror(rdb *redis.Client, ttl time.Duration) *RedisMirror {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &RedisMirror{rdb: rdb, ttl: ttl}
}

func (m *RedisMirror) SetOnline(ctx context.Context, userID, connID string) error {
	return utils.ClaimPresence(ctx, m.rdb, presenceKey(userID), connID, m.ttl)
}

func (m *RedisMirror) ClearOnline(ctx context.Context, userID, connID string) error {
	return utils.ReleasePresence(ctx, m.rdb, presenceKey(userID), connID)
}

func (m *RedisMirror) Refresh(ctx context.Context, userID, connID string) error {
	return utils.RefreshPresence(ctx, m.rdb, presenceKey(userID), connID, m.ttl)
}

// IsOnline answers whether any process currently holds a presence claim for
// the user. Used by the REST layer, not by routing (routing resolves through
// the in-memory registry only).
func (m *RedisMirror) IsOnline(ctx context.Context, userID string) (bool, error) {
	_, err := m.rdb.Get(ctx, presenceKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func presenceKey(userID string) string {
	return "presence:" + userID
}
