package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Conn is one live, full-duplex, message-oriented channel to a user.
// The registry owns the mapping from user to Conn but never reads from it;
// writing and closing are the only operations it needs.
type Conn interface {
	// ID distinguishes physical connections. Two connections for the same
	// user must have different IDs so a stale disconnect cannot remove a
	// newer registration.
	ID() string

	// Send queues one outbound event. It must not block.
	Send(event string, data any) error

	Close() error
}

// Mirror publishes best-effort online state to an external store so other
// processes (e.g. the REST layer) can answer "who is online". Failures are
// logged and never affect the in-memory registry, which stays authoritative.
type Mirror interface {
	SetOnline(ctx context.Context, userID, connID string) error
	ClearOnline(ctx context.Context, userID, connID string) error
	Refresh(ctx context.Context, userID, connID string) error
}

type entry struct {
	conn     Conn
	joinedAt time.Time
}

// Registry maintains the user -> active connection mapping.
//
// Invariant: at most one connection is resolvable per user at any time.
// Registering a second connection for a user evicts and closes the first.
type Registry struct {
	mu     sync.Mutex
	byUser map[string]entry

	mirror Mirror
	log    *slog.Logger
	clock  func() time.Time
}

type Option func(*Registry)

func WithMirror(m Mirror) Option {
	return func(r *Registry) { r.mirror = m }
}

func WithClock(clock func() time.Time) Option {
	return func(r *Registry) { r.clock = clock }
}

func NewRegistry(log *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		byUser: make(map[string]entry),
		log:    log,
		clock:  time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register stores conn as the active connection for userID. A previously
// registered connection for the same user is force-closed: the newest
// device owns presence. Closing and mirror publication happen outside the
// lock; critical sections here are pointer swaps only.
func (r *Registry) Register(ctx context.Context, userID string, conn Conn) {
	r.mu.Lock()
	prev, hadPrev := r.byUser[userID]
	r.byUser[userID] = entry{conn: conn, joinedAt: r.clock()}
	r.mu.Unlock()

	if hadPrev && prev.conn.ID() != conn.ID() {
		r.log.Info("presence evicted prior connection",
			"user_id", userID, "old_conn", prev.conn.ID(), "new_conn", conn.ID())
		_ = prev.conn.Close()
	}

	if r.mirror != nil {
		go func() {
			if err := r.mirror.SetOnline(ctx, userID, conn.ID()); err != nil {
				r.log.Warn("presence mirror set failed", "user_id", userID, "err", err)
			}
		}()
	}
}

// Resolve returns the active connection for userID. A miss is not an error;
// it is the normal "user offline" signal.
func (r *Registry) Resolve(userID string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Unregister removes the entry for conn's user, but only if the stored
// entry still points at this exact connection. A disconnect of an evicted
// connection arriving after a newer registration must not remove the newer
// one. Returns the owning user and whether an entry was removed.
func (r *Registry) Unregister(ctx context.Context, userID string, conn Conn) (removed bool) {
	r.mu.Lock()
	e, ok := r.byUser[userID]
	if ok && e.conn.ID() == conn.ID() {
		delete(r.byUser, userID)
		removed = true
	}
	r.mu.Unlock()

	if removed && r.mirror != nil {
		go func() {
			if err := r.mirror.ClearOnline(ctx, userID, conn.ID()); err != nil {
				r.log.Warn("presence mirror clear failed", "user_id", userID, "err", err)
			}
		}()
	}
	return removed
}

// Refresh extends the mirror's liveness claim for a connection. Called from
// the connection's ping loop; a no-op without a mirror.
func (r *Registry) Refresh(ctx context.Context, userID string, conn Conn) {
	if r.mirror == nil {
		return
	}
	if err := r.mirror.Refresh(ctx, userID, conn.ID()); err != nil {
		r.log.Warn("presence mirror refresh failed", "user_id", userID, "err", err)
	}
}

// JoinedAt reports when the user's current connection registered.
func (r *Registry) JoinedAt(userID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byUser[userID]
	if !ok {
		return time.Time{}, false
	}
	return e.joinedAt, true
}

// OnlineCount reports how many users currently have a live connection.
func (r *Registry) OnlineCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}
