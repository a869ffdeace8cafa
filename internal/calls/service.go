package calls

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"peerlink/internal/audit"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgument = errors.New("calls: invalid argument")
	ErrSelfCall        = errors.New("calls: cannot call yourself")
	ErrCallerBusy      = errors.New("calls: caller already in a call")
	ErrReceiverBusy    = errors.New("calls: receiver already in a call")
	ErrNotReceiver     = errors.New("calls: only the receiver may answer")
	ErrNotParticipant  = errors.New("calls: not a participant of this call")
)

// Service owns the authoritative state of every in-flight call.
//
// Concurrency model: a single mutex guards the session table and the
// per-user busy index. Critical sections are small struct mutations only;
// persistence to the store is dispatched after the lock is released, so a
// slow store write cannot stall routing for other users.
type Service struct {
	mu       sync.Mutex
	byCallID map[string]*Session
	byUser   map[string]string // userID -> live callID (ringing or accepted)
	timers   map[string]*time.Timer

	store Store
	audit *audit.Service
	log   *slog.Logger

	clock       func() time.Time
	ringTimeout time.Duration

	// onRingExpired is invoked (outside the lock) when a ringing call times
	// out server-side, so the transport can notify both participants.
	onRingExpired func(Session)

	persistTimeout time.Duration
}

type ServiceOption func(*Service)

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// WithRingTimeout bounds how long a call may stay ringing. Zero disables the
// server-side timeout: the call rings until answered, declined, or a
// participant disconnects.
func WithRingTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.ringTimeout = d }
}

func WithAudit(a *audit.Service) ServiceOption {
	return func(s *Service) { s.audit = a }
}

func NewService(store Store, log *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		byCallID:       make(map[string]*Session),
		byUser:         make(map[string]string),
		timers:         make(map[string]*time.Timer),
		store:          store,
		log:            log,
		clock:          time.Now,
		persistTimeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetRingExpiredHandler installs the ring-timeout notification hook. Must be
// called during wiring, before connections are accepted.
func (s *Service) SetRingExpiredHandler(fn func(Session)) {
	s.onRingExpired = fn
}

// Initiate allocates a new ringing session. The receiver's reachability is
// the signaling router's concern, not this method's; its busy state IS
// checked here so a user already in a call is never rung.
func (s *Service) Initiate(ctx context.Context, callerID, receiverID string, callType CallType) (Session, error) {
	if callerID == "" || receiverID == "" {
		return Session{}, ErrInvalidArgument
	}
	if callerID == receiverID {
		return Session{}, ErrSelfCall
	}
	if callType == "" {
		callType = CallTypeVideo
	}
	if !callType.Valid() {
		return Session{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	sess := &Session{
		CallID:     uuid.NewString(),
		CallerID:   callerID,
		ReceiverID: receiverID,
		Type:       callType,
		Status:     StatusRinging,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	if _, busy := s.byUser[callerID]; busy {
		s.mu.Unlock()
		return Session{}, ErrCallerBusy
	}
	if _, busy := s.byUser[receiverID]; busy {
		s.mu.Unlock()
		return Session{}, ErrReceiverBusy
	}
	s.byCallID[sess.CallID] = sess
	s.byUser[callerID] = sess.CallID
	s.byUser[receiverID] = sess.CallID
	if s.ringTimeout > 0 {
		callID := sess.CallID
		s.timers[callID] = time.AfterFunc(s.ringTimeout, func() {
			s.expireRing(callID)
		})
	}
	snap := *sess
	s.mu.Unlock()

	s.persistAsync(snap)
	s.auditTransition(ctx, audit.EventTypeCallInitiated, snap, callerID)
	return snap, nil
}

// Accept transitions callID from ringing to accepted. Only the session's
// receiver may accept.
func (s *Service) Accept(ctx context.Context, callID, byUserID string) (Session, error) {
	snap, err := s.transition(callID, func(sess *Session, now time.Time) error {
		if byUserID != sess.ReceiverID {
			return ErrNotReceiver
		}
		return sess.Accept(now)
	})
	if err != nil {
		return Session{}, err
	}
	s.persistAsync(snap)
	s.auditTransition(ctx, audit.EventTypeCallAccepted, snap, byUserID)
	return snap, nil
}

// Decline transitions callID from ringing to declined. Only the session's
// receiver may decline.
func (s *Service) Decline(ctx context.Context, callID, byUserID string) (Session, error) {
	snap, err := s.transition(callID, func(sess *Session, now time.Time) error {
		if byUserID != sess.ReceiverID {
			return ErrNotReceiver
		}
		return sess.Decline(now)
	})
	if err != nil {
		return Session{}, err
	}
	s.persistAsync(snap)
	s.auditTransition(ctx, audit.EventTypeCallDeclined, snap, byUserID)
	return snap, nil
}

// End transitions callID from accepted to ended. Either participant may end.
func (s *Service) End(ctx context.Context, callID, byUserID string) (Session, error) {
	snap, err := s.transition(callID, func(sess *Session, now time.Time) error {
		if !sess.HasParticipant(byUserID) {
			return ErrNotParticipant
		}
		return sess.End(now)
	})
	if err != nil {
		return Session{}, err
	}
	s.persistAsync(snap)
	s.auditTransition(ctx, audit.EventTypeCallEnded, snap, byUserID)
	return snap, nil
}

// Missed settles a ringing session that could not reach its receiver. The
// caller's UI gets a one-shot unreachable notice; incoming_call is never
// announced for it.
func (s *Service) Missed(ctx context.Context, callID string) (Session, error) {
	snap, err := s.transition(callID, func(sess *Session, now time.Time) error {
		return sess.Missed(now)
	})
	if err != nil {
		return Session{}, err
	}
	s.persistAsync(snap)
	s.auditTransition(ctx, audit.EventTypeCallMissed, snap, "")
	return snap, nil
}

// HandleDisconnect closes out the disconnecting user's live session, if any:
// an accepted call ends (with duration), a ringing call settles to missed.
// Without this, a vanished participant would hold both users' one-call slot
// indefinitely. Returns the terminal snapshot so the transport can notify
// the surviving peer.
func (s *Service) HandleDisconnect(ctx context.Context, userID string) (Session, bool) {
	s.mu.Lock()
	callID, ok := s.byUser[userID]
	s.mu.Unlock()
	if !ok {
		return Session{}, false
	}

	if snap, err := s.End(ctx, callID, userID); err == nil {
		return snap, true
	}
	if snap, err := s.Missed(ctx, callID); err == nil {
		return snap, true
	}
	// Lost a race with another terminal transition; nothing left to do.
	return Session{}, false
}

// ActiveCall reports the user's live session, if any.
func (s *Service) ActiveCall(userID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	callID, ok := s.byUser[userID]
	if !ok {
		return Session{}, false
	}
	sess, ok := s.byCallID[callID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Get returns the in-memory session for callID.
func (s *Service) Get(callID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byCallID[callID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// transition applies fn to the session under the lock and evicts terminal
// sessions from the live table. The returned snapshot is safe to use after
// the lock is released.
func (s *Service) transition(callID string, fn func(*Session, time.Time) error) (Session, error) {
	now := s.clock().UTC()

	s.mu.Lock()
	sess, ok := s.byCallID[callID]
	if !ok {
		s.mu.Unlock()
		return Session{}, ErrNotFound
	}
	if err := fn(sess, now); err != nil {
		s.mu.Unlock()
		return Session{}, err
	}
	snap := *sess
	if snap.Terminal() {
		s.evictLocked(snap)
	}
	if t, ok := s.timers[callID]; ok && snap.Status != StatusRinging {
		t.Stop()
		delete(s.timers, callID)
	}
	s.mu.Unlock()
	return snap, nil
}

// evictLocked releases the participants' one-call slots and drops the
// terminal session from memory. The durable record lives in the store.
func (s *Service) evictLocked(snap Session) {
	delete(s.byCallID, snap.CallID)
	if s.byUser[snap.CallerID] == snap.CallID {
		delete(s.byUser, snap.CallerID)
	}
	if s.byUser[snap.ReceiverID] == snap.CallID {
		delete(s.byUser, snap.ReceiverID)
	}
}

func (s *Service) expireRing(callID string) {
	snap, err := s.Missed(context.Background(), callID)
	if err != nil {
		// Answered or otherwise settled before the timer fired.
		return
	}
	s.log.Info("call ring timed out", "call_id", callID)
	if s.onRingExpired != nil {
		s.onRingExpired(snap)
	}
}

// persistAsync upserts the session snapshot without holding any lock and
// without blocking the event path. History writes are best-effort from the
// router's perspective; failures are logged, never surfaced to participants.
func (s *Service) persistAsync(snap Session) {
	if s.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		if err := s.store.Upsert(ctx, snap); err != nil {
			s.log.Error("call record upsert failed", "call_id", snap.CallID, "status", string(snap.Status), "err", err)
		}
	}()
}

func (s *Service) auditTransition(ctx context.Context, typ audit.EventType, snap Session, actor string) {
	if s.audit == nil {
		return
	}
	peer := ""
	if actor != "" {
		peer = snap.OtherParty(actor)
	}
	if err := s.audit.LogCallTransition(ctx, typ, snap.CallID, actor, peer, string(snap.Status)); err != nil {
		s.log.Warn("audit append failed", "call_id", snap.CallID, "err", err)
	}
}
