package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor capture is best-effort; do not block realtime flows on audit failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the lifecycle category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the user whose action caused the event (if applicable).
	// System-driven events (ring timeout, disconnect cleanup) leave it empty.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`

	// PeerUserID is the other participant, when the event concerns a pair.
	PeerUserID string `json:"peer_user_id,omitempty" db:"peer_user_id"`

	// Target identifiers (optional, depending on the event type).
	CallID string `json:"call_id,omitempty" db:"call_id"`
	ConnID string `json:"conn_id,omitempty" db:"conn_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallInitiated   EventType = "call_initiated"
	EventTypeCallAccepted    EventType = "call_accepted"
	EventTypeCallDeclined    EventType = "call_declined"
	EventTypeCallEnded       EventType = "call_ended"
	EventTypeCallMissed      EventType = "call_missed"
	EventTypePresenceEvicted EventType = "presence_evicted"
)
