package calls

import (
	"errors"
	"time"
)

// Session is the server-side authoritative record of one call attempt.
//
// Invariants:
// - CallID is assigned once, at creation, before ringing is announced.
// - A user participates in at most one session whose status is ringing or
//   accepted at a time.
// - DurationSeconds is computed only when leaving accepted, and is 0 otherwise.
//
// NOTE: This is a domain model only. WebRTC negotiation payloads are never
// stored here; they exist only transiently in the signaling router.

type Session struct {
	CallID     string `json:"call_id" db:"call_id"`
	CallerID   string `json:"caller_id" db:"caller_id"`
	ReceiverID string `json:"receiver_id" db:"receiver_id"`

	Type   CallType `json:"call_type" db:"call_type"`
	Status Status   `json:"status" db:"status"`

	StartTime time.Time `json:"start_time,omitempty" db:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty" db:"end_time"`

	// DurationSeconds is the accepted-to-ended span in seconds.
	// Keep as an int for JSON friendliness; store as INT in Postgres.
	DurationSeconds int `json:"duration" db:"duration"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusRinging  Status = "ringing"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusEnded    Status = "ended"
	StatusMissed   Status = "missed"
)

type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

func (t CallType) Valid() bool {
	return t == CallTypeAudio || t == CallTypeVideo
}

var ErrInvalidTransition = errors.New("calls: invalid transition")

// Accept moves the session from ringing to accepted and stamps the start of
// billable time. The session is left unchanged on error.
func (s *Session) Accept(now time.Time) error {
	if s.Status != StatusRinging {
		return ErrInvalidTransition
	}
	s.Status = StatusAccepted
	s.StartTime = now
	s.UpdatedAt = now
	return nil
}

// Decline moves the session from ringing to the terminal declined status.
func (s *Session) Decline(now time.Time) error {
	if s.Status != StatusRinging {
		return ErrInvalidTransition
	}
	s.Status = StatusDeclined
	s.UpdatedAt = now
	return nil
}

// End moves the session from accepted to ended and computes the duration.
func (s *Session) End(now time.Time) error {
	if s.Status != StatusAccepted {
		return ErrInvalidTransition
	}
	s.Status = StatusEnded
	s.EndTime = now
	if !s.StartTime.IsZero() {
		s.DurationSeconds = int(now.Sub(s.StartTime) / time.Second)
		if s.DurationSeconds < 0 {
			s.DurationSeconds = 0
		}
	}
	s.UpdatedAt = now
	return nil
}

// Missed moves the session from ringing to the terminal missed status. Used
// when the receiver is unreachable at initiation, the ring timed out, or a
// participant disconnected before an answer.
func (s *Session) Missed(now time.Time) error {
	if s.Status != StatusRinging {
		return ErrInvalidTransition
	}
	s.Status = StatusMissed
	s.UpdatedAt = now
	return nil
}

// Terminal reports whether the session can no longer change.
func (s Session) Terminal() bool {
	switch s.Status {
	case StatusDeclined, StatusEnded, StatusMissed:
		return true
	default:
		return false
	}
}

// Live reports whether the session occupies its participants' one-call slot.
func (s Session) Live() bool {
	return s.Status == StatusRinging || s.Status == StatusAccepted
}

func (s Session) HasParticipant(userID string) bool {
	return userID != "" && (s.CallerID == userID || s.ReceiverID == userID)
}

// OtherParty returns the peer of userID, or "" when userID is not a participant.
func (s Session) OtherParty(userID string) string {
	switch userID {
	case s.CallerID:
		return s.ReceiverID
	case s.ReceiverID:
		return s.CallerID
	default:
		return ""
	}
}
