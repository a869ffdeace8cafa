package history

import "time"

type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// HistoryRequest pages through one user's settled and in-flight calls.
// UserID is required and always scopes the read; a user can only ever see
// calls they participated in.

type HistoryRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Entry is one call as seen from the requesting user's side.

type Entry struct {
	CallID    string    `json:"call_id"`
	PeerID    string    `json:"peer_id"`
	Direction Direction `json:"direction"`
	CallType  string    `json:"call_type"`
	Status    string    `json:"status"`

	StartTime       time.Time `json:"start_time,omitempty"`
	EndTime         time.Time `json:"end_time,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`

	CreatedAt time.Time `json:"created_at"`
}

type HistoryPage struct {
	UserID  string  `json:"user_id"`
	Entries []Entry `json:"entries"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
	HasMore bool    `json:"has_more"`
}

// SummaryRequest requests aggregated call metrics for one user.

type SummaryRequest struct {
	UserID string `json:"user_id"`
}

type Summary struct {
	UserID string `json:"user_id"`

	TotalCalls    int `json:"total_calls"`
	OutgoingCalls int `json:"outgoing_calls"`
	IncomingCalls int `json:"incoming_calls"`

	EndedCalls    int `json:"ended_calls"`
	DeclinedCalls int `json:"declined_calls"`
	MissedCalls   int `json:"missed_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}
