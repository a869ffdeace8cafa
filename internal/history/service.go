package history

import (
	"context"
	"errors"

	"peerlink/internal/calls"
)

var (
	ErrInvalidRequest = errors.New("history: invalid request")
	ErrForbidden      = errors.New("history: not a participant of this call")
)

const (
	defaultLimit = 20
	maxLimit     = 100

	// summaryChunk bounds each store read while aggregating a user's full
	// history.
	summaryChunk = 500
)

// Service answers read-only questions about call records. It reads the same
// store the call session manager writes; the realtime path never waits on it.
type Service struct {
	store calls.Store
}

func NewService(store calls.Store) *Service { return &Service{store: store} }

// History returns one page of the user's calls, newest first. HasMore is
// computed by reading one row past the page.
func (s *Service) History(ctx context.Context, req HistoryRequest) (HistoryPage, error) {
	if req.UserID == "" {
		return HistoryPage{}, ErrInvalidRequest
	}
	if req.Limit < 0 || req.Offset < 0 {
		return HistoryPage{}, ErrInvalidRequest
	}
	if s.store == nil {
		return HistoryPage{}, errors.New("history: store not configured")
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := s.store.ListByUser(ctx, req.UserID, limit+1, req.Offset)
	if err != nil {
		return HistoryPage{}, err
	}

	page := HistoryPage{UserID: req.UserID, Limit: limit, Offset: req.Offset}
	page.HasMore = len(rows) > limit
	if page.HasMore {
		rows = rows[:limit]
	}
	page.Entries = make([]Entry, 0, len(rows))
	for _, r := range rows {
		page.Entries = append(page.Entries, entryFor(req.UserID, r))
	}
	return page, nil
}

// Summary aggregates the user's entire call history.
func (s *Service) Summary(ctx context.Context, req SummaryRequest) (Summary, error) {
	if req.UserID == "" {
		return Summary{}, ErrInvalidRequest
	}
	if s.store == nil {
		return Summary{}, errors.New("history: store not configured")
	}

	out := Summary{UserID: req.UserID}
	for offset := 0; ; offset += summaryChunk {
		rows, err := s.store.ListByUser(ctx, req.UserID, summaryChunk, offset)
		if err != nil {
			return Summary{}, err
		}
		for _, r := range rows {
			out.TotalCalls++
			out.TotalDurationSeconds += r.DurationSeconds
			if r.CallerID == req.UserID {
				out.OutgoingCalls++
			} else {
				out.IncomingCalls++
			}
			switch r.Status {
			case calls.StatusEnded:
				out.EndedCalls++
			case calls.StatusDeclined:
				out.DeclinedCalls++
			case calls.StatusMissed:
				out.MissedCalls++
			case calls.StatusRinging, calls.StatusAccepted:
				// in flight, not counted separately
			}
		}
		if len(rows) < summaryChunk {
			break
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

// Detail returns one call record, but only to its participants.
func (s *Service) Detail(ctx context.Context, callID, requestingUserID string) (Entry, error) {
	if callID == "" || requestingUserID == "" {
		return Entry{}, ErrInvalidRequest
	}
	if s.store == nil {
		return Entry{}, errors.New("history: store not configured")
	}

	r, err := s.store.GetByCallID(ctx, callID)
	if err != nil {
		return Entry{}, err
	}
	if !r.HasParticipant(requestingUserID) {
		// Deliberately indistinguishable from a record the user never had.
		return Entry{}, ErrForbidden
	}
	return entryFor(requestingUserID, r), nil
}

func entryFor(userID string, r calls.Session) Entry {
	dir := DirectionIncoming
	if r.CallerID == userID {
		dir = DirectionOutgoing
	}
	return Entry{
		CallID:          r.CallID,
		PeerID:          r.OtherParty(userID),
		Direction:       dir,
		CallType:        string(r.Type),
		Status:          string(r.Status),
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationSeconds: r.DurationSeconds,
		CreatedAt:       r.CreatedAt,
	}
}
