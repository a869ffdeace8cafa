package audit

import (
	"context"
	"testing"
	"time"
)

func TestAppend_FillsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }

	err := svc.LogCallTransition(context.Background(), EventTypeCallAccepted, "call-1", "u2", "u1", "accepted")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Fatalf("expected generated id")
	}
	if !e.CreatedAt.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Fatalf("unexpected created_at: %v", e.CreatedAt)
	}
	if e.CallID != "call-1" || e.ActorUserID != "u2" || e.PeerUserID != "u1" {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestAppend_RejectsMissingType(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Append(context.Background(), Event{CallID: "c"}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}
