package calls

import (
	"testing"
	"time"
)

func TestTransitionClosure(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	tests := []struct {
		name    string
		from    Status
		apply   func(*Session) error
		wantErr bool
		want    Status
	}{
		{"ringing accept", StatusRinging, func(s *Session) error { return s.Accept(now) }, false, StatusAccepted},
		{"ringing decline", StatusRinging, func(s *Session) error { return s.Decline(now) }, false, StatusDeclined},
		{"ringing missed", StatusRinging, func(s *Session) error { return s.Missed(now) }, false, StatusMissed},
		{"accepted end", StatusAccepted, func(s *Session) error { return s.End(now) }, false, StatusEnded},
		{"ringing end", StatusRinging, func(s *Session) error { return s.End(now) }, true, StatusRinging},
		{"accepted accept", StatusAccepted, func(s *Session) error { return s.Accept(now) }, true, StatusAccepted},
		{"ended accept", StatusEnded, func(s *Session) error { return s.Accept(now) }, true, StatusEnded},
		{"declined end", StatusDeclined, func(s *Session) error { return s.End(now) }, true, StatusDeclined},
		{"missed accept", StatusMissed, func(s *Session) error { return s.Accept(now) }, true, StatusMissed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Session{CallID: "c", CallerID: "u1", ReceiverID: "u2", Type: CallTypeVideo, Status: tc.from}
			err := tc.apply(&s)
			if tc.wantErr && err == nil {
				t.Fatalf("expected invalid transition")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if s.Status != tc.want {
				t.Fatalf("status = %q, want %q", s.Status, tc.want)
			}
		})
	}
}

func TestDurationComputedOnlyLeavingAccepted(t *testing.T) {
	start := time.Unix(1700000000, 0).UTC()

	s := Session{CallID: "c", CallerID: "u1", ReceiverID: "u2", Status: StatusRinging}
	if err := s.Accept(start); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if s.DurationSeconds != 0 {
		t.Fatalf("duration must be 0 before end, got %d", s.DurationSeconds)
	}
	if err := s.End(start.Add(42 * time.Second)); err != nil {
		t.Fatalf("end: %v", err)
	}
	if s.DurationSeconds != 42 {
		t.Fatalf("duration = %d, want 42", s.DurationSeconds)
	}

	declined := Session{CallID: "c2", CallerID: "u1", ReceiverID: "u2", Status: StatusRinging}
	if err := declined.Decline(start); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.DurationSeconds != 0 {
		t.Fatalf("declined call must have 0 duration")
	}
}

func TestOtherParty(t *testing.T) {
	s := Session{CallerID: "u1", ReceiverID: "u2"}
	if got := s.OtherParty("u1"); got != "u2" {
		t.Fatalf("got %q", got)
	}
	if got := s.OtherParty("u2"); got != "u1" {
		t.Fatalf("got %q", got)
	}
	if got := s.OtherParty("u3"); got != "" {
		t.Fatalf("non-participant must yield empty, got %q", got)
	}
}

func TestCallTypeValid(t *testing.T) {
	if !CallTypeAudio.Valid() || !CallTypeVideo.Valid() {
		t.Fatalf("expected audio and video to be valid")
	}
	if CallType("screen").Valid() {
		t.Fatalf("unknown call type must be invalid")
	}
}
