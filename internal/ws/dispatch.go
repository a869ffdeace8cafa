package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"peerlink/internal/calls"
	"peerlink/internal/signaling"
)

func (s *session) dispatch(raw []byte) {
	var env signaling.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.sendError("malformed frame")
		return
	}
	event, ok := signaling.ParseInbound(env.Event)
	if !ok {
		s.sendError(fmt.Sprintf("unknown event %q", env.Event))
		return
	}
	if event != signaling.InboundJoin && !s.joined.Load() {
		s.sendError("join required")
		return
	}

	ctx := context.Background()
	switch event {
	case signaling.InboundJoin:
		s.handleJoin(ctx, env.Data)
	case signaling.InboundInitiateCall:
		s.handleInitiate(ctx, env.Data)
	case signaling.InboundAcceptCall:
		s.handleAccept(ctx, env.Data)
	case signaling.InboundDeclineCall:
		s.handleDecline(ctx, env.Data)
	case signaling.InboundEndCall:
		s.handleEnd(ctx, env.Data)
	case signaling.InboundWebRTCOffer, signaling.InboundWebRTCAnswer, signaling.InboundICECandidate:
		s.handleNegotiation(event, env.Data)
	case signaling.InboundSendMessage:
		s.handleChatMessage(env.Data)
	case signaling.InboundTyping:
		s.handleTyping(env.Data)
	}
}

// handleJoin claims presence for the authenticated user. The payload's
// userId, when present, must match the credential the socket was opened
// with; a client cannot join as someone else.
func (s *session) handleJoin(ctx context.Context, data json.RawMessage) {
	var p signaling.JoinPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			s.sendError("malformed join payload")
			return
		}
	}
	if p.UserID != "" && p.UserID != s.userID {
		s.sendError("join identity does not match credentials")
		return
	}

	if prior, ok := s.h.registry.Resolve(s.userID); ok && prior.ID() != s.client.ID() && s.h.audit != nil {
		if err := s.h.audit.LogPresenceEviction(ctx, s.userID, prior.ID(), s.client.ID()); err != nil {
			s.h.log.Warn("audit append failed", "user_id", s.userID, "err", err)
		}
	}
	s.h.registry.Register(ctx, s.userID, s.client)
	s.joined.Store(true)
	_ = s.client.Send(string(signaling.OutboundJoinedRoom), signaling.JoinedRoomNotice{UserID: s.userID})
}

func (s *session) handleInitiate(ctx context.Context, data json.RawMessage) {
	var p signaling.InitiateCallPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.sendError("malformed initiate_call payload")
		return
	}
	targets := p.Targets()
	if len(targets) == 0 {
		s.sendError("receiverId required")
		return
	}

	// The first target is the session's receiver; any further participants
	// only get the announce.
	receiver := targets[0]
	sess, err := s.h.calls.Initiate(ctx, s.userID, receiver, calls.CallType(p.CallType))
	if err != nil {
		s.sendError(initiateFailureReason(err))
		return
	}

	notice := signaling.IncomingCallNotice{
		CallerID: s.userID,
		CallType: string(sess.Type),
		CallID:   sess.CallID,
	}
	offline := s.h.router.Deliver(signaling.OutboundIncomingCall, targets, notice)
	if len(offline) == 0 {
		return
	}

	// An unreachable receiver settles the call immediately; the caller's UI
	// must not sit in a ringing state nobody will answer.
	for _, id := range offline {
		if id == receiver {
			_, _ = s.h.calls.Missed(ctx, sess.CallID)
			break
		}
	}
	event := signaling.OutboundParticipantOffline
	if len(offline) > 1 {
		event = signaling.OutboundParticipantsOffline
	}
	_ = s.client.Send(string(event), signaling.ParticipantsOfflineNotice{
		CallID:         sess.CallID,
		ParticipantIDs: offline,
	})
}

func (s *session) handleAccept(ctx context.Context, data json.RawMessage) {
	callID, ok := s.answerCallID(data)
	if !ok {
		return
	}
	snap, err := s.h.calls.Accept(ctx, callID, s.userID)
	if err != nil {
		s.sendError(transitionFailureReason("accept", err))
		return
	}
	s.h.router.DeliverTo(signaling.OutboundCallAccepted, snap.CallerID, signaling.CallAcceptedNotice{
		ReceiverID: s.userID,
		CallID:     snap.CallID,
	})
}

func (s *session) handleDecline(ctx context.Context, data json.RawMessage) {
	callID, ok := s.answerCallID(data)
	if !ok {
		return
	}
	snap, err := s.h.calls.Decline(ctx, callID, s.userID)
	if err != nil {
		s.sendError(transitionFailureReason("decline", err))
		return
	}
	s.h.router.DeliverTo(signaling.OutboundCallDeclined, snap.CallerID, signaling.CallDeclinedNotice{
		ReceiverID: s.userID,
		CallID:     snap.CallID,
	})
}

func (s *session) handleEnd(ctx context.Context, data json.RawMessage) {
	var p signaling.EndCallPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			s.sendError("malformed end_call payload")
			return
		}
	}
	callID := p.CallID
	if callID == "" {
		active, ok := s.h.calls.ActiveCall(s.userID)
		if !ok {
			s.sendError("no active call")
			return
		}
		callID = active.CallID
	}
	snap, err := s.h.calls.End(ctx, callID, s.userID)
	if err != nil {
		s.sendError(transitionFailureReason("end", err))
		return
	}
	// Both sides close on the server's confirmation, the sender included.
	s.h.router.Deliver(signaling.OutboundCallEnded,
		[]string{snap.CallerID, snap.ReceiverID},
		signaling.CallEndedNotice{CallID: snap.CallID})
}

func (s *session) handleNegotiation(kind signaling.Inbound, data json.RawMessage) {
	var p signaling.NegotiationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.sendError("malformed negotiation payload")
		return
	}
	if len(p.Targets()) == 0 {
		s.sendError("no negotiation target")
		return
	}
	offline := s.h.router.DeliverNegotiation(kind, s.userID, p)
	if len(offline) > 0 {
		event := signaling.OutboundParticipantOffline
		if len(offline) > 1 {
			event = signaling.OutboundParticipantsOffline
		}
		_ = s.client.Send(string(event), signaling.ParticipantsOfflineNotice{
			CallID:         p.CallID,
			ParticipantIDs: offline,
		})
	}
}

func (s *session) handleChatMessage(data json.RawMessage) {
	var p signaling.ChatMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.ReceiverID == "" {
		s.sendError("malformed send_message payload")
		return
	}
	// Best-effort: an offline receiver simply misses the message. Durable
	// chat history is the HTTP tier's problem, not the socket's.
	s.h.router.DeliverTo(signaling.OutboundNewMessage, p.ReceiverID, signaling.NewMessageNotice{
		SenderID: s.userID,
		Message:  p.Message,
		SentAt:   s.h.clock().UTC().Format(time.RFC3339),
	})
}

func (s *session) handleTyping(data json.RawMessage) {
	var p signaling.TypingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ReceiverID == "" {
		return
	}
	s.h.router.DeliverTo(signaling.OutboundUserTyping, p.ReceiverID, signaling.UserTypingNotice{
		SenderID: s.userID,
		IsTyping: p.IsTyping,
	})
}

// answerCallID resolves the call an accept/decline refers to: the explicit
// callId when given, otherwise the user's live session.
func (s *session) answerCallID(data json.RawMessage) (string, bool) {
	var p signaling.AnswerCallPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			s.sendError("malformed payload")
			return "", false
		}
	}
	if p.CallID != "" {
		return p.CallID, true
	}
	active, ok := s.h.calls.ActiveCall(s.userID)
	if !ok {
		s.sendError("no active call")
		return "", false
	}
	return active.CallID, true
}

func (s *session) sendError(reason string) {
	if err := s.client.Send(string(signaling.OutboundError), signaling.ErrorNotice{Reason: reason}); err != nil {
		s.h.log.Warn("error notice dropped", "user_id", s.userID, "reason", reason, "err", err)
	}
}

func initiateFailureReason(err error) string {
	switch {
	case errors.Is(err, calls.ErrSelfCall):
		return "cannot call yourself"
	case errors.Is(err, calls.ErrCallerBusy):
		return "you are already in a call"
	case errors.Is(err, calls.ErrReceiverBusy):
		return "receiver is already in a call"
	default:
		return "invalid call request"
	}
}

func transitionFailureReason(action string, err error) string {
	switch {
	case errors.Is(err, calls.ErrNotFound):
		return "call not found"
	case errors.Is(err, calls.ErrNotReceiver):
		return "only the receiver may " + action
	case errors.Is(err, calls.ErrNotParticipant):
		return "not a participant of this call"
	case errors.Is(err, calls.ErrInvalidTransition):
		return "call is not in a state that allows " + action
	default:
		return "cannot " + action + " call"
	}
}
