package signaling

import "encoding/json"

// The realtime event surface is a closed set of names per direction.
// Dispatch switches over these exhaustively; an unknown inbound name is
// rejected at the boundary instead of being discovered downstream.

type Inbound string

const (
	InboundJoin         Inbound = "join"
	InboundInitiateCall Inbound = "initiate_call"
	InboundAcceptCall   Inbound = "accept_call"
	InboundDeclineCall  Inbound = "decline_call"
	InboundEndCall      Inbound = "end_call"
	InboundWebRTCOffer  Inbound = "webrtc_offer"
	InboundWebRTCAnswer Inbound = "webrtc_answer"
	InboundICECandidate Inbound = "ice_candidate"
	InboundSendMessage  Inbound = "send_message"
	InboundTyping       Inbound = "typing"
)

// ParseInbound maps a wire event name onto the closed inbound set.
func ParseInbound(name string) (Inbound, bool) {
	switch e := Inbound(name); e {
	case InboundJoin, InboundInitiateCall, InboundAcceptCall, InboundDeclineCall,
		InboundEndCall, InboundWebRTCOffer, InboundWebRTCAnswer, InboundICECandidate,
		InboundSendMessage, InboundTyping:
		return e, true
	default:
		return "", false
	}
}

type Outbound string

const (
	OutboundJoinedRoom          Outbound = "joined_room"
	OutboundIncomingCall        Outbound = "incoming_call"
	OutboundCallAccepted        Outbound = "call_accepted"
	OutboundCallDeclined        Outbound = "call_declined"
	OutboundCallEnded           Outbound = "call_ended"
	OutboundCallMissed          Outbound = "call_missed"
	OutboundParticipantOffline  Outbound = "call_participant_offline"
	OutboundParticipantsOffline Outbound = "call_participants_offline"
	OutboundWebRTCOffer         Outbound = "webrtc_offer"
	OutboundWebRTCAnswer        Outbound = "webrtc_answer"
	OutboundICECandidate        Outbound = "ice_candidate"
	OutboundNewMessage          Outbound = "new_message"
	OutboundUserTyping          Outbound = "user_typing"
	OutboundError               Outbound = "error"
)

// Envelope is the wire frame for both directions: a flat event name plus an
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

/* ===================== INBOUND PAYLOADS ===================== */

type JoinPayload struct {
	UserID string `json:"userId"`
}

type InitiateCallPayload struct {
	ReceiverID     string   `json:"receiverId,omitempty"`
	ParticipantIDs []string `json:"participantIds,omitempty"`
	CallType       string   `json:"callType,omitempty"`
}

// Targets resolves the announce fan-out list: the explicit participant list
// when present, otherwise the single receiver.
func (p InitiateCallPayload) Targets() []string {
	if len(p.ParticipantIDs) > 0 {
		return p.ParticipantIDs
	}
	if p.ReceiverID != "" {
		return []string{p.ReceiverID}
	}
	return nil
}

type AnswerCallPayload struct {
	CallerID string `json:"callerId"`
	CallID   string `json:"callId"`
}

type EndCallPayload struct {
	OtherUserID string `json:"otherUserId"`
	CallID      string `json:"callId"`
}

// NegotiationPayload carries routing metadata plus an opaque negotiation
// blob. Only the metadata is validated; offer/answer/candidate contents are
// never inspected or mutated.
type NegotiationPayload struct {
	ReceiverID     string   `json:"receiverId,omitempty"`
	CallerID       string   `json:"callerId,omitempty"`
	ParticipantIDs []string `json:"participantIds,omitempty"`
	CallID         string   `json:"callId,omitempty"`
	CallType       string   `json:"callType,omitempty"`

	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Targets resolves the forward list; answers flow back to the caller while
// offers and candidates address the receiver.
func (p NegotiationPayload) Targets() []string {
	if len(p.ParticipantIDs) > 0 {
		return p.ParticipantIDs
	}
	if p.ReceiverID != "" {
		return []string{p.ReceiverID}
	}
	if p.CallerID != "" {
		return []string{p.CallerID}
	}
	return nil
}

type ChatMessagePayload struct {
	ReceiverID string          `json:"receiverId"`
	Message    json.RawMessage `json:"message"`
}

type TypingPayload struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

/* ===================== OUTBOUND PAYLOADS ===================== */

type JoinedRoomNotice struct {
	UserID string `json:"userId"`
}

type IncomingCallNotice struct {
	CallerID string `json:"callerId"`
	CallType string `json:"callType"`
	CallID   string `json:"callId"`
}

type CallAcceptedNotice struct {
	ReceiverID string `json:"receiverId"`
	CallID     string `json:"callId"`
}

type CallDeclinedNotice struct {
	ReceiverID string `json:"receiverId"`
	CallID     string `json:"callId"`
}

type CallEndedNotice struct {
	CallID string `json:"callId"`
}

type CallMissedNotice struct {
	CallID string `json:"callId"`
}

// ParticipantsOfflineNotice reports the identities a fan-out could not
// reach. A single unreachable 1:1 receiver is reported with the singular
// event name and the same shape.
type ParticipantsOfflineNotice struct {
	CallID         string   `json:"callId,omitempty"`
	ParticipantIDs []string `json:"participantIds"`
}

// NegotiationForward is the opaque blob re-addressed to the target with the
// sender's verified identity attached.
type NegotiationForward struct {
	FromUserID string `json:"fromUserId"`
	CallID     string `json:"callId,omitempty"`
	CallType   string `json:"callType,omitempty"`

	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type NewMessageNotice struct {
	SenderID string          `json:"senderId"`
	Message  json.RawMessage `json:"message"`
	SentAt   string          `json:"sentAt"`
}

type UserTypingNotice struct {
	SenderID string `json:"senderId"`
	IsTyping bool   `json:"isTyping"`
}

type ErrorNotice struct {
	Reason string `json:"reason"`
}
