package signaling

import (
	"log/slog"

	"peerlink/internal/presence"
)

// ConnResolver is the presence lookup the router needs; satisfied by
// *presence.Registry.
type ConnResolver interface {
	Resolve(userID string) (presence.Conn, bool)
}

// Router fans events out to live connections. Delivery is best-effort and
// at-most-once: an offline target is reported back to the caller, a write
// failure on a live connection is logged and the remaining targets still get
// their copy. The router never returns an error.
type Router struct {
	registry ConnResolver
	log      *slog.Logger
}

func NewRouter(registry ConnResolver, log *slog.Logger) *Router {
	return &Router{registry: registry, log: log}
}

// Deliver sends event/data to every target with a live connection and
// returns the targets that had none.
func (r *Router) Deliver(event Outbound, targets []string, data any) (offline []string) {
	for _, target := range targets {
		if target == "" {
			continue
		}
		conn, ok := r.registry.Resolve(target)
		if !ok {
			offline = append(offline, target)
			continue
		}
		if err := conn.Send(string(event), data); err != nil {
			r.log.Warn("event delivery failed",
				"event", string(event),
				"target", target,
				"err", err,
			)
		}
	}
	return offline
}

// DeliverTo is Deliver for a single recipient; it reports whether the
// recipient had a live connection.
func (r *Router) DeliverTo(event Outbound, target string, data any) bool {
	return len(r.Deliver(event, []string{target}, data)) == 0
}

// DeliverNegotiation forwards an offer, answer, or ICE candidate to its
// targets. The blob is never inspected; the forwarded copy carries the
// sender's verified identity so a recipient cannot be spoofed by payload
// fields.
func (r *Router) DeliverNegotiation(kind Inbound, fromUserID string, p NegotiationPayload) (offline []string) {
	event, ok := negotiationEvent(kind)
	if !ok {
		r.log.Warn("not a negotiation event", "event", string(kind))
		return nil
	}
	fwd := NegotiationForward{
		FromUserID: fromUserID,
		CallID:     p.CallID,
		CallType:   p.CallType,
		Offer:      p.Offer,
		Answer:     p.Answer,
		Candidate:  p.Candidate,
	}
	return r.Deliver(event, p.Targets(), fwd)
}

func negotiationEvent(kind Inbound) (Outbound, bool) {
	switch kind {
	case InboundWebRTCOffer:
		return OutboundWebRTCOffer, true
	case InboundWebRTCAnswer:
		return OutboundWebRTCAnswer, true
	case InboundICECandidate:
		return OutboundICECandidate, true
	default:
		return "", false
	}
}
