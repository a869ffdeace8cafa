package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"peerlink/internal/audit"
	"peerlink/internal/auth"
	"peerlink/internal/calls"
	"peerlink/internal/config"
	"peerlink/internal/presence"
	"peerlink/internal/signaling"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler owns the realtime endpoint: it authenticates the upgrade request,
// runs the read/write pumps for each connection, and dispatches inbound
// events to the presence registry, the call service, and the router.
type Handler struct {
	upgrader websocket.Upgrader
	tokens   *auth.Manager
	registry *presence.Registry
	calls    *calls.Service
	router   *signaling.Router

	audit *audit.Service
	cfg   config.SignalConfig
	log   *slog.Logger
	clock func() time.Time
}

type HandlerOption func(*Handler)

func WithAudit(a *audit.Service) HandlerOption {
	return func(h *Handler) { h.audit = a }
}

func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) { h.clock = clock }
}

func NewHandler(tokens *auth.Manager, registry *presence.Registry, callSvc *calls.Service, router *signaling.Router, cfg config.SignalConfig, log *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		tokens:   tokens,
		registry: registry,
		calls:    callSvc,
		router:   router,
		cfg:      cfg,
		log:      log,
		clock:    time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	// A server-side ring timeout settles the call with no inbound event to
	// hang the notification on, so the handler owns telling both sides.
	callSvc.SetRingExpiredHandler(h.notifyRingExpired)
	return h
}

// Serve is the gin handler for the websocket endpoint. The credential is
// checked before the upgrade: an unauthenticated client never gets a socket.
func (h *Handler) Serve(c *gin.Context) {
	token, err := auth.TokenFromWebSocketRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	claims, err := h.tokens.Verify(token, auth.TokenTypeAccess, h.clock())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Warn("websocket upgrade failed", "user_id", claims.UserID, "err", err)
		return
	}

	client := newClient(uuid.NewString(), claims.UserID, conn, h.cfg.SendBuffer)
	s := &session{h: h, client: client, userID: claims.UserID}
	h.log.Info("websocket connected", "user_id", claims.UserID, "conn_id", client.ID())

	go s.writePump()
	s.readPump()
}

func (h *Handler) notifyRingExpired(snap calls.Session) {
	notice := signaling.CallMissedNotice{CallID: snap.CallID}
	h.router.Deliver(signaling.OutboundCallMissed, []string{snap.CallerID, snap.ReceiverID}, notice)
}

// session is the per-connection state shared by the two pumps.
type session struct {
	h      *Handler
	client *Client
	userID string

	// joined flips once the client has claimed presence. Read from the
	// write pump's ping tick, hence atomic.
	joined atomic.Bool
}

func (s *session) writePump() {
	ticker := time.NewTicker(s.h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.client.Close()
	}()

	for {
		select {
		case fr, ok := <-s.client.send:
			if !ok {
				return
			}
			_ = s.client.conn.SetWriteDeadline(time.Now().Add(s.h.cfg.WriteTimeout))
			if err := s.client.conn.WriteJSON(fr); err != nil {
				s.h.log.Warn("websocket write failed", "user_id", s.userID, "conn_id", s.client.ID(), "err", err)
				return
			}
		case <-ticker.C:
			_ = s.client.conn.SetWriteDeadline(time.Now().Add(s.h.cfg.WriteTimeout))
			if err := s.client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if s.joined.Load() {
				go s.h.registry.Refresh(context.Background(), s.userID, s.client)
			}
		}
	}
}

func (s *session) readPump() {
	defer s.teardown()

	conn := s.client.conn
	conn.SetReadLimit(s.h.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(s.h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.h.cfg.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.h.log.Warn("websocket read failed", "user_id", s.userID, "conn_id", s.client.ID(), "err", err)
			}
			return
		}
		s.dispatch(data)
	}
}

// teardown runs exactly once, when the read pump exits. The request context
// is gone by then, so cleanup uses a fresh one.
func (s *session) teardown() {
	_ = s.client.Close()
	if !s.joined.Load() {
		return
	}

	ctx := context.Background()
	if !s.h.registry.Unregister(ctx, s.userID, s.client) {
		// Evicted by a newer connection for the same user; that connection
		// owns presence and the call state now.
		return
	}

	if snap, ok := s.h.calls.HandleDisconnect(ctx, s.userID); ok {
		peer := snap.OtherParty(s.userID)
		switch snap.Status {
		case calls.StatusEnded:
			s.h.router.DeliverTo(signaling.OutboundCallEnded, peer, signaling.CallEndedNotice{CallID: snap.CallID})
		case calls.StatusMissed:
			s.h.router.DeliverTo(signaling.OutboundCallMissed, peer, signaling.CallMissedNotice{CallID: snap.CallID})
		}
	}
	s.h.log.Info("websocket disconnected", "user_id", s.userID, "conn_id", s.client.ID())
}
