package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"peerlink/internal/auth"
	"peerlink/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *Handler, *auth.Manager) {
	t.Helper()
	h := newTestHandler(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", h.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	tokens, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return srv, h, tokens
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestServeRejectsMissingCredential(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestServeRejectsBadToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token=garbage", nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestServeUpgradesAndJoins(t *testing.T) {
	srv, h, tokens := newTestServer(t)

	pair, err := tokens.IssuePair(time.Now(), "u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+pair.AccessToken, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"event": "join"}); err != nil {
		t.Fatalf("write join: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if env.Event != "joined_room" {
		t.Fatalf("event = %q, want joined_room", env.Event)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := h.registry.Resolve("u1"); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := h.registry.Resolve("u1"); !ok {
		t.Fatalf("presence must be claimed after join")
	}
}

func TestServeDisconnectReleasesPresence(t *testing.T) {
	srv, h, tokens := newTestServer(t)

	pair, _ := tokens.IssuePair(time.Now(), "u1")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+pair.AccessToken, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"event": "join"}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env map[string]any
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read ack: %v", err)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := h.registry.Resolve("u1"); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("presence must be released after disconnect")
}
