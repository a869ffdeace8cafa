package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"peerlink/internal/auth"
	"peerlink/internal/calls"
	"peerlink/internal/config"
	"peerlink/internal/history"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, store *calls.MemoryStore) (*gin.Engine, *auth.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	h := Handlers{
		Auth:    manager,
		History: history.NewService(store),
	}

	r := gin.New()
	r.POST("/v1/auth/login", h.Login)
	v1 := r.Group("/v1", auth.RequireAccessToken(manager))
	{
		v1.GET("/calls/history", h.CallHistory)
		v1.GET("/calls/summary", h.CallSummary)
		v1.GET("/calls/:call_id", h.CallDetails)
	}
	return r, manager
}

func bearerFor(t *testing.T, m *auth.Manager, userID string) string {
	t.Helper()
	pair, err := m.IssuePair(time.Now(), userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return "Bearer " + pair.AccessToken
}

func seedEndedCall(t *testing.T, store *calls.MemoryStore, callID, callerID, receiverID string, duration int) {
	t.Helper()
	now := time.Unix(1700000000, 0).UTC()
	err := store.Upsert(context.Background(), calls.Session{
		CallID:          callID,
		CallerID:        callerID,
		ReceiverID:      receiverID,
		Type:            calls.CallTypeVideo,
		Status:          calls.StatusEnded,
		StartTime:       now,
		EndTime:         now.Add(time.Duration(duration) * time.Second),
		DurationSeconds: duration,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	r, _ := newTestRouter(t, calls.NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"user_id":"u1"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["access_token"] == "" || body["refresh_token"] == "" {
		t.Fatalf("expected both tokens, got %v", body)
	}
}

func TestLoginRequiresUserID(t *testing.T) {
	r, _ := newTestRouter(t, calls.NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCallHistoryRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t, calls.NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/history", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestCallHistoryScopedToCaller(t *testing.T) {
	store := calls.NewMemoryStore()
	seedEndedCall(t, store, "c1", "u1", "u2", 60)
	seedEndedCall(t, store, "c2", "u3", "u4", 30)
	r, m := newTestRouter(t, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/history", nil)
	req.Header.Set("Authorization", bearerFor(t, m, "u1"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var page history.HistoryPage
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Entries) != 1 || page.Entries[0].CallID != "c1" {
		t.Fatalf("expected only u1's call, got %+v", page.Entries)
	}
}

func TestCallHistoryRejectsBadPagination(t *testing.T) {
	r, m := newTestRouter(t, calls.NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/history?limit=abc", nil)
	req.Header.Set("Authorization", bearerFor(t, m, "u1"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCallSummary(t *testing.T) {
	store := calls.NewMemoryStore()
	seedEndedCall(t, store, "c1", "u1", "u2", 60)
	r, m := newTestRouter(t, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/summary", nil)
	req.Header.Set("Authorization", bearerFor(t, m, "u1"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var sum history.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalCalls != 1 || sum.TotalDurationSeconds != 60 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestCallDetailsHidesOtherUsersCalls(t *testing.T) {
	store := calls.NewMemoryStore()
	seedEndedCall(t, store, "c1", "u1", "u2", 60)
	r, m := newTestRouter(t, store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/calls/c1", nil)
	req.Header.Set("Authorization", bearerFor(t, m, "u3"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("non-participant must see 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/calls/c1", nil)
	req.Header.Set("Authorization", bearerFor(t, m, "u2"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("participant must see the record, got %d", w.Code)
	}
}
