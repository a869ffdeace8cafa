package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"peerlink/internal/auth"
	"peerlink/internal/calls"
	"peerlink/internal/history"
	"peerlink/internal/presence"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	History  *history.Service
	Registry *presence.Registry
	Mirror   *presence.RedisMirror
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Call history ---

// CallHistory returns one page of the caller's call records, newest first.
func (h Handlers) CallHistory(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	page, err := h.History.History(c.Request.Context(), history.HistoryRequest{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		if errors.Is(err, history.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid pagination"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history lookup failed"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// CallSummary returns aggregate call metrics for the caller.
func (h Handlers) CallSummary(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	sum, err := h.History.Summary(c.Request.Context(), history.SummaryRequest{UserID: userID})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary lookup failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// CallDetails returns one call record. A record the caller did not
// participate in is reported as not found, not as forbidden.
func (h Handlers) CallDetails(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "history not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_id required"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}

	entry, err := h.History.Detail(c.Request.Context(), callID, userID)
	if err != nil {
		switch {
		case errors.Is(err, calls.ErrNotFound), errors.Is(err, history.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		case errors.Is(err, history.ErrInvalidRequest):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		}
		return
	}
	c.JSON(http.StatusOK, entry)
}

// --- Presence ---

// PresenceStatus answers whether a user is online. The local registry is
// authoritative for connections owned by this process; the redis mirror
// covers connections held elsewhere.
func (h Handlers) PresenceStatus(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	if h.Registry != nil {
		if _, ok := h.Registry.Resolve(userID); ok {
			c.JSON(http.StatusOK, gin.H{"user_id": userID, "online": true})
			return
		}
	}
	if h.Mirror != nil {
		online, err := h.Mirror.IsOnline(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "presence lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "online": online})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "online": false})
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": key + " must be a non-negative integer"})
		return 0, false
	}
	return n, true
}
