package main

import (
	"peerlink/internal/httpapi"
	"peerlink/internal/ws"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers, wsHandler *ws.Handler) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// The realtime endpoint authenticates inside the handler: browser
	// WebSocket clients cannot set an Authorization header, so the bearer
	// middleware does not apply here.
	r.GET("/ws", wsHandler.Serve)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/login", h.Login)

		protected := v1.Group("")
		protected.Use(authMW)
		{
			protected.GET("/calls/history", h.CallHistory)
			protected.GET("/calls/summary", h.CallSummary)
			protected.GET("/calls/:call_id", h.CallDetails)

			protected.GET("/presence/:user_id", h.PresenceStatus)
		}
	}
}
