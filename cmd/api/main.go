package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peerlink/internal/audit"
	"peerlink/internal/auth"
	"peerlink/internal/calls"
	"peerlink/internal/config"
	"peerlink/internal/history"
	"peerlink/internal/httpapi"
	"peerlink/internal/presence"
	"peerlink/internal/signaling"
	"peerlink/internal/ws"
	"peerlink/pkg/logger"
	"peerlink/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Domain wiring. The in-memory registry is authoritative for routing;
	// redis only mirrors presence for other processes. Postgres holds call
	// records and the audit trail.
	store := calls.NewPostgresStore(db)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	mirror := presence.NewRedisMirror(rdb, 0)
	registry := presence.NewRegistry(log, presence.WithMirror(mirror))
	router := signaling.NewRouter(registry, log)

	callSvc := calls.NewService(store, log,
		calls.WithRingTimeout(cfg.Signal.RingTimeout),
		calls.WithAudit(auditSvc),
	)
	wsHandler := ws.NewHandler(authManager, registry, callSvc, router, cfg.Signal, log,
		ws.WithAudit(auditSvc),
	)

	handlers := httpapi.Handlers{
		Auth:     authManager,
		History:  history.NewService(store),
		Registry: registry,
		Mirror:   mirror,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, auth.RequireAccessToken(authManager), handlers, wsHandler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Zero write timeout: websocket connections outlive any sane bound.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
