package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kash_budget/internal/config"
	"kash_budget/internal/db"
	httpServer "kash_budget/internal/http"
	"kash_budget/internal/http/handlers"
	"kash_budget/internal/http/middleware"
	"kash_budget/internal/logger"
	"kash_budget/internal/repository"
	"kash_budget/internal/repository/memory"
	"kash_budget/internal/service"
	"kash_budget/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	var (
		transactions service.TransactionStore
		users        service.UserStore
		audits       service.AuditStore
		pinger       handlers.Pinger
	)

	if cfg.DevMode && cfg.DatabaseURL == "" {
		logger.Warn("DEV_MODE without DATABASE_URL: using in-memory store, data is lost on exit")
		transactions = memory.NewTransactionStore()
		users = memory.NewUserStore()
		audits = memory.NewAuditStore()
	} else {
		pool := db.Connect(cfg.DatabaseURL)
		defer pool.Close()

		transactions = repository.NewTransactionRepository(pool)
		users = repository.NewUserRepository(pool)
		audits = repository.NewAuditRepository(pool)
		pinger = pool
	}

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer middleware.CloseRedisRateLimiter()

	hub := ws.NewHub()
	audit := service.NewAuditService(audits, cfg.StoreTimeout)
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	auth := service.NewAuthService(users, service.NewBcryptHasher(cfg.BcryptCost), tokens, audit, cfg.StoreTimeout)
	ledger := service.NewLedgerService(transactions, audit, hub, cfg.StoreTimeout)

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := httpServer.NewRouter(httpServer.Deps{
		Auth:           auth,
		Ledger:         ledger,
		Hub:            hub,
		DB:             pinger,
		Version:        cfg.AppVersion,
		APIPrefix:      cfg.APIPrefix,
		CORSOrigin:     cfg.CORSOrigin,
		APIRateLimit:   cfg.APIRateLimit,
		APIRateWindow:  cfg.APIRateWindow,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "prefix", cfg.APIPrefix, "version", cfg.AppVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
