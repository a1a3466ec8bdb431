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

	intconfig "busticket/internal/config"
	intdb "busticket/internal/db"
	"busticket/internal/gateway"
	router "busticket/internal/http"
	"busticket/internal/http/handlers"
	"busticket/internal/http/middleware"
	"busticket/internal/ledger"

	"github.com/gin-gonic/gin"
)

func main() {
	env, err := intconfig.LoadEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(env)
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	db, err := intconfig.ConnectDB(env.DB)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer intconfig.CloseDB()

	if env.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := intdb.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			slog.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	}

	rdb, err := intconfig.NewRedisClient(env.RedisURL)
	if err != nil {
		// webhook dedupe degrades to the booking status guards
		slog.Warn("redis unavailable, webhook ledger disabled", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	tokens, err := middleware.NewTokenVerifier(env.JWTSecret, env.JWKSURL)
	if err != nil {
		slog.Error("token verifier setup failed", "error", err)
		os.Exit(1)
	}
	defer tokens.Close()

	hd := &handlers.Handler{
		Env:    env,
		DB:     db,
		Ledger: ledger.NewRedisLedger(rdb),
		Orders: gateway.NewRazorpayClient(env.Razorpay.KeyID, env.Razorpay.KeySecret, env.Razorpay.BaseURL),
	}
	r := router.NewRouter(env, hd, tokens)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", env.AppAddr, "env", env.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
		return
	}

	slog.Info("server stopped cleanly")
}

func setupLogger(env intconfig.Env) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if env.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
