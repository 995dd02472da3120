package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"userserve/internal/config"
	api "userserve/internal/http"
	"userserve/internal/logging"
	"userserve/internal/models"
	"userserve/internal/store"
)

func main() {
	cfg := config.Load()

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// Signing tokens with a baked-in key would let anyone mint valid
	// sessions. Against a real store the secret must be supplied; the
	// ephemeral memory driver gets an ephemeral key.
	if cfg.JWTSecret == "" {
		if cfg.StoreDriver != "memory" {
			log.Fatal("JWT_SECRET must be set")
		}
		cfg.JWTSecret = uuid.NewString()
		log.Warn("JWT_SECRET is not set; using an ephemeral signing key")
	}

	st, err := store.New(cfg.StoreDriver, store.MongoConfig{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDB,
	}, log)
	if err != nil {
		log.Fatal("store initialization failed", zap.Error(err))
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			log.Warn("store close failed", zap.Error(err))
		}
	}()

	// Unique index on the natural key backstops the ID allocator
	// against concurrent writers in other processes.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := st.EnsureUniqueIndex(ctx, models.UserKind.Collection, models.UserKind.IDField()); err != nil {
		cancel()
		log.Fatal("index bootstrap failed", zap.Error(err))
	}
	cancel()

	r := api.NewRouter(cfg, st, log)

	srv := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.AppAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("shutdown failed", zap.Error(err))
	}

	log.Info("server stopped")
}
