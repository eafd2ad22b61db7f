// Package main runs the in-memory mock Padosi backend for local frontend
// and CLI development. State lives in the process and is lost on restart;
// the production backend remains the source of truth.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/aawaaz/padosi-client/internal/config"
	"github.com/aawaaz/padosi-client/internal/mockapi"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	port := pflag.Int("port", cfg.MockPort, "listen port")
	cronSecret := pflag.String("cron-secret", cfg.CronSecret, "shared secret for /cron endpoints")
	pflag.Parse()

	sugar.Infow("Starting Padosi mock backend",
		"port", *port,
		"env", cfg.Environment,
	)

	server := mockapi.New(cfg.MockJWTSecret, *cronSecret, sugar)
	server.Seed()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      server.Router(cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Mock backend listening on :%d", *port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
