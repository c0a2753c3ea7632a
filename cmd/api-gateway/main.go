package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "github.com/noah-isme/pilotaja-api/api/swagger"
	"github.com/noah-isme/pilotaja-api/internal/server"
	"github.com/noah-isme/pilotaja-api/pkg/config"
	"github.com/noah-isme/pilotaja-api/pkg/logger"
)

// @title Pilotaja Booking API
// @version 1.0.0
// @description Driving-lesson scheduling: instructors, students and appointments.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	app, err := server.Build(startCtx, cfg, logr)
	cancel()
	if err != nil {
		logr.Sugar().Fatalw("failed to build application", "error", err, "storage", cfg.StorageDriver, "lock", cfg.Lock.Driver)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.StorageDriver, "lock", cfg.Lock.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("http shutdown", "error", err)
	}
	if err := app.Close(ctx); err != nil {
		logr.Sugar().Errorw("release resources", "error", err)
	}
}
