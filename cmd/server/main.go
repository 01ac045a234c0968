// Package main is the entry point for the wealthboard dashboard server.
//
// The server loads the wealth feed on a schedule, keeps the latest snapshot in
// memory and serves chart geometry, KPI cards and range selections over HTTP,
// with live events over SSE and WebSocket.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simplainvest/wealthboard/internal/config"
	"github.com/simplainvest/wealthboard/internal/di"
	"github.com/simplainvest/wealthboard/internal/server"
	"github.com/simplainvest/wealthboard/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("version", server.Version).
		Str("feed", cfg.FeedBaseURL).
		Str("data_dir", cfg.DataDir).
		Msg("Starting wealthboard")

	// Databases, feed client, services and jobs
	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:          log,
		CacheDB:      container.CacheDB,
		Config:       cfg,
		Dashboard:    container.DashboardService,
		EventManager: container.EventManager,
		Scheduler:    container.Scheduler,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// First load runs in the background so the API is reachable while the
	// feed is slow; views answer no_data until it completes.
	go func() {
		if err := container.Scheduler.RunNow(jobs.DashboardRefresh); err != nil {
			log.Warn().Err(err).Msg("Initial dashboard refresh failed")
		}
	}()

	container.Scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop scheduled refreshes and cancel any in-flight load before draining
	// HTTP connections.
	container.Scheduler.Stop()
	container.DashboardService.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
