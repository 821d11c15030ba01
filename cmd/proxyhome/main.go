package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/woedy/ProxyHome/internal/app/server"
	"github.com/woedy/ProxyHome/internal/config"
	"github.com/woedy/ProxyHome/internal/database"
	"github.com/woedy/ProxyHome/internal/events"
	"github.com/woedy/ProxyHome/internal/jobs/runner"
	"github.com/woedy/ProxyHome/internal/jobs/runtime"
	"github.com/woedy/ProxyHome/internal/support"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded", "error", err)
	}
	if level, err := log.ParseLevel(support.GetEnv("PROXYHOME_LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	settings := config.GetConfig()

	if _, err := database.SetupDB(); err != nil {
		log.Fatal("Could not set up the database", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobRunner := runner.New(settings)

	redisClient, err := support.GetRedisClient()
	if err != nil {
		log.Warn("Running without redis, schedules fire on every instance", "error", err)
		redisClient = nil
	} else {
		events.Enable(ctx, redisClient)
		stopHeartbeat := runtime.LaunchInstanceHeartbeat(ctx, redisClient)
		defer stopHeartbeat()
	}

	scheduler := runtime.NewScheduler(settings, jobRunner, redisClient)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal("Could not start the scheduler", "error", err)
	}
	defer scheduler.Stop()

	srv, err := server.NewServer(settings, jobRunner, redisClient)
	if err != nil {
		log.Fatal("Could not build the API server", "error", err)
	}

	go func() {
		log.Info("ProxyHome API listening", "address", settings.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("API server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", "error", err)
	}
	log.Info("Server stopped")
}
