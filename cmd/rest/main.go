package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinician-dashboard-be/internal/bootstrap"
	"clinician-dashboard-be/internal/config"
	"clinician-dashboard-be/internal/server"
	"clinician-dashboard-be/internal/tracer"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Unable to bootstrap dashboard: %v", err)
	}
	sysLogger := container.Logger
	defer sysLogger.Sync()

	// 3. Tracer
	shutdownTracer := tracer.InitTracer(sysLogger)

	// 4. Start Background Services. They outlive the signal so the session
	// ended during Shutdown still reaches the notification log.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if err := container.Start(bgCtx); err != nil {
		log.Fatalf("Unable to start background services: %v", err)
	}

	// 5. Initialize and run Server
	srv := server.New(cfg, container)
	go func() {
		if err := srv.Run(); err != nil {
			sysLogger.Error("Main", "Server stopped", map[string]interface{}{"error": err})
			stop()
		}
	}()

	<-ctx.Done()
	sysLogger.Info("Main", "Shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(); err != nil {
		sysLogger.Error("Main", "Failed to stop HTTP server", map[string]interface{}{"error": err})
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		sysLogger.Error("Main", "Failed to shut down cleanly", map[string]interface{}{"error": err})
	}
	stopBackground()
	if err := shutdownTracer(shutdownCtx); err != nil {
		sysLogger.Error("Main", "Failed to flush traces", map[string]interface{}{"error": err})
	}
}
