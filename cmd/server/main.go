package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arjun/temporary-social/internal/api"
	"github.com/arjun/temporary-social/internal/config"
	"github.com/arjun/temporary-social/internal/gateway"
	"github.com/arjun/temporary-social/internal/notify"
	"github.com/arjun/temporary-social/internal/presence"
	"github.com/arjun/temporary-social/internal/relay"
	"github.com/arjun/temporary-social/internal/repository/postgres"
	"github.com/arjun/temporary-social/internal/scheduler"
	"github.com/arjun/temporary-social/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	// SMS notifier: Twilio when configured, log fallback otherwise
	var notifier notify.Notifier
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		notifier = notify.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	} else {
		if !cfg.IsDevelopment() {
			log.Fatal("production requires Twilio credentials")
		}
		notifier = notify.NewLogNotifier()
	}

	// Payment gateway: Razorpay when configured, mock otherwise
	var gw gateway.Gateway
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		gw = gateway.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	} else {
		if !cfg.IsDevelopment() {
			log.Fatal("production requires Razorpay credentials")
		}
		gw = gateway.NewMockGateway(cfg.JWTSecret)
	}

	// Initialize services
	services := service.NewServices(repos, notifier, gw, cfg)

	// Presence registry and real-time relay
	registry := presence.NewRegistry()
	rl := relay.New(registry, services.Message, services.Session)

	// Background sweeps: session warnings, hard expiry, purge
	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	defer stopSweeps()
	sweeper := scheduler.NewSweeper(repos, registry, cfg)
	go sweeper.Run(sweepCtx)

	// Initialize router
	router := api.NewRouter(services, rl, cfg)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweeps()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
