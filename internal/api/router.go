package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/arjun/temporary-social/internal/api/handlers"
	"github.com/arjun/temporary-social/internal/api/middleware"
	"github.com/arjun/temporary-social/internal/config"
	"github.com/arjun/temporary-social/internal/relay"
	"github.com/arjun/temporary-social/internal/service"
)

func NewRouter(services *service.Services, rl *relay.Relay, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.OTP, services.Session, services.Profile, cfg.IsDevelopment())
	userHandler := handlers.NewUserHandler(services.Profile)
	messageHandler := handlers.NewMessageHandler(services.Message)
	paymentHandler := handlers.NewPaymentHandler(services.Payment)
	wsHandler := handlers.NewWebSocketHandler(rl, services.Session)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/send-otp", authHandler.SendOTP)
			r.Post("/verify-otp", authHandler.VerifyOTP)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Session))
				r.Get("/me", authHandler.Me)
				r.Post("/extend-session", authHandler.ExtendSession)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Session))

			// User routes
			r.Route("/users", func(r chi.Router) {
				r.Put("/profile", userHandler.UpdateProfile)
				r.Get("/search", userHandler.Search)
				r.Get("/{userID}", userHandler.GetByID)
				r.Post("/{userID}/follow", userHandler.Follow)
				r.Delete("/{userID}/follow", userHandler.Unfollow)
			})

			// Message routes
			r.Route("/messages", func(r chi.Router) {
				r.Post("/", messageHandler.Send)
				r.Get("/conversations", messageHandler.Conversations)
				r.Get("/unread-count", messageHandler.UnreadCount)
				r.Get("/conversation/{userID}", messageHandler.Conversation)
				r.Put("/{messageID}/read", messageHandler.MarkRead)
				r.Delete("/{messageID}", messageHandler.Delete)
			})

			// Payment routes
			r.Route("/payments", func(r chi.Router) {
				r.Post("/", paymentHandler.Create)
				r.Get("/history", paymentHandler.History)
				r.Get("/pending", paymentHandler.Pending)
				r.Get("/{paymentID}/upi-link", paymentHandler.UPILink)
				r.Post("/{paymentID}/verify", paymentHandler.Verify)
				r.Post("/{paymentID}/cancel", paymentHandler.Cancel)
			})
		})

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
