package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rahi-platform/rahi-assistant/internal/conversation"
	httpmiddleware "github.com/rahi-platform/rahi-assistant/internal/http/middleware"
	"github.com/rahi-platform/rahi-assistant/internal/webchat"
	"github.com/rahi-platform/rahi-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	WebChatHandler      *webchat.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(httpmiddleware.CORSOptions{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
		}))
	}

	r.Group(func(api chi.Router) {
		api.Use(middleware.Compress(5))
		api.Get("/", cfg.ConversationHandler.Root)
		api.Get("/health", cfg.ConversationHandler.Health)
		api.Post("/chat", cfg.ConversationHandler.Chat)
		if cfg.MetricsHandler != nil {
			api.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// The WebSocket upgrade needs the raw connection, so it skips compression.
	if cfg.WebChatHandler != nil {
		r.With(httpmiddleware.OriginGuard(cfg.CORSAllowedOrigins)).
			Get("/chat/ws", cfg.WebChatHandler.HandleWebSocket)
	}

	return r
}
