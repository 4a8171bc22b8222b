package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/chat-relay/backend/internal/handler/chat"
	middlewarePkg "github.com/zhouzirui/chat-relay/backend/internal/middleware"
	chatService "github.com/zhouzirui/chat-relay/backend/internal/service/chat"
	"github.com/zhouzirui/chat-relay/backend/internal/service/session"
	"github.com/zhouzirui/chat-relay/backend/pkg/utils"
)

// RouterOptions carries the HTTP-level policy knobs.
type RouterOptions struct {
	AllowedOrigins []string
	// MaxConcurrent caps in-flight relay requests; 0 means unbounded.
	MaxConcurrent int
}

// NewRouter wires HTTP routes to core services.
func NewRouter(relay *chatService.Service, sessions session.Resolver, opts RouterOptions, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	chatHandler := chat.New(relay, sessions, opts.AllowedOrigins, logger)
	r.Group(func(relayRoutes chi.Router) {
		if opts.MaxConcurrent > 0 {
			relayRoutes.Use(middleware.Throttle(opts.MaxConcurrent))
		}
		chatHandler.RegisterRoutes(relayRoutes)
	})

	return r
}
