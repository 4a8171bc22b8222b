package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/zhouzirui/chat-relay/backend/internal/service/session"
)

// CORS allows the browser UI origins to call the API with credentials so the
// session cookie travels with cross-origin requests.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", session.HeaderName},
		ExposedHeaders:   []string{session.HeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
