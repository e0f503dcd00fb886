/*
Package handler provides the HTTP handlers and routing setup for the Dietitian API.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"dietitian/internal/pkg/errs"
	"dietitian/internal/pkg/limiter"
	"dietitian/internal/pkg/logx"
	"dietitian/internal/pkg/resp"
)

// Chat turns fan out to the Gemini API, so they are the only rate-limited
// route: a five-turn burst, refilling one turn every two seconds per IP.
const (
	ChatRate  = 0.5
	ChatBurst = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes the per-IP chat rate limiter, configures CORS, and applies
// global middleware before mounting the API routes.
func Router(deps *AppDeps) http.Handler {
	chatLimiter := limiter.NewIPRateLimiter(rate.Limit(ChatRate), ChatBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		resp.RespondError(w, r, errs.NewError(errs.ErrEndpointNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		resp.RespondError(w, r, errs.NewError(errs.ErrMethodNotAllowed))
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			logx.Info("Health check endpoint hit")

			data := map[string]any{
				"status":  "healthy",
				"service": "Dietitian API",
				"endpoints": map[string]string{
					"register":  "/api/register",
					"chat":      "/api/chat",
					"user":      "/api/user/{userID}",
					"nutrition": "/api/nutrition/{userID}",
				},
			}
			resp.RespondSuccess(w, r, data)
		})

		api.Post("/register", HandleRegister(deps))

		rateLimitedChatHandler := chatLimiter.Middleware(HandleChat(deps))
		api.Post("/chat", http.HandlerFunc(rateLimitedChatHandler.ServeHTTP))

		api.Get("/user/{userID}", HandleGetUser(deps))
		api.Get("/nutrition/{userID}", HandleGetNutrition(deps))
	})

	return r
}
