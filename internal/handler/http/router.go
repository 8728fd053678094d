package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/presence-backend-go/internal/config"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     AuthHandler
	Presence PresenceHandler
	Visitor  VisitorHandler
	Stream   StreamHandler
	Punch    PunchHandler
	Metrics  http.Handler
}

func NewRouter(appConfig config.AppConfig, terminalKey string, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(appConfig.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "presence-cmlabs"),
		slog.String("version", "v1.0.0"),
		slog.String("env", appConfig.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appConfig.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.TerminalKeyHeader},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/logout", h.Auth.Logout)
			r.Route("/oauth/callback", func(r chi.Router) {
				r.Get("/google", h.Auth.OAuthCallbackGoogle)
			})

			r.Route("/login", func(r chi.Router) {
				r.Post("/", h.Auth.Login)
				r.Route("/oauth", func(r chi.Router) {
					r.Get("/google", h.Auth.LoginWithGoogle)
				})
			})
		})

		// Terminals authenticate with a shared key
		r.With(middleware.TerminalKey(terminalKey)).Post("/punches", h.Punch.Record)

		// Stream endpoints authenticate with the short-lived query token
		r.Route("/stream", func(r chi.Router) {
			r.With(
				jwtauth.Verifier(JWTService.JWTAuth()),
				middleware.AuthRequired(JWTService),
			).Get("/token", h.Stream.Token)
			r.Get("/presence", h.Stream.Presence)
			r.Get("/visitors", h.Stream.Visitors)
			r.Get("/errors", h.Stream.Errors)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService))

			r.Route("/presence", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionPresenceView)).Get("/", h.Presence.List)
				r.With(middleware.RequirePermission(user.PermissionPresenceCheckout)).Delete("/{personID}", h.Presence.Checkout)
			})

			r.Route("/visitors", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionVisitorView)).Get("/", h.Visitor.List)
				r.With(middleware.RequirePermission(user.PermissionVisitorCheckIn)).Post("/", h.Visitor.CheckIn)
				r.With(middleware.RequirePermission(user.PermissionVisitorCheckout)).Delete("/{id}", h.Visitor.Checkout)
			})
		})
	})
	return r
}
