package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// Route paths guarding the admin API groups, matching the dashboard pages that manage them
const (
	RouteInvitations = "/dashboard/invitations"
	RouteRoles       = "/dashboard/roles"
	RouteUsers       = "/dashboard/users"
)

type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	Metrics        http.Handler
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	accessService access.AccessService,
	accessHandler AccessHandler,
	invitationHandler InvitationHandler,
	roleHandler RoleHandler,
	userHandler UserHandler,
) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.TargetEnvironmentHeader},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public self-service access request
		r.Post("/access-requests", invitationHandler.RequestAccess)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/access", func(r chi.Router) {
				r.Get("/me", accessHandler.Me)
				r.Post("/check", accessHandler.Check)
			})

			r.Route("/invitations", func(r chi.Router) {
				// The invitee accepts with their own identity
				r.Post("/{id}/accept", invitationHandler.Accept)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireEnvironment(accessService))
					r.Use(middleware.RequireRoutes(accessService, RouteInvitations))
					r.Get("/", invitationHandler.List)
					r.Post("/", invitationHandler.Create)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", invitationHandler.Get)
						r.Patch("/", invitationHandler.Update)
						r.Delete("/", invitationHandler.Delete)
					})
				})
			})

			r.Route("/roles", func(r chi.Router) {
				r.Use(middleware.RequireEnvironment(accessService))
				r.Use(middleware.RequireRoutes(accessService, RouteRoles))
				r.Get("/", roleHandler.List)
				r.Post("/", roleHandler.Create)
				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", roleHandler.Get)
					r.Put("/routes", roleHandler.UpdateRoutes)
					r.Delete("/", roleHandler.Delete)
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.RequireEnvironment(accessService))
				r.Use(middleware.RequireRoutes(accessService, RouteUsers))
				r.Get("/", userHandler.List)
				r.Route("/{uid}", func(r chi.Router) {
					r.Get("/", userHandler.Get)
					r.Put("/roles", userHandler.AssignRoles)
					r.Put("/environments", userHandler.SetEnvironments)
					r.Delete("/", userHandler.Delete)
				})
			})
		})
	})
	return r
}
