package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/chat"
	"github.com/gulfplacement/placement/internal/dashboard"
	"github.com/gulfplacement/placement/internal/documents"
	"github.com/gulfplacement/placement/internal/observability"
	"github.com/gulfplacement/placement/internal/platform/httpx"
	"github.com/gulfplacement/placement/internal/postings"
	"github.com/gulfplacement/placement/internal/profiles"
	"github.com/gulfplacement/placement/internal/users"
	"github.com/gulfplacement/placement/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Guard            auth.Middleware
	UsersHandler     *users.Handler
	ProfilesHandler  *profiles.Handler
	DocumentsHandler *documents.Handler
	PostingsHandler  *postings.Handler
	ChatHandler      *chat.Handler
	DashboardHandler *dashboard.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.UsersHandler.MountRoutes)
		r.Route("/profile", params.ProfilesHandler.MountRoutes)
		r.Route("/documents", params.DocumentsHandler.MountRoutes)
		r.Route("/jobs", params.PostingsHandler.MountRoutes)
		r.Route("/chat", params.ChatHandler.MountRoutes)

		r.Route("/admin", func(r chi.Router) {
			r.Route("/users", params.UsersHandler.MountAdminRoutes)
			r.Route("/documents", params.DocumentsHandler.MountAdminRoutes)
			r.Route("/clients", func(r chi.Router) {
				r.Use(params.Guard.Authenticate)
				params.ProfilesHandler.MountAdminRoutes(r)
				params.DocumentsHandler.MountClientRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(params.Guard.Authenticate)
				params.DashboardHandler.MountRoutes(r)
			})
			if params.JobHandler != nil {
				r.Route("/queue", func(r chi.Router) {
					r.Use(params.Guard.Authenticate)
					r.Use(params.Guard.Require(auth.GateElevated))
					params.JobHandler.MountRoutes(r)
				})
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "resource not found")
	})
	return r
}
