package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/platform/httpx"
)

// Handler exposes dashboard endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   auth.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers the stats route under /admin. The caller must have
// mounted guard.Authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(auth.GateElevated)).Get("/dashboard_stats", h.stats)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Stats(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, "dashboard stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
