package users

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/platform/httpx"
	"github.com/gulfplacement/placement/internal/shared"
)

// Handler manages account endpoints.
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

// MountRoutes registers /auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.LimitByIP(20, time.Minute)).Post("/register", h.register)
	r.With(httprate.LimitByIP(20, time.Minute)).Post("/login", h.login)
	r.With(h.guard.Authenticate).Get("/me", h.me)
}

// MountAdminRoutes registers /admin/users routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Use(h.guard.Authenticate)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.GateElevated))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}/active", h.setActive)
	})
	r.With(h.guard.Require(auth.GateTopElevated)).Put("/{id}/role", h.setRole)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.Register(r.Context(), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.service.Login(r.Context(), in)
	if err != nil {
		if errors.Is(err, ErrAccountInactive) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "account inactive")
			return
		}
		httpx.Fail(w, r, h.logger, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())
	u, err := h.service.Get(r.Context(), p.ID)
	if err != nil {
		httpx.Fail(w, r, h.logger, "load current user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Page: shared.PageFromQuery(r.URL.Query())}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := auth.ParseRole(raw)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("role", "must be one of client admin super_admin"))
			return
		}
		filter.Role = role
	}
	users, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.Fail(w, r, h.logger, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	var in SetActiveInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	u, err := h.service.SetActive(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "set user active", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	var in SetRoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	u, err := h.service.SetRole(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "set user role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}
