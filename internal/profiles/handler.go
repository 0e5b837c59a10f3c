package profiles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/platform/httpx"
	"github.com/gulfplacement/placement/internal/shared"
	"github.com/gulfplacement/placement/internal/users"
)

// Handler manages profile endpoints.
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

// MountRoutes registers /profile routes for the signed-in user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.Authenticate)
	r.Get("/me", h.mine)
	r.Put("/me", h.updateMine)
	r.Get("/me/onboarding-status", h.onboarding)
}

// MountAdminRoutes registers /admin/clients routes. The caller must have
// mounted guard.Authenticate.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(auth.GateElevated))
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Put("/{id}/verify", h.verify)
		r.Put("/{id}/status", h.updateStatus)
	})
	r.With(h.guard.Require(auth.GateTopElevated)).Delete("/{id}", h.delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in users.CreateClientInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	p, err := h.service.CreateClient(r.Context(), actor, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "create client", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	p, err := h.service.Mine(r.Context(), actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, "load profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) updateMine(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	p, err := h.service.UpdateMine(r.Context(), actor, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) onboarding(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	out, err := h.service.MyOnboarding(r.Context(), actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, "onboarding status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status: Status(r.URL.Query().Get("status")),
		Page:   shared.PageFromQuery(r.URL.Query()),
	}
	out, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.Fail(w, r, h.logger, "list clients", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "get client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	p, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "update client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var in VerifyInput
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	p, err := h.service.Verify(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "verify client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var in StatusInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	p, err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "update client status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, r, h.logger, "delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
