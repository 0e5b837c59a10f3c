package postings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/platform/httpx"
	"github.com/gulfplacement/placement/internal/shared"
)

// Handler manages job posting endpoints.
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

// MountRoutes registers /jobs routes. Listing is public.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticate)
		r.Post("/{id}/apply", h.apply)
		r.Get("/applications", h.mine)

		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(auth.GateElevated))
			r.Post("/", h.create)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.delete)
			r.Get("/admin/applications", h.applications)
			r.Put("/admin/applications/{id}/status", h.updateStatus)
		})
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := PostingFilter{Active: true, Page: shared.PageFromQuery(r.URL.Query())}
	if raw := r.URL.Query().Get("is_active"); raw == "false" || raw == "0" {
		filter.Active = false
	}
	out, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.Fail(w, r, h.logger, "list jobs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in PostingInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	p, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "create job", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in PostingInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	p, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "update job", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		httpx.Fail(w, r, h.logger, "delete job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	a, err := h.service.Apply(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "apply for job", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ApplyResponse{Message: "Application submitted successfully", ApplicationID: a.ID})
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	out, err := h.service.Mine(r.Context(), actor, shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		httpx.Fail(w, r, h.logger, "list my applications", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) applications(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Applications(r.Context(), shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		httpx.Fail(w, r, h.logger, "list applications", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var in StatusInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	a, err := h.service.UpdateApplicationStatus(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "update application status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}
