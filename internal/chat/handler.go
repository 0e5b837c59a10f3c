package chat

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/platform/httpx"
	"github.com/gulfplacement/placement/internal/shared"
)

// Handler manages chat endpoints.
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

// MountRoutes registers /chat routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.Authenticate)
	r.Post("/send", h.send)
	r.Get("/history", h.history)
	r.Post("/{id}/read", h.markRead)
	r.With(h.guard.Require(auth.GateElevated)).Get("/admin/inbox", h.inbox)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var in SendInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	m, err := h.service.Send(r.Context(), actor, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "send message", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	q := r.URL.Query()
	out, err := h.service.History(r.Context(), actor, q.Get("with_user_id"), shared.PageFromQuery(q))
	if err != nil {
		httpx.Fail(w, r, h.logger, "chat history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) inbox(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	out, err := h.service.Inbox(r.Context(), actor, shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		httpx.Fail(w, r, h.logger, "chat inbox", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	m, err := h.service.MarkRead(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "mark message read", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}
