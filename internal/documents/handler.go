package documents

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/platform/httpx"
	"github.com/gulfplacement/placement/internal/shared"
)

// multipartOverhead covers form fields and boundaries around the file part.
const multipartOverhead = 64 << 10

// Handler manages document endpoints.
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

// MountRoutes registers /documents routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.Authenticate)
	r.Post("/upload", h.upload)
	r.Get("/me", h.mine)
	r.Get("/{id}/download", h.download)
}

// MountClientRoutes registers document routes under /admin/clients. The
// caller must have mounted guard.Authenticate.
func (h *Handler) MountClientRoutes(r chi.Router) {
	r.With(h.guard.Require(auth.GateElevated)).Get("/{id}/documents", h.forClient)
}

// MountAdminRoutes registers /admin/documents routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Use(h.guard.Authenticate)
	r.Use(h.guard.Require(auth.GateElevated))
	r.Put("/{id}/verify", h.verify)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	in, err := h.parseUpload(w, r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	doc, err := h.service.Upload(r.Context(), actor, in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "upload document", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (UploadInput, error) {
	limit := h.service.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return UploadInput{}, ErrFileTooLarge
		}
		return UploadInput{}, shared.NewValidationError("file", "multipart form required")
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return UploadInput{}, shared.NewValidationError("file", "no file uploaded")
	}
	defer file.Close()
	if header.Size > limit {
		return UploadInput{}, ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return UploadInput{}, err
	}

	in := UploadInput{
		DocumentType: Type(strings.TrimSpace(r.FormValue("document_type"))),
		FileName:     header.Filename,
		Data:         data,
	}
	if raw := strings.TrimSpace(r.FormValue("expiry_date")); raw != "" {
		t, err := time.Parse(shared.DateLayout, raw)
		if err != nil {
			return UploadInput{}, shared.NewValidationError("expiry_date", "must be YYYY-MM-DD")
		}
		d := shared.NewDate(t)
		in.ExpiryDate = &d
	}
	return in, nil
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	out, err := h.service.Mine(r.Context(), actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, "list documents", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.PrincipalFromContext(r.Context())
	doc, rc, err := h.service.Open(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "download document", err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "download interrupted", slog.String("document_id", doc.ID), slog.Any("error", err))
	}
}

func (h *Handler) forClient(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ForClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, r, h.logger, "list client documents", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var in VerifyInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := auth.PrincipalFromContext(r.Context())
	doc, err := h.service.Verify(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(w, r, h.logger, "verify document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}
