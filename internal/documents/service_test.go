package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/profiles"
	"github.com/gulfplacement/placement/internal/shared"
)

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

	owner = auth.Principal{ID: "u-owner", Role: auth.RoleClient, Active: true}
	other = auth.Principal{ID: "u-other", Role: auth.RoleClient, Active: true}
	staff = auth.Principal{ID: "u-staff", Role: auth.RoleAdmin, Active: true}
)

type mockRepository struct {
	mu   sync.Mutex
	docs map[string]Document
}

func newMockRepository() *mockRepository {
	return &mockRepository{docs: make(map[string]Document)}
}

func (m *mockRepository) Create(_ context.Context, d Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[d.ID] = d
	return nil
}

func (m *mockRepository) Get(_ context.Context, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return Document{}, shared.ErrNotFound
	}
	return d, nil
}

func (m *mockRepository) ListByClient(_ context.Context, clientID string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Document{}
	for _, d := range m.docs {
		if d.ClientID == clientID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockRepository) SetVerified(_ context.Context, id string, verified bool, by *string, at *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return shared.ErrNotFound
	}
	d.IsVerified, d.VerifiedBy, d.VerifiedAt = verified, by, at
	m.docs[id] = d
	return nil
}

type stubProfiles map[string]profiles.Profile

func (s stubProfiles) Mine(_ context.Context, actor auth.Principal) (profiles.Profile, error) {
	p, ok := s[actor.ID]
	if !ok {
		p = profiles.Profile{ID: "p-" + actor.ID, UserID: actor.ID, Status: profiles.StatusNew}
		s[actor.ID] = p
	}
	return p, nil
}

func (s stubProfiles) Get(_ context.Context, id string) (profiles.Profile, error) {
	for _, p := range s {
		if p.ID == id {
			return p, nil
		}
	}
	return profiles.Profile{}, shared.ErrNotFound
}

type stubStore map[string]auth.Principal

func (s stubStore) LookupPrincipal(_ context.Context, id string) (auth.Principal, error) {
	p, ok := s[id]
	if !ok {
		return auth.Principal{}, auth.ErrPrincipalNotFound
	}
	return p, nil
}

func newTestService(t *testing.T, maxBytes int64) (*Service, *mockRepository) {
	t.Helper()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newMockRepository()
	return NewService(repo, store, stubProfiles{}, nil, nil, maxBytes), repo
}

func TestUploadSniffsContent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 0)

	doc, err := svc.Upload(ctx, owner, UploadInput{DocumentType: TypePassport, FileName: "scan.pdf", Data: pdfBytes})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Equal(t, "p-"+owner.ID, doc.ClientID)
	assert.Equal(t, doc.ID+".pdf", doc.StorageKey)
	assert.Equal(t, int64(len(pdfBytes)), doc.FileSize)

	doc, err = svc.Upload(ctx, owner, UploadInput{DocumentType: TypePhoto, FileName: "C:\\photos\\me.txt", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "image/png", doc.MimeType, "declared extension is ignored")
	assert.Equal(t, "me.txt", doc.FileName)

	_, err = svc.Upload(ctx, owner, UploadInput{DocumentType: TypeCV, FileName: "cv.pdf", Data: []byte("plain text pretending")})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.Upload(ctx, owner, UploadInput{DocumentType: "selfie", Data: pdfBytes})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Upload(ctx, owner, UploadInput{DocumentType: TypeCV})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUploadSizeLimit(t *testing.T) {
	svc, _ := newTestService(t, 16)
	_, err := svc.Upload(context.Background(), owner, UploadInput{DocumentType: TypeOther, Data: pdfBytes})
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestOpenOwnerOrElevated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 0)
	doc, err := svc.Upload(ctx, owner, UploadInput{DocumentType: TypeCV, FileName: "cv.pdf", Data: pdfBytes})
	require.NoError(t, err)

	for _, who := range []auth.Principal{owner, staff} {
		_, rc, err := svc.Open(ctx, who, doc.ID)
		require.NoError(t, err, who.ID)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, pdfBytes, data)
	}

	_, _, err = svc.Open(ctx, other, doc.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, _, err = svc.Open(ctx, staff, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, 0)
	doc, err := svc.Upload(ctx, owner, UploadInput{DocumentType: TypeMedical, FileName: "m.pdf", Data: pdfBytes})
	require.NoError(t, err)

	yes, no := true, false
	got, err := svc.Verify(ctx, staff, doc.ID, VerifyInput{Verified: &yes})
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	require.NotNil(t, got.VerifiedBy)
	assert.Equal(t, staff.ID, *got.VerifiedBy)
	assert.NotNil(t, got.VerifiedAt)

	got, err = svc.Verify(ctx, staff, doc.ID, VerifyInput{Verified: &no})
	require.NoError(t, err)
	assert.False(t, got.IsVerified)
	assert.Nil(t, got.VerifiedBy)

	_, err = svc.Verify(ctx, staff, doc.ID, VerifyInput{})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func multipartBody(t *testing.T, docType, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("document_type", docType))
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestDocumentRoutes(t *testing.T) {
	key, err := auth.NewSigningKey([]byte("0123456789abcdef0123456789abcdef"), "HS256")
	require.NoError(t, err)
	guard := auth.NewGuard(key, stubStore{owner.ID: owner, other.ID: other, staff.ID: staff})
	mw := auth.Middleware{Guard: guard}

	svc, _ := newTestService(t, 1024)
	h := NewHandler(nil, svc, mw)
	r := chi.NewRouter()
	r.Route("/api/documents", h.MountRoutes)
	r.Route("/api/admin/documents", h.MountAdminRoutes)
	r.Route("/api/admin/clients", func(r chi.Router) {
		r.Use(mw.Authenticate)
		h.MountClientRoutes(r)
	})

	do := func(req *http.Request, who auth.Principal) *httptest.ResponseRecorder {
		token, err := guard.IssueToken(who.ID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}
	upload := func(docType, name string, data []byte) *httptest.ResponseRecorder {
		body, ct := multipartBody(t, docType, name, data)
		req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", body)
		req.Header.Set("Content-Type", ct)
		return do(req, owner)
	}

	rr := upload("cv", "cv.pdf", pdfBytes)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var doc Document
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.NotContains(t, rr.Body.String(), "storage_key")

	assert.Equal(t, http.StatusBadRequest, upload("cv", "big.pdf", append(bytes.Clone(pdfBytes), make([]byte, 2048)...)).Code)
	assert.Equal(t, http.StatusBadRequest, upload("cv", "notes.txt", []byte("hello there")).Code)
	assert.Equal(t, http.StatusBadRequest, upload("resume", "cv.pdf", pdfBytes).Code)

	rr = do(httptest.NewRequest(http.MethodGet, "/api/documents/me", nil), owner)
	require.Equal(t, http.StatusOK, rr.Code)
	var mine []Document
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &mine))
	assert.Len(t, mine, 1)

	rr = do(httptest.NewRequest(http.MethodGet, "/api/documents/"+doc.ID+"/download", nil), owner)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename=cv.pdf`)
	assert.Equal(t, pdfBytes, rr.Body.Bytes())

	assert.Equal(t, http.StatusForbidden, do(httptest.NewRequest(http.MethodGet, "/api/documents/"+doc.ID+"/download", nil), other).Code)
	assert.Equal(t, http.StatusOK, do(httptest.NewRequest(http.MethodGet, "/api/documents/"+doc.ID+"/download", nil), staff).Code)

	path := "/api/admin/clients/" + doc.ClientID + "/documents"
	assert.Equal(t, http.StatusForbidden, do(httptest.NewRequest(http.MethodGet, path, nil), owner).Code)
	assert.Equal(t, http.StatusOK, do(httptest.NewRequest(http.MethodGet, path, nil), staff).Code)
	assert.Equal(t, http.StatusNotFound, do(httptest.NewRequest(http.MethodGet, "/api/admin/clients/nope/documents", nil), staff).Code)

	verify := func(who auth.Principal) int {
		req := httptest.NewRequest(http.MethodPut, "/api/admin/documents/"+doc.ID+"/verify", strings.NewReader(`{"is_verified":true}`))
		return do(req, who).Code
	}
	assert.Equal(t, http.StatusForbidden, verify(owner))
	assert.Equal(t, http.StatusOK, verify(staff))
}
