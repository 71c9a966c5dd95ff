package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"careercatalyst/internal/api"
	internalauth "careercatalyst/internal/auth"
	"careercatalyst/internal/blobstore"
	"careercatalyst/internal/models"
	"careercatalyst/internal/resume"
	"careercatalyst/internal/store"
)

const testPassword = "password-123"

type testEnv struct {
	srv   *Server
	h     http.Handler
	st    *store.Store
	blobs *blobstore.LocalDir
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blobstore.NewLocalDir(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resumes := resume.NewManager(blobs, st, resume.Options{
		MaxBytes:                64 << 10,
		RejectMediaTypeMismatch: true,
		Logger:                  logger,
	})
	srv := New("127.0.0.1:0", st, resumes, Options{
		DBPath:      st.Path(),
		UploadDir:   blobs.Root(),
		CORSOrigins: []string{"http://localhost:3000"},
		Logger:      logger,
	})
	return &testEnv{srv: srv, h: srv.routes(), st: st, blobs: blobs}
}

func (e *testEnv) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(t, req, token)
}

func (e *testEnv) seedInstitution(t *testing.T, name, email string) *models.Institution {
	t.Helper()
	hash, err := internalauth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	id, err := store.GenerateAccountID(models.AccountInstitution, e.st.InstitutionExists)
	if err != nil {
		t.Fatalf("generate id: %v", err)
	}
	now := time.Now().UTC()
	institution := &models.Institution{ID: id, Name: name, Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	if err := e.st.CreateInstitution(context.Background(), institution); err != nil {
		t.Fatalf("create institution: %v", err)
	}
	return institution
}

func (e *testEnv) seedOrganization(t *testing.T, email string) *models.Organization {
	t.Helper()
	hash, err := internalauth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	id, err := store.GenerateAccountID(models.AccountOrganization, e.st.OrganizationExists)
	if err != nil {
		t.Fatalf("generate id: %v", err)
	}
	now := time.Now().UTC()
	organization := &models.Organization{ID: id, Name: "Acme Hiring", Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	if err := e.st.CreateOrganization(context.Background(), organization); err != nil {
		t.Fatalf("create organization: %v", err)
	}
	return organization
}

type filePart struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, file *filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := mw.WriteField(key, fields[key]); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.filename+`"`)
		if file.contentType != "" {
			header.Set("Content-Type", file.contentType)
		}
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(file.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pdfPart(body string) *filePart {
	return &filePart{field: "resume", filename: "cv.pdf", contentType: "application/pdf", content: []byte("%PDF-1.4\n" + body)}
}

func registrationFields(email, college string) map[string]string {
	return map[string]string{
		"name":       "Ana Lima",
		"email":      email,
		"password":   testPassword,
		"college":    college,
		"year":       "3",
		"department": "Computer Science",
	}
}

// registerIndividual registers a student through the API and returns the profile.
func (e *testEnv) registerIndividual(t *testing.T, email, college string) api.AccountResponse {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/v1/individuals/register", registrationFields(email, college), pdfPart("resume of "+email))
	w := e.do(t, req, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register individual: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var resp api.AccountResponse
	decodeBody(t, w, &resp)
	return resp
}

func (e *testEnv) login(t *testing.T, kind models.AccountKind, email string) string {
	t.Helper()
	w := e.doJSON(t, http.MethodPost, "/v1/"+string(kind)+"s/login", api.LoginRequest{Email: email, Password: testPassword}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", email, w.Code, w.Body.String())
	}
	var resp api.LoginResponse
	decodeBody(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("expected session token")
	}
	return resp.Token
}

// storedKeys lists blob keys on disk, staging excluded.
func (e *testEnv) storedKeys(t *testing.T) []string {
	t.Helper()
	objects, err := e.blobs.List(context.Background())
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys
}

func (e *testEnv) blobContent(t *testing.T, key string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.blobs.Root(), key))
	if err != nil {
		t.Fatalf("read blob %s: %v", key, err)
	}
	return string(data)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status, errCode int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	var errResp api.ErrorResponse
	decodeBody(t, w, &errResp)
	if errResp.ErrorCode != errCode {
		t.Fatalf("expected error_code %d, got %d (%s)", errCode, errResp.ErrorCode, errResp.Error)
	}
}
