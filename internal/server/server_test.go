package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"careercatalyst/internal/api"
	"careercatalyst/internal/resume"
)

func TestListenAddrRemoteGuard(t *testing.T) {
	t.Run("allows loopback", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		addr, err := ListenAddr("http://127.0.0.1:7333")
		if err != nil {
			t.Fatalf("expected loopback to be allowed, got error: %v", err)
		}
		if addr != "127.0.0.1:7333" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})

	t.Run("blocks non-loopback by default", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "")
		_, err := ListenAddr("http://0.0.0.0:7333")
		if err == nil {
			t.Fatal("expected error for non-loopback listen host")
		}
	})

	t.Run("allows non-loopback when explicitly enabled", func(t *testing.T) {
		t.Setenv(allowRemoteEnvKey, "true")
		addr, err := ListenAddr("http://0.0.0.0:7333")
		if err != nil {
			t.Fatalf("expected allow-remote to permit host, got error: %v", err)
		}
		if addr != "0.0.0.0:7333" {
			t.Fatalf("unexpected addr: %s", addr)
		}
	})
}

func TestWithAuth(t *testing.T) {
	t.Run("admin routes need the operator token", func(t *testing.T) {
		srv := &Server{adminToken: "op-secret"}
		nextCalled := false
		handler := srv.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nextCalled = true
			w.WriteHeader(http.StatusNoContent)
		}))

		req := httptest.NewRequest(http.MethodPost, "/v1/admin/reconcile", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		expectError(t, w, http.StatusForbidden, ErrCodeForbidden)
		if nextCalled {
			t.Fatal("next handler should not run without admin token")
		}

		req = httptest.NewRequest(http.MethodPost, "/v1/admin/reconcile", nil)
		req.Header.Set(api.AdminTokenHeader, "op-secret")
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent || !nextCalled {
			t.Fatalf("expected admin request to pass, got %d", w.Code)
		}
	})

	t.Run("admin routes are closed when no token is configured", func(t *testing.T) {
		srv := &Server{}
		handler := srv.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/reconcile", nil)
		req.Header.Set(api.AdminTokenHeader, "")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", w.Code)
		}
	})

	t.Run("invalid bearer token is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodGet, "/v1/institutions", nil)
		w := env.do(t, req, "not-a-session")
		expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
	})

	t.Run("stale cookie is treated as anonymous", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodGet, "/v1/institutions", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "stale"})
		w := env.do(t, req, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for public route with stale cookie, got %d (%s)", w.Code, w.Body.String())
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/jobs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := env.do(t, req, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials to be allowed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/v1/jobs", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = env.do(t, req, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown origin, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unknown origin must not be echoed, got %q", got)
	}
}

func TestCORSWildcardDropsCredentials(t *testing.T) {
	policy := newCORSPolicy([]string{" * "})
	srv := &Server{cors: policy}
	handler := srv.withCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://anything.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("wildcard must not allow credentials, got %q", got)
	}
}

func TestResumeErrorMapping(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		errCode int
	}{
		{resume.ErrUnauthorized, http.StatusForbidden, ErrCodeForbidden},
		{resume.ErrOwnerNotFound, http.StatusNotFound, ErrCodeOwnerNotFound},
		{resume.ErrUnsupportedFileType, http.StatusBadRequest, ErrCodeUnsupportedFileType},
		{resume.ErrSourceBlobMissing, http.StatusBadRequest, ErrCodeSourceBlobMissing},
		{resume.ErrFileTooLarge, http.StatusRequestEntityTooLarge, ErrCodeFileTooLarge},
		{resume.ErrAlreadyBound, http.StatusConflict, ErrCodeAlreadyBound},
		{resume.ErrConcurrentUpdate, http.StatusConflict, ErrCodeConflict},
		{resume.ErrStorageWriteFailure, http.StatusInternalServerError, ErrCodeStorageWriteFailure},
		{resume.ErrStorageInconsistency, http.StatusInternalServerError, ErrCodeStorageInconsistency},
		{errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeStoreFailure},
	}
	for _, tt := range tests {
		wrapped := fmt.Errorf("outer: %w", tt.err)
		mapped := resumeError(wrapped)
		var apiErr apiError
		if !errors.As(mapped, &apiErr) {
			t.Fatalf("%v: expected apiError, got %T", tt.err, mapped)
		}
		if apiErr.status != tt.status || apiErr.errCode != tt.errCode {
			t.Fatalf("%v: expected %d/%d, got %d/%d", tt.err, tt.status, tt.errCode, apiErr.status, apiErr.errCode)
		}
	}
}

func TestInternalErrorsAreMasked(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	env.srv.writeResumeError(w, req, fmt.Errorf("%w: disk path /secret/x", resume.ErrStorageWriteFailure))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var errResp api.ErrorResponse
	decodeBody(t, w, &errResp)
	if errResp.Error != "internal error" {
		t.Fatalf("expected masked message, got %q", errResp.Error)
	}
	if errResp.ErrorCode != ErrCodeStorageWriteFailure {
		t.Fatalf("expected error_code %d, got %d", ErrCodeStorageWriteFailure, errResp.ErrorCode)
	}
}
