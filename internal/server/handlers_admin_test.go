package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"careercatalyst/internal/api"
	"careercatalyst/internal/resume"
)

const testAdminToken = "operator-secret"

func adminRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(api.AdminTokenHeader, testAdminToken)
	return req
}

func TestAdminReconcileReportsAndRemovesOrphans(t *testing.T) {
	t.Setenv(adminTokenEnvKey, testAdminToken)
	env := newTestEnv(t)
	college := env.seedInstitution(t, "State University", "admissions@state.edu")
	account := env.registerIndividual(t, "ana@example.com", college.ID)

	orphan, err := env.srv.resumes.Store(context.Background(), resume.Upload{
		Reader:   bytes.NewReader([]byte("%PDF-1.4\nabandoned")),
		Filename: "cv.pdf",
	})
	if err != nil {
		t.Fatalf("store orphan: %v", err)
	}

	w := env.do(t, adminRequest(http.MethodPost, "/v1/admin/reconcile"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var report api.ReconcileResponse
	decodeBody(t, w, &report)
	if len(report.Orphans) != 0 {
		t.Fatalf("fresh uploads are inside the grace period, got %#v", report.Orphans)
	}

	w = env.do(t, adminRequest(http.MethodPost, "/v1/admin/reconcile?grace=0s"), "")
	decodeBody(t, w, &report)
	if !report.DryRun || len(report.Orphans) != 1 || report.Orphans[0].Key != orphan.Key || !report.Orphans[0].Temporary {
		t.Fatalf("expected one temporary orphan in dry run, got %#v", report.ReconcileReport)
	}
	if report.BoundOwners != 1 || len(report.Dangling) != 0 {
		t.Fatalf("unexpected bound state %#v", report.ReconcileReport)
	}

	w = env.do(t, adminRequest(http.MethodPost, "/v1/admin/reconcile?grace=0s&apply=true"), "")
	expectError(t, w, http.StatusBadRequest, ErrCodeMissingRequired)

	req := adminRequest(http.MethodPost, "/v1/admin/reconcile?grace=0s&apply=true")
	req.Header.Set("X-Confirm", "true")
	w = env.do(t, req, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	decodeBody(t, w, &report)
	if report.DryRun || len(report.Orphans) != 1 || !report.Orphans[0].Deleted {
		t.Fatalf("expected orphan deleted, got %#v", report.ReconcileReport)
	}

	keys := env.storedKeys(t)
	if len(keys) != 1 || keys[0] != account.ID+".pdf" {
		t.Fatalf("expected only the bound blob to remain, got %v", keys)
	}
}

func TestAdminReconcileRejectsBadQuery(t *testing.T) {
	t.Setenv(adminTokenEnvKey, testAdminToken)
	env := newTestEnv(t)

	w := env.do(t, adminRequest(http.MethodPost, "/v1/admin/reconcile?grace=soon"), "")
	expectError(t, w, http.StatusBadRequest, ErrCodeInvalidQuery)

	w = env.do(t, adminRequest(http.MethodPost, "/v1/admin/reconcile?apply=maybe"), "")
	expectError(t, w, http.StatusBadRequest, ErrCodeInvalidQuery)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/reconcile", nil)
	w = env.do(t, req, "")
	expectError(t, w, http.StatusForbidden, ErrCodeForbidden)
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t)
	college := env.seedInstitution(t, "State University", "admissions@state.edu")
	env.registerIndividual(t, "ana@example.com", college.ID)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	if w.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", w.Code)
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/info", nil), "")
	if w.Code != http.StatusOK {
		t.Fatalf("info: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var info api.InfoResponse
	decodeBody(t, w, &info)
	if info.Individuals != 1 || info.BoundResumes != 1 || info.Institutions != 1 {
		t.Fatalf("unexpected counts %#v", info)
	}
	if info.SchemaVersion == 0 || info.UploadDir == "" {
		t.Fatalf("expected schema version and upload dir, got %#v", info)
	}
}
