package server

import (
	"net/http"

	"careercatalyst/internal/models"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Accounts.
	mux.HandleFunc("POST /v1/individuals/register", s.handleRegisterIndividual)
	mux.HandleFunc("POST /v1/institutions/register", s.handleRegisterInstitution)
	mux.HandleFunc("POST /v1/organizations/register", s.handleRegisterOrganization)
	mux.HandleFunc("POST /v1/individuals/login", s.handleLogin(models.AccountIndividual))
	mux.HandleFunc("POST /v1/institutions/login", s.handleLogin(models.AccountInstitution))
	mux.HandleFunc("POST /v1/organizations/login", s.handleLogin(models.AccountOrganization))
	mux.HandleFunc("POST /v1/logout", s.handleLogout)
	mux.HandleFunc("GET /v1/me", s.handleMe)
	mux.HandleFunc("GET /v1/institutions", s.handleListInstitutions)

	// Resume lifecycle.
	mux.HandleFunc("PUT /v1/individuals/{id}/resume", s.handleReplaceResume)
	mux.HandleFunc("DELETE /v1/individuals/{id}/resume", s.handleRemoveResume)
	mux.HandleFunc("GET /uploads/{key}", s.handleServeUpload)

	// Jobs.
	mux.HandleFunc("POST /v1/jobs", s.handleCreateJob)
	mux.HandleFunc("GET /v1/jobs", s.handleListJobs)
	mux.HandleFunc("GET /v1/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("DELETE /v1/jobs/{id}", s.handleDeleteJob)

	// Students directory.
	mux.HandleFunc("GET /v1/students", s.handleListStudents)

	// Admin.
	mux.HandleFunc("POST /v1/admin/reconcile", s.handleAdminReconcile)

	return s.withRequestLogging(mux, s.withCORS(s.withAuth(mux)))
}
