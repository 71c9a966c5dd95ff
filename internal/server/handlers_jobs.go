package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"careercatalyst/internal/api"
	"careercatalyst/internal/models"
	"careercatalyst/internal/store"
)

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requireKind(w, r, models.AccountInstitution)
	if !ok {
		return
	}
	var req api.JobCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	job, err := jobFromRequest(req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	id, err := store.GenerateJobID(s.store.JobExists)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	now := time.Now().UTC()
	job.ID = id
	job.InstitutionID = principal.ID
	job.CreatedAt = now
	job.UpdatedAt = now
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.JobResponse{Job: *job})
}

func jobFromRequest(req api.JobCreateRequest) (*models.Job, error) {
	var (
		job models.Job
		err error
	)
	if job.Title, err = requireText("title", req.Title, maxNameLength); err != nil {
		return nil, err
	}
	if job.Company, err = requireText("company", req.Company, maxNameLength); err != nil {
		return nil, err
	}
	if job.Location, err = optionalText("location", req.Location, maxNameLength); err != nil {
		return nil, err
	}
	if job.Description, err = optionalText("description", req.Description, maxDescriptionLength); err != nil {
		return nil, err
	}
	if job.Salary, err = optionalText("salary", req.Salary, maxShortFieldLength); err != nil {
		return nil, err
	}
	if job.Requirements, err = normalizeRequirements(req.Requirements); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Deadline) != "" {
		deadline, err := parseFlexibleTime(req.Deadline)
		if err != nil {
			return nil, err
		}
		deadline = deadline.UTC()
		job.Deadline = &deadline
	}
	return &job, nil
}

// handleListJobs lists postings. Institutions only see their own; other
// accounts see all and may narrow by institution.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	filter := store.JobFilter{
		InstitutionID: strings.TrimSpace(r.URL.Query().Get("institution")),
		Search:        strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:         limit,
	}
	if principal.Kind == models.AccountInstitution {
		filter.InstitutionID = principal.ID
	}

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	resp := make([]api.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, api.JobResponse{Job: job})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	job, ok := s.visibleJob(w, r, principal)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requireKind(w, r, models.AccountInstitution)
	if !ok {
		return
	}
	job, ok := s.visibleJob(w, r, principal)
	if !ok {
		return
	}
	if _, err := s.store.DeleteJob(r.Context(), job.ID); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// visibleJob loads the path job. Another institution's job is reported as
// missing rather than forbidden.
func (s *Server) visibleJob(w http.ResponseWriter, r *http.Request, principal models.Principal) (*models.Job, bool) {
	id, ok := s.pathIDOrBadRequest(w, r, validateJobID)
	if !ok {
		return nil, false
	}
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return nil, false
	}
	if job == nil || (principal.Kind == models.AccountInstitution && job.InstitutionID != principal.ID) {
		s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("job not found"), ErrCodeJobNotFound))
		return nil, false
	}
	return job, true
}
