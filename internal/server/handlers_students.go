package server

import (
	"net/http"
	"strings"

	"careercatalyst/internal/api"
	"careercatalyst/internal/models"
	"careercatalyst/internal/store"
)

// handleListStudents is the students directory. Institutions are pinned to
// their own students; organizations may filter by institution.
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requireKind(w, r, models.AccountInstitution, models.AccountOrganization)
	if !ok {
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	query := r.URL.Query()
	filter := store.StudentFilter{
		InstitutionID: strings.TrimSpace(query.Get("institution")),
		Year:          strings.TrimSpace(query.Get("year")),
		Department:    strings.TrimSpace(query.Get("department")),
		Search:        strings.TrimSpace(query.Get("search")),
		Limit:         limit,
	}
	if principal.Kind == models.AccountInstitution {
		filter.InstitutionID = principal.ID
	}

	students, err := s.store.ListStudents(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	resp := make([]api.StudentResponse, 0, len(students))
	for _, student := range students {
		resp = append(resp, api.StudentResponse{
			ID:            student.ID,
			Name:          student.Name,
			Email:         student.Email,
			InstitutionID: student.InstitutionID,
			Year:          student.Year,
			Department:    student.Department,
			Resume:        resumeRef(student.ResumeKey),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}
