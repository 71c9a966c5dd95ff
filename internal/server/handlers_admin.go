package server

import (
	"fmt"
	"net/http"
	"time"

	"careercatalyst/internal/api"
	"careercatalyst/internal/resume"
)

// handleAdminReconcile runs the drift sweep. apply=true deletes orphans and
// clears dangling references and needs the X-Confirm: true header.
func (s *Server) handleAdminReconcile(w http.ResponseWriter, r *http.Request) {
	apply, err := queryBool(r, "apply")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	grace, err := queryDuration(r, "grace", s.orphanGrace)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if apply && r.Header.Get("X-Confirm") != "true" {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("apply requires X-Confirm: true header"), ErrCodeMissingRequired))
		return
	}

	report, err := s.resumes.Reconcile(r.Context(), resume.ReconcileOptions{
		Apply:       apply,
		GracePeriod: grace,
		Now:         time.Now(),
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if !report.Clean() {
		s.log().Warn("resume drift reported",
			"dangling", len(report.Dangling),
			"orphans", len(report.Orphans),
			"applied", apply,
			"failed", report.FailedCount,
		)
	}
	s.writeJSON(w, http.StatusOK, api.ReconcileResponse{ReconcileReport: report})
}
