package server

import (
	"net/http"
	"time"

	"careercatalyst/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context(), time.Now().UTC())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.InfoResponse{
		DBPath:         s.dbPath,
		UploadDir:      s.uploadDir,
		SchemaVersion:  info.SchemaVersion,
		Individuals:    info.Individuals,
		BoundResumes:   info.BoundResumes,
		Institutions:   info.Institutions,
		Organizations:  info.Organizations,
		Jobs:           info.Jobs,
		ActiveSessions: info.ActiveSessions,
	})
}
