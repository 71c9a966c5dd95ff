package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"careercatalyst/internal/api"
	"careercatalyst/internal/blobstore"
	"careercatalyst/internal/resume"
)

const uploadsPathPrefix = "/uploads/"

// parseMultipart bounds and parses a multipart body. Bodies over the resume
// limit plus form overhead are rejected as too large.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.resumes.MaxBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(s.multipartMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeResumeError(w, r, fmt.Errorf("%w: request body exceeds %d bytes", resume.ErrFileTooLarge, maxBytesErr.Limit))
			return false
		}
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("invalid multipart form: %v", err), ErrCodeInvalidMultipart))
		return false
	}
	return true
}

// formUpload opens the file part named field as a resume upload.
func (s *Server) formUpload(w http.ResponseWriter, r *http.Request, field string) (resume.Upload, func(), bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("%s file is required", field), ErrCodeMissingRequired))
		} else {
			s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidMultipart))
		}
		return resume.Upload{}, nil, false
	}
	return resume.Upload{
		Reader:    file,
		Filename:  header.Filename,
		MediaType: partMediaType(header),
	}, func() { _ = file.Close() }, true
}

func partMediaType(header *multipart.FileHeader) string {
	if header == nil {
		return ""
	}
	return header.Header.Get("Content-Type")
}

func (s *Server) handleReplaceResume(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	ownerID, ok := s.pathIDOrBadRequest(w, r, validateIndividualID)
	if !ok {
		return
	}
	if !s.acquireLimiter(s.uploadLimiter, w, r, "upload") {
		return
	}
	defer s.releaseLimiter(s.uploadLimiter)

	if !s.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	upload, closeUpload, ok := s.formUpload(w, r, "resume")
	if !ok {
		return
	}
	defer closeUpload()

	loc, err := s.resumes.Replace(r.Context(), principal, ownerID, upload)
	if err != nil {
		s.writeResumeError(w, r, err)
		return
	}
	resp := resumeRef(loc.Key)
	resp.SizeBytes = loc.SizeBytes
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveResume(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	ownerID, ok := s.pathIDOrBadRequest(w, r, validateIndividualID)
	if !ok {
		return
	}

	err := s.resumes.Remove(r.Context(), principal, ownerID)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, api.ResumeDeleteResponse{Deleted: true})
	case errors.Is(err, resume.ErrNothingToDelete):
		s.writeJSON(w, http.StatusOK, api.ResumeDeleteResponse{Deleted: false})
	default:
		s.writeResumeError(w, r, err)
	}
}

// handleServeUpload serves a bound resume by key. Temporary and unbound keys
// are not reachable.
func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	reader, obj, err := s.resumes.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.writeErrorReq(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("resume not found"), ErrCodeResumeNotFound))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", obj.Key))
	// ServeContent derives Content-Type from the key extension.
	http.ServeContent(w, r, obj.Key, obj.ModTime, reader)
}

// resumeRef returns the public reference of a bound key, or nil when unbound.
func resumeRef(key string) *api.ResumeResponse {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	return &api.ResumeResponse{Key: key, URL: uploadsPathPrefix + url.PathEscape(key)}
}
