package api

import (
	"time"

	"careercatalyst/internal/models"
	"careercatalyst/internal/resume"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// InfoResponse describes server and store state.
type InfoResponse struct {
	DBPath         string `json:"db_path"`
	UploadDir      string `json:"upload_dir"`
	SchemaVersion  int    `json:"schema_version"`
	Individuals    int    `json:"individuals"`
	BoundResumes   int    `json:"bound_resumes"`
	Institutions   int    `json:"institutions"`
	Organizations  int    `json:"organizations"`
	Jobs           int    `json:"jobs"`
	ActiveSessions int    `json:"active_sessions"`
}

// InstitutionRegisterRequest is the payload for registering a college.
type InstitutionRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Location string `json:"location,omitempty"`
}

// OrganizationRegisterRequest is the payload for registering a recruiter.
type OrganizationRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Industry string `json:"industry,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   AccountResponse `json:"account"`
}

// AccountResponse is the profile of any account kind. Fields that do not
// apply to the kind are omitted.
type AccountResponse struct {
	Kind          models.AccountKind `json:"kind"`
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Location      string             `json:"location,omitempty"`
	Industry      string             `json:"industry,omitempty"`
	InstitutionID string             `json:"institution_id,omitempty"`
	Year          string             `json:"year,omitempty"`
	Department    string             `json:"department,omitempty"`
	Resume        *ResumeResponse    `json:"resume,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// InstitutionSummary is the public view used by the sign-up form.
type InstitutionSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// StudentResponse is one entry of the students directory.
type StudentResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	InstitutionID string          `json:"institution_id"`
	Year          string          `json:"year,omitempty"`
	Department    string          `json:"department,omitempty"`
	Resume        *ResumeResponse `json:"resume,omitempty"`
}

// ResumeResponse locates a bound resume.
type ResumeResponse struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// ResumeDeleteResponse reports the outcome of a resume removal.
type ResumeDeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// JobCreateRequest is the payload for posting a job. Deadline accepts
// RFC3339 or YYYY-MM-DD.
type JobCreateRequest struct {
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location,omitempty"`
	Description  string   `json:"description,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	Salary       string   `json:"salary,omitempty"`
	Deadline     string   `json:"deadline,omitempty"`
}

type JobResponse struct {
	models.Job
}

// ReconcileResponse is the report of one drift sweep.
type ReconcileResponse struct {
	resume.ReconcileReport
}
