package models

import "time"

// Individual is a student profile. It owns at most one bound resume blob.
type Individual struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	InstitutionID string    `json:"institution_id"`
	Year          string    `json:"year,omitempty"`
	Department    string    `json:"department,omitempty"`
	ResumeKey     string    `json:"resume_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasResume reports whether a blob is bound to the individual.
func (i *Individual) HasResume() bool {
	return i != nil && i.ResumeKey != ""
}
