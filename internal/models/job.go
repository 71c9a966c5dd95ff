package models

import "time"

// Job is a posting published by an institution.
type Job struct {
	ID            string     `json:"id"`
	InstitutionID string     `json:"institution_id"`
	Title         string     `json:"title"`
	Company       string     `json:"company"`
	Location      string     `json:"location,omitempty"`
	Description   string     `json:"description,omitempty"`
	Requirements  []string   `json:"requirements,omitempty"`
	Salary        string     `json:"salary,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
