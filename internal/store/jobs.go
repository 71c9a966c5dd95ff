package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"careercatalyst/internal/models"
)

// JobFilter narrows job listings.
type JobFilter struct {
	InstitutionID string
	Search        string
	Limit         int
}

const jobColumns = `id, institution_id, title, company, location, description, requirements, salary, deadline, created_at, updated_at`

// JobExists reports whether a job id is taken.
func (s *Store) JobExists(id string) (bool, error) {
	return s.rowExists("SELECT 1 FROM jobs WHERE id = ? LIMIT 1", id)
}

// CreateJob inserts one job posting.
func (s *Store) CreateJob(ctx context.Context, job *models.Job) error {
	if job == nil || strings.TrimSpace(job.ID) == "" {
		return fmt.Errorf("job id is required")
	}
	requirements, err := encodeRequirements(job.Requirements)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.InstitutionID, job.Title, job.Company, nullIfEmpty(job.Location), nullIfEmpty(job.Description),
		requirements, nullIfEmpty(job.Salary), nullTime(job.Deadline), formatTime(job.CreatedAt), formatTime(job.UpdatedAt))
	return err
}

// GetJob returns a job by id, or nil.
func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ? LIMIT 1`, id)
	return scanJob(row)
}

// ListJobs returns jobs matching filter, newest first.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]models.Job, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.InstitutionID != "" {
		conditions = append(conditions, "institution_id = ?")
		args = append(args, filter.InstitutionID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		conditions = append(conditions, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\' OR LOWER(COALESCE(location, '')) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]models.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		if job == nil {
			continue
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// DeleteJob deletes one job and reports whether it existed.
func (s *Store) DeleteJob(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanJob(scanner interface {
	Scan(dest ...any) error
}) (*models.Job, error) {
	var (
		job          models.Job
		location     sql.NullString
		description  sql.NullString
		requirements sql.NullString
		salary       sql.NullString
		deadline     sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := scanner.Scan(&job.ID, &job.InstitutionID, &job.Title, &job.Company, &location, &description,
		&requirements, &salary, &deadline, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	job.Location = location.String
	job.Description = description.String
	job.Salary = salary.String
	if requirements.Valid && requirements.String != "" {
		if err := json.Unmarshal([]byte(requirements.String), &job.Requirements); err != nil {
			return nil, fmt.Errorf("decode requirements for %s: %w", job.ID, err)
		}
	}
	if job.Deadline, err = parseNullTime(deadline); err != nil {
		return nil, err
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

func encodeRequirements(requirements []string) (any, error) {
	if len(requirements) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(requirements)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
