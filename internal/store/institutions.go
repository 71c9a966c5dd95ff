package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"careercatalyst/internal/models"
)

const institutionColumns = `id, name, email, password_hash, location, created_at, updated_at`

// InstitutionExists reports whether an institution id is taken.
func (s *Store) InstitutionExists(id string) (bool, error) {
	return s.rowExists("SELECT 1 FROM institutions WHERE id = ? LIMIT 1", id)
}

// CreateInstitution inserts one institution.
func (s *Store) CreateInstitution(ctx context.Context, institution *models.Institution) error {
	if institution == nil || strings.TrimSpace(institution.ID) == "" {
		return fmt.Errorf("institution id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO institutions (`+institutionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, institution.ID, institution.Name, institution.Email, institution.PasswordHash,
		nullIfEmpty(institution.Location), formatTime(institution.CreatedAt), formatTime(institution.UpdatedAt))
	if isUniqueConstraint(err) {
		return ErrDuplicateEmail
	}
	return err
}

// GetInstitution returns an institution by id, or nil.
func (s *Store) GetInstitution(ctx context.Context, id string) (*models.Institution, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+institutionColumns+` FROM institutions WHERE id = ? LIMIT 1`, id)
	return scanInstitution(row)
}

// GetInstitutionByEmail returns an institution by normalized email, or nil.
func (s *Store) GetInstitutionByEmail(ctx context.Context, email string) (*models.Institution, error) {
	if email == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+institutionColumns+` FROM institutions WHERE email = ? LIMIT 1`, email)
	return scanInstitution(row)
}

// ListInstitutions returns all institutions sorted by name.
func (s *Store) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+institutionColumns+` FROM institutions ORDER BY name COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	institutions := make([]models.Institution, 0)
	for rows.Next() {
		institution, err := scanInstitution(rows)
		if err != nil {
			return nil, err
		}
		if institution == nil {
			continue
		}
		institutions = append(institutions, *institution)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return institutions, nil
}

func scanInstitution(scanner interface {
	Scan(dest ...any) error
}) (*models.Institution, error) {
	var (
		institution models.Institution
		location    sql.NullString
		createdAt   string
		updatedAt   string
	)
	err := scanner.Scan(&institution.ID, &institution.Name, &institution.Email, &institution.PasswordHash,
		&location, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	institution.Location = location.String
	if institution.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if institution.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &institution, nil
}
