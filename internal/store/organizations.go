package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"careercatalyst/internal/models"
)

const organizationColumns = `id, name, email, password_hash, industry, created_at, updated_at`

// OrganizationExists reports whether an organization id is taken.
func (s *Store) OrganizationExists(id string) (bool, error) {
	return s.rowExists("SELECT 1 FROM organizations WHERE id = ? LIMIT 1", id)
}

// CreateOrganization inserts one organization.
func (s *Store) CreateOrganization(ctx context.Context, organization *models.Organization) error {
	if organization == nil || strings.TrimSpace(organization.ID) == "" {
		return fmt.Errorf("organization id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (`+organizationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, organization.ID, organization.Name, organization.Email, organization.PasswordHash,
		nullIfEmpty(organization.Industry), formatTime(organization.CreatedAt), formatTime(organization.UpdatedAt))
	if isUniqueConstraint(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = ? LIMIT 1`, id)
	return scanOrganization(row)
}

func (s *Store) GetOrganizationByEmail(ctx context.Context, email string) (*models.Organization, error) {
	if email == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE email = ? LIMIT 1`, email)
	return scanOrganization(row)
}

func scanOrganization(scanner interface {
	Scan(dest ...any) error
}) (*models.Organization, error) {
	var (
		organization models.Organization
		industry     sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := scanner.Scan(&organization.ID, &organization.Name, &organization.Email, &organization.PasswordHash,
		&industry, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	organization.Industry = industry.String
	if organization.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if organization.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &organization, nil
}
