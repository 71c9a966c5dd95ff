package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"careercatalyst/internal/models"
)

// ErrDuplicateEmail is returned when an account with the same email already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// StudentFilter narrows the students directory.
type StudentFilter struct {
	InstitutionID string
	Year          string
	Department    string
	Search        string
	Limit         int
}

const individualColumns = `id, name, email, password_hash, institution_id, year, department, resume_key, created_at, updated_at`

// IndividualExists reports whether an individual id is taken.
func (s *Store) IndividualExists(id string) (bool, error) {
	return s.rowExists("SELECT 1 FROM individuals WHERE id = ? LIMIT 1", id)
}

// CreateIndividual inserts an individual. The resume key is always stored unbound;
// binding happens through UpdateResumeKey once the id is known.
func (s *Store) CreateIndividual(ctx context.Context, individual *models.Individual) error {
	if individual == nil {
		return fmt.Errorf("individual is required")
	}
	if strings.TrimSpace(individual.ID) == "" {
		return fmt.Errorf("individual id is required")
	}
	if individual.ResumeKey != "" {
		return fmt.Errorf("individual must be created without a resume key")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO individuals (`+individualColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)
	`, individual.ID, individual.Name, individual.Email, individual.PasswordHash, individual.InstitutionID,
		nullIfEmpty(individual.Year), nullIfEmpty(individual.Department),
		formatTime(individual.CreatedAt), formatTime(individual.UpdatedAt))
	if isUniqueConstraint(err) {
		return ErrDuplicateEmail
	}
	return err
}

// GetIndividual returns an individual by id, or nil when it does not exist.
func (s *Store) GetIndividual(ctx context.Context, id string) (*models.Individual, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+individualColumns+` FROM individuals WHERE id = ? LIMIT 1`, id)
	return scanIndividual(row)
}

// GetIndividualByEmail returns an individual by normalized email.
func (s *Store) GetIndividualByEmail(ctx context.Context, email string) (*models.Individual, error) {
	if email == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+individualColumns+` FROM individuals WHERE email = ? LIMIT 1`, email)
	return scanIndividual(row)
}

// UpdateResumeKey sets resume_key to next only if it currently equals expected.
// An empty string stands for no key on either side.
func (s *Store) UpdateResumeKey(ctx context.Context, id, expected, next string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, fmt.Errorf("individual id is required")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE individuals
		SET resume_key = ?, updated_at = ?
		WHERE id = ? AND resume_key IS ?
	`, nullIfEmpty(next), formatTime(time.Now()), id, nullIfEmpty(expected))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteIndividual removes an individual and its sessions.
func (s *Store) DeleteIndividual(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE account_kind = ? AND account_id = ?`, string(models.AccountIndividual), id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM individuals WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListResumeKeys returns the bound resume key of every individual that has one.
func (s *Store) ListResumeKeys(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, resume_key FROM individuals WHERE resume_key IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]string)
	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, err
		}
		keys[id] = key
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// ListStudents returns individuals matching filter, sorted by name.
func (s *Store) ListStudents(ctx context.Context, filter StudentFilter) ([]models.Individual, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.InstitutionID != "" {
		conditions = append(conditions, "institution_id = ?")
		args = append(args, filter.InstitutionID)
	}
	if filter.Year != "" {
		conditions = append(conditions, "year = ?")
		args = append(args, filter.Year)
	}
	if filter.Department != "" {
		conditions = append(conditions, "LOWER(department) = LOWER(?)")
		args = append(args, filter.Department)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		conditions = append(conditions, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(COALESCE(department, '')) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT ` + individualColumns + ` FROM individuals`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name COLLATE NOCASE ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]models.Individual, 0)
	for rows.Next() {
		individual, err := scanIndividual(rows)
		if err != nil {
			return nil, err
		}
		if individual == nil {
			continue
		}
		students = append(students, *individual)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return students, nil
}

func scanIndividual(scanner interface {
	Scan(dest ...any) error
}) (*models.Individual, error) {
	var (
		individual models.Individual
		year       sql.NullString
		department sql.NullString
		resumeKey  sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := scanner.Scan(&individual.ID, &individual.Name, &individual.Email, &individual.PasswordHash,
		&individual.InstitutionID, &year, &department, &resumeKey, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	individual.Year = year.String
	individual.Department = department.String
	individual.ResumeKey = resumeKey.String
	if individual.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if individual.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &individual, nil
}

func likePattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(search)) + "%"
}
