package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS = 5000

	defaultMaxOpenConns    = 1
	defaultMaxIdleConns    = 1
	defaultConnMaxLifetime = 5 * time.Minute

	maxOpenConnsEnvKey    = "CAREERCATALYST_DB_MAX_OPEN_CONNS"
	maxIdleConnsEnvKey    = "CAREERCATALYST_DB_MAX_IDLE_CONNS"
	connMaxLifetimeEnvKey = "CAREERCATALYST_DB_CONN_MAX_LIFETIME"
)

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Info summarizes store contents for diagnostics.
type Info struct {
	SchemaVersion  int `json:"schema_version"`
	Individuals    int `json:"individuals"`
	BoundResumes   int `json:"bound_resumes"`
	Institutions   int `json:"institutions"`
	Organizations  int `json:"organizations"`
	Jobs           int `json:"jobs"`
	ActiveSessions int `json:"active_sessions"`
}

// Open opens the SQLite database and applies pending migrations.
func Open(path string) (*Store, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := configureDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// StoreInfo returns row counts used by the info endpoint.
func (s *Store) StoreInfo(ctx context.Context, now time.Time) (Info, error) {
	var info Info
	version, err := currentVersion(s.db)
	if err != nil {
		return info, err
	}
	info.SchemaVersion = version

	counts := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&info.Individuals, "SELECT COUNT(*) FROM individuals", nil},
		{&info.BoundResumes, "SELECT COUNT(*) FROM individuals WHERE resume_key IS NOT NULL", nil},
		{&info.Institutions, "SELECT COUNT(*) FROM institutions", nil},
		{&info.Organizations, "SELECT COUNT(*) FROM organizations", nil},
		{&info.Jobs, "SELECT COUNT(*) FROM jobs", nil},
		{&info.ActiveSessions, "SELECT COUNT(*) FROM sessions WHERE revoked_at IS NULL AND expires_at > ?", []any{formatTime(now)}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return info, err
		}
	}
	return info, nil
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Tune connection pool for local usage.
	db.SetMaxOpenConns(intFromEnv(maxOpenConnsEnvKey, defaultMaxOpenConns))
	db.SetMaxIdleConns(intFromEnv(maxIdleConnsEnvKey, defaultMaxIdleConns))
	db.SetConnMaxLifetime(durationFromEnv(connMaxLifetimeEnvKey, defaultConnMaxLifetime))

	return nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String(), nil
}

func intFromEnv(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return def
		}
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return formatTime(*value)
}

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	parsed, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) rowExists(query string, args ...any) (bool, error) {
	var one int
	err := s.db.QueryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
