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

// CreateSession creates a login session bound to one principal and token hash.
func (s *Store) CreateSession(ctx context.Context, principal models.Principal, tokenHash string, expiresAt, createdAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if strings.TrimSpace(principal.ID) == "" {
		return fmt.Errorf("account id is required")
	}
	if principal.Kind.IDPrefix() == "" {
		return fmt.Errorf("invalid account kind: %q", principal.Kind)
	}
	if tokenHash == "" {
		return fmt.Errorf("token hash is required")
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, account_kind, account_id, token_hash, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?)
	`, sessionID, string(principal.Kind), principal.ID, tokenHash, formatTime(expiresAt), formatTime(createdAt))
	return err
}

// GetPrincipalBySessionTokenHash returns the principal of an active, non-revoked session.
func (s *Store) GetPrincipalBySessionTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.Principal, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil, nil
	}

	var kind, id string
	err := s.db.QueryRowContext(ctx, `
		SELECT account_kind, account_id
		FROM sessions
		WHERE token_hash = ?
		  AND revoked_at IS NULL
		  AND expires_at > ?
		LIMIT 1
	`, tokenHash, formatTime(now)).Scan(&kind, &id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	parsed, err := models.ParseAccountKind(kind)
	if err != nil {
		return nil, err
	}
	return &models.Principal{Kind: parsed, ID: id}, nil
}

// RevokeSessionByTokenHash marks one session revoked by token hash.
func (s *Store) RevokeSessionByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET revoked_at = ?
		WHERE token_hash = ?
		  AND revoked_at IS NULL
	`, formatTime(revokedAt), tokenHash)
	return err
}
