package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	internalauth "careercatalyst/internal/auth"
	"careercatalyst/internal/models"
	"careercatalyst/internal/store"
)

const (
	sessionCookieName = "careercatalyst_session"
	authTypeBearer    = "bearer"
	authTypeSession   = "session"
)

var (
	defaultSessionTTL     = 24 * time.Hour
	errInvalidCredentials = errors.New("invalid credentials")
)

type authStore interface {
	store.AccountStore
	store.SessionStore
}

// AuthService encapsulates login and session operations for every account kind.
type AuthService struct {
	store      authStore
	sessionTTL time.Duration
}

type authLoginResult struct {
	Principal models.Principal
	Token     string
	ExpiresAt time.Time
}

func NewAuthService(st authStore) *AuthService {
	if st == nil {
		return nil
	}
	return &AuthService{store: st, sessionTTL: defaultSessionTTL}
}

// Login verifies email and password for an account of kind and opens a session.
func (a *AuthService) Login(ctx context.Context, kind models.AccountKind, email, password string, now time.Time) (*authLoginResult, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}

	normalized, err := internalauth.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("password is required")
	}

	id, passwordHash, err := a.credentials(ctx, kind, normalized)
	if err != nil {
		return nil, err
	}
	if id == "" || !internalauth.VerifyPassword(passwordHash, password) {
		return nil, errInvalidCredentials
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, err
	}
	principal := models.Principal{Kind: kind, ID: id}
	expiresAt := now.Add(a.sessionTTL)
	if err := a.store.CreateSession(ctx, principal, hashSessionToken(token), expiresAt, now); err != nil {
		return nil, err
	}

	return &authLoginResult{
		Principal: principal,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (a *AuthService) credentials(ctx context.Context, kind models.AccountKind, email string) (string, string, error) {
	switch kind {
	case models.AccountIndividual:
		individual, err := a.store.GetIndividualByEmail(ctx, email)
		if err != nil || individual == nil {
			return "", "", err
		}
		return individual.ID, individual.PasswordHash, nil
	case models.AccountInstitution:
		institution, err := a.store.GetInstitutionByEmail(ctx, email)
		if err != nil || institution == nil {
			return "", "", err
		}
		return institution.ID, institution.PasswordHash, nil
	case models.AccountOrganization:
		organization, err := a.store.GetOrganizationByEmail(ctx, email)
		if err != nil || organization == nil {
			return "", "", err
		}
		return organization.ID, organization.PasswordHash, nil
	default:
		return "", "", fmt.Errorf("invalid account kind: %q", kind)
	}
}

func (a *AuthService) AuthenticateSessionToken(ctx context.Context, token string, now time.Time) (*models.Principal, error) {
	if a == nil || a.store == nil {
		return nil, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return a.store.GetPrincipalBySessionTokenHash(ctx, hashSessionToken(token), now)
}

func (a *AuthService) RevokeSessionToken(ctx context.Context, token string, now time.Time) error {
	if a == nil || a.store == nil {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	return a.store.RevokeSessionByTokenHash(ctx, hashSessionToken(token), now)
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
