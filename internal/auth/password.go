package auth

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
	maxEmailLength    = 254
)

var emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9](?:[a-z0-9-]*[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]*[a-z0-9])?)+$`)

// NormalizeEmail returns the canonical lowercase login email for every account kind.
func NormalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	if len(email) > maxEmailLength {
		return "", fmt.Errorf("email too long")
	}
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("invalid email")
	}
	return email, nil
}

// ValidatePassword checks minimal password requirements.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	// bcrypt ignores bytes past 72.
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d bytes", maxPasswordLength)
	}
	return nil
}

// HashPassword hashes one plaintext password for persistent storage.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword verifies plaintext password against a bcrypt hash.
func VerifyPassword(passwordHash, candidate string) bool {
	if strings.TrimSpace(passwordHash) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(candidate)) == nil
}
