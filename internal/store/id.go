package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"careercatalyst/internal/models"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idHashLength   = 10
	idMaxAttempts  = 20
)

// GenerateID returns a new record ID using prefix.
// It retries on collisions using the provided exists function.
func GenerateID(prefix string, exists func(string) (bool, error)) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("id prefix is required")
	}

	for i := 0; i < idMaxAttempts; i++ {
		hash, err := randomBase36(idHashLength)
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%s-%s", prefix, hash)
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique id")
}

// GenerateAccountID returns a new id for an account of the given kind.
func GenerateAccountID(kind models.AccountKind, exists func(string) (bool, error)) (string, error) {
	return GenerateID(kind.IDPrefix(), exists)
}

// GenerateJobID returns a new job id using the jb- prefix.
func GenerateJobID(exists func(string) (bool, error)) (string, error) {
	return GenerateID("jb", exists)
}

func randomBase36(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = base36Alphabet[int(b[i])%len(base36Alphabet)]
	}
	return string(out), nil
}

func generateSessionID() (string, error) {
	id, err := randomHex(10)
	if err != nil {
		return "", err
	}
	return "ss-" + id, nil
}

func randomHex(numBytes int) (string, error) {
	if numBytes <= 0 {
		return "", fmt.Errorf("numBytes must be > 0")
	}
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
