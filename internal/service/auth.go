package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWeakToken    = errors.New("token must be at least 32 characters")
)

const minTokenLength = 32

// TokenAuth checks API bearer tokens against a single bcrypt hash. The
// digest of the last accepted token is remembered so repeated requests do
// not pay for bcrypt every time.
type TokenAuth struct {
	hash []byte

	mu       sync.RWMutex
	accepted [sha256.Size]byte
	known    bool
}

// NewTokenAuth returns an authenticator for hash. An empty hash disables
// authentication.
func NewTokenAuth(hash string) *TokenAuth {
	return &TokenAuth{hash: []byte(strings.TrimSpace(hash))}
}

func (a *TokenAuth) Enabled() bool {
	return len(a.hash) > 0
}

func (a *TokenAuth) Validate(token string) error {
	if !a.Enabled() {
		return nil
	}
	if token == "" {
		return ErrInvalidToken
	}

	digest := sha256.Sum256([]byte(token))
	a.mu.RLock()
	hit := a.known && subtle.ConstantTimeCompare(digest[:], a.accepted[:]) == 1
	a.mu.RUnlock()
	if hit {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(token)); err != nil {
		return ErrInvalidToken
	}

	a.mu.Lock()
	a.accepted = digest
	a.known = true
	a.mu.Unlock()
	return nil
}

// HashToken produces the value to put in API_TOKEN_HASH.
func HashToken(token string) (string, error) {
	if len(token) < minTokenLength {
		return "", ErrWeakToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
