package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/spec-kit/tickets/internal/config"
)

// Credentials holds the single account allowed to use the tracker. The
// password is only ever held as a bcrypt hash.
type Credentials struct {
	username string
	hash     string

	// verified is the digest of the last pair that passed bcrypt, so
	// repeat Basic requests skip the bcrypt cost.
	mu       sync.RWMutex
	verified []byte
}

// NewCredentials builds credentials from config. A configured hash wins over
// the plaintext password, which is hashed once here.
func NewCredentials(cfg config.AuthConfig) (*Credentials, error) {
	if cfg.Username == "" {
		return nil, fmt.Errorf("auth username is empty")
	}
	hash := cfg.PasswordHash
	if hash == "" {
		var err error
		if hash, err = HashPassword(cfg.Password, cfg.BcryptCost); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}
	return &Credentials{username: cfg.Username, hash: hash}, nil
}

// Username returns the configured account name.
func (c *Credentials) Username() string {
	return c.username
}

// Verify reports whether username and password match.
func (c *Credentials) Verify(username, password string) bool {
	digest := pairDigest(username, password)
	c.mu.RLock()
	cached := c.verified != nil && subtle.ConstantTimeCompare(digest, c.verified) == 1
	c.mu.RUnlock()
	if cached {
		return true
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passOK := ComparePassword(c.hash, password) == nil
	if !userOK || !passOK {
		return false
	}
	c.mu.Lock()
	c.verified = digest
	c.mu.Unlock()
	return true
}

func pairDigest(username, password string) []byte {
	sum := sha256.Sum256([]byte(username + "\x00" + password))
	return sum[:]
}
