package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/tickets/internal/config"
	apperrors "github.com/spec-kit/tickets/pkg/util/errorutil"
)

func testCredentials(t *testing.T) *Credentials {
	t.Helper()
	creds, err := NewCredentials(config.AuthConfig{Username: "admin", Password: "s3cret", BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	return creds
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func newTestApp(t *testing.T, m *AuthMiddleware) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var de *apperrors.DomainError
			if errors.As(err, &de) {
				return c.SendStatus(de.HTTPStatus)
			}
			return c.SendStatus(http.StatusInternalServerError)
		},
	})
	whoami := func(c *fiber.Ctx) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendString(p.Username + ":" + string(p.Method))
	}
	app.Get("/page", m.Basic(), whoami)
	app.Get("/api/thing", m.API(), whoami)
	return app
}

func TestCredentials(t *testing.T) {
	creds := testCredentials(t)
	assert.True(t, creds.Verify("admin", "s3cret"))
	assert.False(t, creds.Verify("admin", "wrong"))
	assert.False(t, creds.Verify("root", "s3cret"))

	hash, err := HashPassword("hashed", bcrypt.MinCost)
	require.NoError(t, err)
	fromHash, err := NewCredentials(config.AuthConfig{Username: "me", Password: "ignored", PasswordHash: hash})
	require.NoError(t, err)
	assert.True(t, fromHash.Verify("me", "hashed"))
	assert.False(t, fromHash.Verify("me", "ignored"))

	_, err = NewCredentials(config.AuthConfig{})
	assert.Error(t, err)
}

func TestCredentials_CachesLastVerifiedPair(t *testing.T) {
	creds := testCredentials(t)
	assert.False(t, creds.Verify("admin", "wrong"))
	assert.Nil(t, creds.verified, "failed checks are never cached")

	require.True(t, creds.Verify("admin", "s3cret"))
	require.NotNil(t, creds.verified)

	// With the hash unusable only the cached pair can still pass.
	creds.hash = "not-a-bcrypt-hash"
	assert.True(t, creds.Verify("admin", "s3cret"))
	assert.False(t, creds.Verify("admin", "s3cret "))
	assert.False(t, creds.Verify("admin\x00s3cret", ""))
}

func TestTokenManager(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken("admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)

	expired := NewTokenManager("secret", 5)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.GenerateToken("admin")
	require.NoError(t, err)
	_, err = tm.ParseToken(old)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	creds := testCredentials(t)
	tokens := NewTokenManager("secret", 5)
	app := newTestApp(t, NewAuthMiddleware(creds, tokens))
	token, _, err := tokens.GenerateToken("admin")
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		challenge  bool
	}{
		{"page without header", "/page", "", http.StatusUnauthorized, true},
		{"page with basic", "/page", basic("admin", "s3cret"), http.StatusOK, false},
		{"page with wrong password", "/page", basic("admin", "nope"), http.StatusUnauthorized, true},
		{"page with malformed basic", "/page", "Basic !!!", http.StatusUnauthorized, true},
		{"page rejects bearer", "/page", "Bearer " + token, http.StatusUnauthorized, true},
		{"api with bearer", "/api/thing", "Bearer " + token, http.StatusOK, false},
		{"api with basic", "/api/thing", basic("admin", "s3cret"), http.StatusOK, false},
		{"api with bad bearer", "/api/thing", "Bearer garbage", http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.challenge {
				assert.Equal(t, `Basic realm="Tickets"`, resp.Header.Get("WWW-Authenticate"))
			}
		})
	}
}
