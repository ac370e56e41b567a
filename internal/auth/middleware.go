package auth

import (
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/tickets/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Realm is advertised in WWW-Authenticate challenges.
const Realm = "Tickets"

// Method names how a request authenticated.
type Method string

const (
	MethodBasic  Method = "basic"
	MethodBearer Method = "bearer"
)

// Principal represents the authenticated caller.
type Principal struct {
	Username string
	Method   Method
}

// AuthMiddleware checks Basic credentials and, where allowed, bearer tokens.
type AuthMiddleware struct {
	creds  *Credentials
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(creds *Credentials, tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{creds: creds, tokens: tokens}
}

// Basic accepts only HTTP Basic credentials.
func (m *AuthMiddleware) Basic() fiber.Handler {
	return func(c *fiber.Ctx) error { return m.handle(c, false) }
}

// API accepts HTTP Basic credentials or a bearer token.
func (m *AuthMiddleware) API() fiber.Handler {
	return func(c *fiber.Ctx) error { return m.handle(c, true) }
}

func (m *AuthMiddleware) handle(c *fiber.Ctx, allowBearer bool) error {
	scheme, value, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok {
		return m.challenge(c, "authentication required")
	}

	var principal *Principal
	switch {
	case strings.EqualFold(scheme, "Basic"):
		username, password, ok := decodeBasic(value)
		if !ok || !m.creds.Verify(username, password) {
			return m.challenge(c, "invalid credentials")
		}
		principal = &Principal{Username: username, Method: MethodBasic}
	case allowBearer && strings.EqualFold(scheme, "Bearer"):
		claims, err := m.tokens.ParseToken(strings.TrimSpace(value))
		if err != nil || claims.Subject != m.creds.Username() {
			return apperrors.NewUnauthorized("invalid token")
		}
		principal = &Principal{Username: claims.Subject, Method: MethodBearer}
	default:
		return m.challenge(c, "unsupported authorization scheme")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *AuthMiddleware) challenge(c *fiber.Ctx, msg string) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="`+Realm+`"`)
	return apperrors.NewUnauthorized(msg)
}

func decodeBasic(value string) (string, string, bool) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(raw), ":")
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
