package service

import (
	"context"
	"time"

	"github.com/spec-kit/tickets/internal/auth"
	"github.com/spec-kit/tickets/pkg/util/errorutil"
)

// AuthService exchanges the account credentials for API tokens.
type AuthService struct {
	creds    *auth.Credentials
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(creds *auth.Credentials, tokenMgr *auth.TokenManager) *AuthService {
	return &AuthService{creds: creds, tokenMgr: tokenMgr}
}

// IssueToken verifies the credentials and returns a signed bearer token.
func (s *AuthService) IssueToken(_ context.Context, username, password string) (string, time.Time, error) {
	if !s.creds.Verify(username, password) {
		return "", time.Time{}, errorutil.NewUnauthorized("invalid credentials")
	}
	return s.tokenMgr.GenerateToken(s.creds.Username())
}
