// Package auth verifies bearer tokens for the reviewer API.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

const ScopeAdmin = "admin"

type Identity struct {
	Subject string
	Scopes  []string
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// ScopeList decodes either a space-separated string or a JSON array.
type ScopeList []string

func (s *ScopeList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = strings.Fields(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("scopes: %w", err)
	}
	out := make([]string, 0, len(many))
	for _, v := range many {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	*s = out
	return nil
}

type Claims struct {
	Scopes ScopeList `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator accepts HS256 tokens signed with a shared secret.
type JWTAuthenticator struct {
	log    *logger.Logger
	secret []byte
}

func NewJWTAuthenticator(log *logger.Logger, secret string) (*JWTAuthenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("missing JWT_SECRET_KEY")
	}
	return &JWTAuthenticator{log: log.With("service", "JWTAuthenticator"), secret: []byte(secret)}, nil
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, apierr.Newf(apierr.CodeUnauthorized, "missing token")
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeUnauthorized, fmt.Errorf("invalid token: %w", err))
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apierr.Newf(apierr.CodeUnauthorized, "invalid or expired token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, apierr.Newf(apierr.CodeUnauthorized, "token has no subject")
	}
	return &Identity{Subject: claims.Subject, Scopes: []string(claims.Scopes)}, nil
}

// Issue signs a token for subject; used by the CLI and tests.
func (a *JWTAuthenticator) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
