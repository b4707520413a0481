// Package auth resolves requests to identities from signed session tokens.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pkordes/placekeeper/internal/domain"
)

// Claims is the session token payload. Subject holds the user UUID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTProvider verifies HS256 session tokens carried either as a bearer token
// or in the session cookie, and issues them for the CLI.
type JWTProvider struct {
	secret []byte
	issuer string
	cookie string
	now    func() time.Time
}

// NewJWTProvider builds a provider. cookie is the session cookie name checked
// when no Authorization header is present.
func NewJWTProvider(secret []byte, issuer, cookie string) *JWTProvider {
	return &JWTProvider{secret: secret, issuer: issuer, cookie: cookie, now: time.Now}
}

// WithClock returns a copy of p that reads time from now. Tests use it to
// issue and verify tokens at fixed instants.
func (p *JWTProvider) WithClock(now func() time.Time) *JWTProvider {
	cp := *p
	cp.now = now
	return &cp
}

// Authenticate resolves r to an identity. Every failure (no token, bad
// signature, wrong issuer, expired, malformed subject) wraps
// domain.ErrUnauthenticated.
func (p *JWTProvider) Authenticate(r *http.Request) (domain.Identity, error) {
	raw := p.tokenFrom(r)
	if raw == "" {
		return domain.Identity{}, fmt.Errorf("auth: %w: no session token", domain.ErrUnauthenticated)
	}
	return p.Verify(raw)
}

// Verify parses and validates a raw token string.
func (p *JWTProvider) Verify(raw string) (domain.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("auth: %w: %v", domain.ErrUnauthenticated, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("auth: %w: bad subject", domain.ErrUnauthenticated)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("auth: %w: bad role", domain.ErrUnauthenticated)
	}
	return domain.Identity{UserID: id, Role: role}, nil
}

// Issue signs a token for id that expires after ttl.
func (p *JWTProvider) Issue(id domain.Identity, ttl time.Duration) (string, error) {
	if id.UserID == uuid.Nil {
		return "", errors.New("auth.Issue: identity has no user id")
	}
	if ttl <= 0 {
		return "", errors.New("auth.Issue: ttl must be positive")
	}
	now := p.now()
	claims := Claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("auth.Issue: %w", err)
	}
	return signed, nil
}

func (p *JWTProvider) tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	if p.cookie == "" {
		return ""
	}
	if c, err := r.Cookie(p.cookie); err == nil {
		return c.Value
	}
	return ""
}
