package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/placekeeper/internal/auth"
	"github.com/pkordes/placekeeper/internal/domain"
)

var (
	secret = []byte("test-secret")
	now    = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

func newProvider() *auth.JWTProvider {
	return auth.NewJWTProvider(secret, "placekeeper", "pk_session").WithClock(func() time.Time { return now })
}

func issue(t *testing.T, p *auth.JWTProvider, id domain.Identity) string {
	t.Helper()
	tok, err := p.Issue(id, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthenticate_BearerToken(t *testing.T) {
	p := newProvider()
	want := domain.Identity{UserID: uuid.New(), Role: domain.RoleAdmin}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/onboarding/start", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, p, want))

	got, err := p.Authenticate(req)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAuthenticate_SessionCookie(t *testing.T) {
	p := newProvider()
	want := domain.Identity{UserID: uuid.New(), Role: domain.RoleMember}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/onboarding/start", nil)
	req.AddCookie(&http.Cookie{Name: "pk_session", Value: issue(t, p, want)})

	got, err := p.Authenticate(req)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAuthenticate_Failures(t *testing.T) {
	p := newProvider()
	id := domain.Identity{UserID: uuid.New(), Role: domain.RoleMember}
	valid := issue(t, p, id)

	otherIssuer := issue(t, auth.NewJWTProvider(secret, "someone-else", "").WithClock(func() time.Time { return now }), id)
	otherKey := issue(t, auth.NewJWTProvider([]byte("other"), "placekeeper", "").WithClock(func() time.Time { return now }), id)
	expired := issue(t, newProvider().WithClock(func() time.Time { return now.Add(-2 * time.Hour) }), id)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.UserID.String(), Issuer: "placekeeper"},
	}).SignedString(secret)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			Issuer:    "placekeeper",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(secret)
	require.NoError(t, err)

	cases := map[string]func(r *http.Request){
		"no token":          func(r *http.Request) {},
		"wrong scheme":      func(r *http.Request) { r.Header.Set("Authorization", "Basic "+valid) },
		"garbage":           func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
		"other issuer":      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+otherIssuer) },
		"other key":         func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+otherKey) },
		"expired":           func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) },
		"missing exp":       func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+noExp) },
		"bad subject":       func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+badSubject) },
		"wrong cookie name": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "session", Value: valid}) },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/onboarding", nil)
			setup(req)

			_, err := p.Authenticate(req)

			assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		})
	}
}

func TestIssue_RejectsEmptyIdentity(t *testing.T) {
	_, err := newProvider().Issue(domain.Identity{}, time.Hour)
	assert.Error(t, err)

	_, err = newProvider().Issue(domain.Identity{UserID: uuid.New()}, 0)
	assert.Error(t, err)
}

func TestIdentityContext(t *testing.T) {
	_, ok := auth.IdentityFrom(context.Background())
	assert.False(t, ok)

	id := domain.Identity{UserID: uuid.New(), Role: domain.RoleMember}
	got, ok := auth.IdentityFrom(auth.WithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
}
