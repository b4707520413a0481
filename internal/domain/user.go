// Package domain contains the core data types for the Placekeeper onboarding
// service. It depends on nothing outside the standard library and uuid, and is
// imported by every other internal package (repo, service, handler).
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the coarse permission level carried in a session.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// ParseRole accepts a role name, defaulting empty input to RoleMember.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RoleMember, nil
	case RoleMember, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// User is the account row that embeds onboarding progress.
type User struct {
	ID         uuid.UUID
	Email      string
	Role       Role
	Onboarding Onboarding
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Identity is what the auth provider resolves a request to.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the identity may read other users' records.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// NormalizeEmail lower-cases and trims an email and rejects obviously
// malformed input. Real address verification happens elsewhere.
func NormalizeEmail(s string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(s))
	at := strings.IndexByte(e, '@')
	if at <= 0 || at == len(e)-1 || strings.ContainsAny(e, " \t\r\n") {
		return "", fmt.Errorf("%w: invalid email %q", ErrValidation, s)
	}
	return e, nil
}
