package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is an authenticated counselor as seen by the rest of the application.
// It never carries the secret hash.
type Principal struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Record is a stored principal together with its bcrypt hash.
// Only the credential layer reads SecretHash.
type Record struct {
	Principal
	SecretHash string
}

// Profile holds the counselor details captured at provisioning time.
type Profile struct {
	Phone          string
	Specialization string
	Bio            string
	OfficeLocation string
	OfficeHours    string
}

// Registration describes a principal to be created by a Provisioner.
type Registration struct {
	Name       string
	Email      string
	SecretHash string
	IsAdmin    bool
	Profile    Profile
}

// Claims is the signed payload of a session token.
type Claims struct {
	PrincipalID int64  `json:"id"`
	Email       string `json:"email"`
	IsAdmin     bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// IssuedAtTime returns the issued-at timestamp or the zero time.
func (c *Claims) IssuedAtTime() time.Time {
	if c == nil || c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime returns the expiry timestamp or the zero time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func subjectFor(id int64) string {
	return strconv.FormatInt(id, 10)
}

// PrincipalStore is the read side of the persistent store used for authentication.
// Implementations return ErrNotFound when no row matches; any other error is
// treated as the backend being unavailable.
type PrincipalStore interface {
	FindByEmail(ctx context.Context, email string) (*Record, error)
	FindByID(ctx context.Context, id int64) (Principal, error)
}

// Provisioner creates principals. Implementations return ErrAlreadyExists on a
// duplicate email.
type Provisioner interface {
	PrincipalStore
	CreatePrincipal(ctx context.Context, reg Registration) (Principal, error)
}
