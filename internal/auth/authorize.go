package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const bearerPrefix = "bearer "

// TokenVerifier validates a raw session token.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// PrincipalLookup loads the live principal behind a verified claim.
type PrincipalLookup interface {
	LookupByID(ctx context.Context, id int64) (Principal, error)
}

// Authorizer turns an Authorization header into a live Principal.
// The principal is re-read on every call so that role changes and deleted
// accounts take effect without revoking tokens.
type Authorizer struct {
	verifier   TokenVerifier
	principals PrincipalLookup
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(verifier TokenVerifier, principals PrincipalLookup) *Authorizer {
	return &Authorizer{verifier: verifier, principals: principals}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", fmt.Errorf("%w: invalid authorization scheme", ErrUnauthenticated)
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}
	return token, nil
}

// Authorize resolves the principal for an Authorization header.
//
// Errors: ErrUnauthenticated for a missing/malformed header or a principal that
// no longer exists, ErrInvalidToken (as *TokenError) for a rejected token,
// ErrBackendUnavailable and ErrConfiguration for operator-side failures.
func (a *Authorizer) Authorize(ctx context.Context, header string) (Principal, *Claims, error) {
	token, err := BearerToken(header)
	if err != nil {
		return Principal{}, nil, err
	}
	return a.AuthorizeToken(ctx, token)
}

// AuthorizeToken is Authorize for an already extracted token.
func (a *Authorizer) AuthorizeToken(ctx context.Context, token string) (Principal, *Claims, error) {
	if a == nil || a.verifier == nil || a.principals == nil {
		return Principal{}, nil, fmt.Errorf("%w: authorizer is not configured", ErrConfiguration)
	}
	claims, err := a.verifier.Verify(token)
	if err != nil {
		return Principal{}, nil, err
	}
	principal, err := a.principals.LookupByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, claims, fmt.Errorf("%w: principal %d no longer exists", ErrUnauthenticated, claims.PrincipalID)
		}
		return Principal{}, claims, err
	}
	return principal, claims, nil
}
