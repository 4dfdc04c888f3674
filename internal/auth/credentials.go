package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CredentialStore maps emails to principals and checks presented secrets.
type CredentialStore struct {
	store PrincipalStore
}

// NewCredentialStore wraps the given store. A nil store yields a CredentialStore
// whose operations fail with ErrConfiguration.
func NewCredentialStore(store PrincipalStore) *CredentialStore {
	return &CredentialStore{store: store}
}

// Configured reports whether a backing store is present.
func (c *CredentialStore) Configured() bool {
	return c != nil && c.store != nil
}

// Verify looks up the principal by exact email and compares the secret.
// Unknown email and wrong secret both return ErrInvalidCredentials.
func (c *CredentialStore) Verify(ctx context.Context, email, secret string) (Principal, error) {
	if !c.Configured() {
		return Principal{}, fmt.Errorf("%w: credential store is not configured", ErrConfiguration)
	}
	if strings.TrimSpace(email) == "" || secret == "" {
		return Principal{}, ErrInvalidCredentials
	}

	rec, err := c.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			burnCompare(secret)
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, backendError("find principal by email", err)
	}
	if rec == nil || rec.Email != email {
		burnCompare(secret)
		return Principal{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(rec.SecretHash, secret); err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	return rec.Principal, nil
}

// LookupByID returns the live principal record.
func (c *CredentialStore) LookupByID(ctx context.Context, id int64) (Principal, error) {
	if !c.Configured() {
		return Principal{}, fmt.Errorf("%w: credential store is not configured", ErrConfiguration)
	}
	if id <= 0 {
		return Principal{}, ErrNotFound
	}
	p, err := c.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, backendError("find principal by id", err)
	}
	return p, nil
}

func backendError(op string, err error) error {
	if errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
}
