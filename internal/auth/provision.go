package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provision creates a principal with a freshly hashed password. It is
// idempotent by email: an existing principal is returned with created=false.
func Provision(ctx context.Context, p Provisioner, reg Registration, password string) (Principal, bool, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	if reg.Email == "" || reg.Name == "" {
		return Principal{}, false, fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}

	existing, err := p.FindByEmail(ctx, reg.Email)
	switch {
	case err == nil && existing != nil:
		return existing.Principal, false, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return Principal{}, false, backendError("find principal by email", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Principal{}, false, err
	}
	reg.SecretHash = hash
	created, err := p.CreatePrincipal(ctx, reg)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			rec, findErr := p.FindByEmail(ctx, reg.Email)
			if findErr == nil && rec != nil {
				return rec.Principal, false, nil
			}
		}
		return Principal{}, false, err
	}
	return created, true, nil
}
