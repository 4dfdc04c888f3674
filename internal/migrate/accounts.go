package migrate

import (
	"context"
	"fmt"

	"counselbot.org/internal/auth"
)

// AccountStore is the maintenance surface of a counselor store.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*auth.Record, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetAdmin(ctx context.Context, id int64, admin bool) error
	DeleteCounselor(ctx context.Context, id int64) error
}

// ResetPassword replaces the stored secret of the counselor with email.
func ResetPassword(ctx context.Context, s AccountStore, email, password string) (auth.Principal, error) {
	if password == "" {
		return auth.Principal{}, fmt.Errorf("%w: password is required", auth.ErrInvalidInput)
	}
	rec, err := findAccount(ctx, s, email)
	if err != nil {
		return auth.Principal{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return auth.Principal{}, err
	}
	if err := s.UpdatePassword(ctx, rec.ID, hash); err != nil {
		return auth.Principal{}, fmt.Errorf("update password for %s: %w", email, err)
	}
	return rec.Principal, nil
}

// SetAdmin grants or revokes the admin flag.
func SetAdmin(ctx context.Context, s AccountStore, email string, admin bool) (auth.Principal, error) {
	rec, err := findAccount(ctx, s, email)
	if err != nil {
		return auth.Principal{}, err
	}
	if err := s.SetAdmin(ctx, rec.ID, admin); err != nil {
		return auth.Principal{}, fmt.Errorf("set admin for %s: %w", email, err)
	}
	p := rec.Principal
	p.IsAdmin = admin
	return p, nil
}

// RemoveCounselor deletes the counselor. Outstanding tokens stop resolving.
func RemoveCounselor(ctx context.Context, s AccountStore, email string) (auth.Principal, error) {
	rec, err := findAccount(ctx, s, email)
	if err != nil {
		return auth.Principal{}, err
	}
	if err := s.DeleteCounselor(ctx, rec.ID); err != nil {
		return auth.Principal{}, fmt.Errorf("delete %s: %w", email, err)
	}
	return rec.Principal, nil
}

func findAccount(ctx context.Context, s AccountStore, email string) (*auth.Record, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", auth.ErrInvalidInput)
	}
	rec, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", email, err)
	}
	return rec, nil
}
