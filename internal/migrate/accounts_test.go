package migrate

import (
	"context"
	"errors"
	"testing"

	"counselbot.org/internal/auth"
	"counselbot.org/internal/store/memory"
)

func seedAdmin(t *testing.T) (*memory.Store, auth.Principal) {
	t.Helper()
	store := memory.New()
	p, _, err := EnsureAdmin(context.Background(), store, DefaultAdmin, "123456")
	if err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	return store, p
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	store, admin := seedAdmin(t)
	creds := auth.NewCredentialStore(store)

	p, err := ResetPassword(ctx, store, DefaultAdmin.Email, "fresh secret")
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if p.ID != admin.ID {
		t.Fatalf("reset the wrong counselor: %+v", p)
	}
	if _, err := creds.Verify(ctx, DefaultAdmin.Email, "123456"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("old password should be rejected, got %v", err)
	}
	if _, err := creds.Verify(ctx, DefaultAdmin.Email, "fresh secret"); err != nil {
		t.Fatalf("new password should verify: %v", err)
	}

	if _, err := ResetPassword(ctx, store, DefaultAdmin.Email, ""); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := ResetPassword(ctx, store, "nobody@maseno.ac.ke", "x"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetAdmin(t *testing.T) {
	ctx := context.Background()
	store, admin := seedAdmin(t)

	p, err := SetAdmin(ctx, store, DefaultAdmin.Email, false)
	if err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	if p.IsAdmin {
		t.Fatalf("expected admin flag cleared: %+v", p)
	}
	stored, err := store.FindByID(ctx, admin.ID)
	if err != nil || stored.IsAdmin {
		t.Fatalf("store not updated: %+v err=%v", stored, err)
	}

	if _, err := SetAdmin(ctx, store, "", true); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRemoveCounselor(t *testing.T) {
	ctx := context.Background()
	store, admin := seedAdmin(t)

	p, err := RemoveCounselor(ctx, store, DefaultAdmin.Email)
	if err != nil {
		t.Fatalf("RemoveCounselor: %v", err)
	}
	if p.ID != admin.ID {
		t.Fatalf("removed the wrong counselor: %+v", p)
	}
	if _, err := auth.NewCredentialStore(store).LookupByID(ctx, admin.ID); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
	if _, err := RemoveCounselor(ctx, store, DefaultAdmin.Email); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("second removal should report ErrNotFound, got %v", err)
	}
}
