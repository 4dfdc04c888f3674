package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counselbot.org/internal/auth"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	p, err := s.CreatePrincipal(ctx, auth.Registration{
		Name: "Admin User", Email: "admin@maseno.ac.ke", SecretHash: "$2a$10$hash", IsAdmin: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.True(t, p.IsAdmin)

	_, err = s.CreatePrincipal(ctx, auth.Registration{Name: "Dup", Email: "admin@maseno.ac.ke", SecretHash: "x"})
	assert.ErrorIs(t, err, auth.ErrAlreadyExists)

	rec, err := s.FindByEmail(ctx, "admin@maseno.ac.ke")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", rec.SecretHash)

	_, err = s.FindByEmail(ctx, "ADMIN@maseno.ac.ke")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, s.SetAdmin(ctx, p.ID, false))
	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAdmin)

	require.NoError(t, s.UpdatePassword(ctx, p.ID, "$2a$10$other"))
	rec, err = s.FindByEmail(ctx, "admin@maseno.ac.ke")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$other", rec.SecretHash)

	require.NoError(t, s.DeleteCounselor(ctx, p.ID))
	_, err = s.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.Equal(t, 0, s.Len())

	assert.ErrorIs(t, s.DeleteCounselor(ctx, p.ID), auth.ErrNotFound)
	assert.ErrorIs(t, s.SetAdmin(ctx, p.ID, true), auth.ErrNotFound)
	assert.ErrorIs(t, s.UpdatePassword(ctx, p.ID, "x"), auth.ErrNotFound)
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.CreatePrincipal(ctx, auth.Registration{Name: "A", Email: "a@x.com", SecretHash: "h"})
	require.NoError(t, err)

	rec, err := s.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	rec.IsAdmin = true

	again, err := s.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, again.IsAdmin)
}

func TestCreateRejectsIncompleteRegistration(t *testing.T) {
	_, err := New().CreatePrincipal(context.Background(), auth.Registration{Email: "a@x.com"})
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
}
