package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer    ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc.def.ghi", "", false},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Fatalf("BearerToken(%q) = %q, %v; want %q", tt.header, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("BearerToken(%q): expected ErrUnauthenticated, got %v", tt.header, err)
		}
	}
}

func newTestAuthorizer(t *testing.T) (*Authorizer, *SessionIssuer, *fakeStore, Principal) {
	t.Helper()
	store := newFakeStore()
	p := store.add("Jane Counselor", "jane@x.com", "unused", false)
	issuer := NewSessionIssuer("authorizer-secret")
	return NewAuthorizer(issuer, NewCredentialStore(store)), issuer, store, p
}

func TestAuthorizerResolvesLivePrincipal(t *testing.T) {
	authz, issuer, store, p := newTestAuthorizer(t)
	token, err := issuer.Issue(p)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, claims, err := authz.Authorize(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if got != p || claims.PrincipalID != p.ID {
		t.Fatalf("unexpected principal %+v / claims %+v", got, claims)
	}

	// Promotion takes effect without a new token.
	store.mu.Lock()
	store.records[p.ID].IsAdmin = true
	store.mu.Unlock()
	got, claims, err = authz.Authorize(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("Authorize after promotion: %v", err)
	}
	if !got.IsAdmin {
		t.Fatal("expected live admin flag")
	}
	if claims.IsAdmin {
		t.Fatal("claims should keep the flag captured at issuance")
	}
}

func TestAuthorizerRejectsDeletedPrincipal(t *testing.T) {
	authz, issuer, store, p := newTestAuthorizer(t)
	token, err := issuer.Issue(p)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	store.delete(p.ID)

	_, _, err = authz.Authorize(context.Background(), "Bearer "+token)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthorizerFailures(t *testing.T) {
	authz, _, store, p := newTestAuthorizer(t)
	ctx := context.Background()

	if _, _, err := authz.Authorize(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("missing header: expected ErrUnauthenticated, got %v", err)
	}
	if _, _, err := authz.Authorize(ctx, "Token abc"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("wrong scheme: expected ErrUnauthenticated, got %v", err)
	}
	if _, _, err := authz.Authorize(ctx, "Bearer abc"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("bad token: expected ErrInvalidToken, got %v", err)
	}

	expired := NewSessionIssuer("authorizer-secret", WithClock(func() time.Time {
		return time.Now().Add(-48 * time.Hour)
	}))
	old, err := expired.Issue(p)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, _, err = authz.Authorize(ctx, "Bearer "+old)
	if !errors.Is(err, ErrInvalidToken) || TokenFailureReason(err) != ReasonExpired {
		t.Fatalf("expired token: expected expired ErrInvalidToken, got %v", err)
	}

	store.err = errConnRefused
	fresh, err := NewSessionIssuer("authorizer-secret").Issue(p)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := authz.Authorize(ctx, "Bearer "+fresh); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("store down: expected ErrBackendUnavailable, got %v", err)
	}

	var nilAuthz *Authorizer
	if _, _, err := nilAuthz.AuthorizeToken(ctx, fresh); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("nil authorizer: expected ErrConfiguration, got %v", err)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("unexpected principal in empty context")
	}
	p := Principal{ID: 7, Email: "user@x.com"}
	claims := &Claims{PrincipalID: 7}
	ctx = ContextWithClaims(ContextWithPrincipal(ctx, p), claims)

	got, ok := PrincipalFromContext(ctx)
	if !ok || got != p {
		t.Fatalf("unexpected principal: %+v ok=%v", got, ok)
	}
	gotClaims, ok := ClaimsFromContext(ctx)
	if !ok || gotClaims.PrincipalID != 7 {
		t.Fatalf("unexpected claims: %+v ok=%v", gotClaims, ok)
	}
	if ContextWithClaims(context.Background(), nil) != context.Background() {
		t.Fatal("nil claims should leave context untouched")
	}
}
