package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL is the lifetime of an issued session token.
	DefaultTokenTTL = 24 * time.Hour
	defaultIssuer   = "counselbot"
)

// SessionIssuer signs and verifies HS256 session tokens with a process-wide key.
// The key is never mutated after construction.
type SessionIssuer struct {
	key    []byte
	ttl    time.Duration
	leeway time.Duration
	issuer string
	now    func() time.Time
}

// SessionOption configures SessionIssuer behavior.
type SessionOption func(*SessionIssuer)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) SessionOption {
	return func(s *SessionIssuer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLeeway sets the clock-skew grace applied to time-based claims.
func WithLeeway(d time.Duration) SessionOption {
	return func(s *SessionIssuer) {
		if d >= 0 {
			s.leeway = d
		}
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) SessionOption {
	return func(s *SessionIssuer) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) SessionOption {
	return func(s *SessionIssuer) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewSessionIssuer constructs an issuer around the signing secret. An empty
// secret is accepted so that the server can still start; Issue and Verify then
// fail with ErrConfiguration.
func NewSessionIssuer(secret string, opts ...SessionOption) *SessionIssuer {
	s := &SessionIssuer{
		ttl:    DefaultTokenTTL,
		issuer: defaultIssuer,
		now:    time.Now,
	}
	if secret = strings.TrimSpace(secret); secret != "" {
		s.key = []byte(secret)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a signing key is present.
func (s *SessionIssuer) Configured() bool {
	return s != nil && len(s.key) > 0
}

// TTL returns the configured token lifetime.
func (s *SessionIssuer) TTL() time.Duration { return s.ttl }

// Issue signs a token for the principal, valid for the configured TTL.
func (s *SessionIssuer) Issue(p Principal) (string, error) {
	token, _, err := s.IssueClaims(p)
	return token, err
}

// IssueClaims is Issue that also returns the embedded claims.
func (s *SessionIssuer) IssueClaims(p Principal) (string, *Claims, error) {
	if !s.Configured() {
		return "", nil, fmt.Errorf("%w: signing secret is not configured", ErrConfiguration)
	}
	if p.ID <= 0 {
		return "", nil, fmt.Errorf("%w: principal id is required", ErrInvalidInput)
	}

	now := s.now().UTC().Truncate(time.Second)
	claims := &Claims{
		PrincipalID: p.ID,
		Email:       p.Email,
		IsAdmin:     p.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subjectFor(p.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature, issuer and expiry and returns the embedded claims.
// Every rejection is a *TokenError matching ErrInvalidToken.
func (s *SessionIssuer) Verify(token string) (*Claims, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("%w: signing secret is not configured", ErrConfiguration)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &TokenError{Reason: ReasonMalformed}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return nil, &TokenError{Reason: classify(err), Err: err}
	}
	if !parsed.Valid {
		return nil, &TokenError{Reason: ReasonClaims}
	}
	if claims.PrincipalID <= 0 || claims.Subject != subjectFor(claims.PrincipalID) {
		return nil, &TokenError{Reason: ReasonClaims, Err: errors.New("principal id missing or inconsistent")}
	}
	return claims, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	default:
		return ReasonClaims
	}
}
