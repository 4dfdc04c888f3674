package auth

import "errors"

// Errors returned by the credential, session and authorization layers.
// InvalidCredentials and InvalidToken are generic: callers map
// both to a 401 without revealing which check failed.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrUnauthenticated    = errors.New("auth: unauthenticated")
	ErrBackendUnavailable = errors.New("auth: backend unavailable")
	ErrConfiguration      = errors.New("auth: configuration error")
	ErrNotFound           = errors.New("auth: not found")
	ErrAlreadyExists      = errors.New("auth: already exists")
	ErrInvalidInput       = errors.New("auth: invalid input")
)

// Token failure reasons. They are kept for server-side logs only.
const (
	ReasonMalformed = "malformed"
	ReasonSignature = "signature"
	ReasonExpired   = "expired"
	ReasonClaims    = "claims"
)

// TokenError describes why a presented token was rejected.
// It always matches ErrInvalidToken under errors.Is.
type TokenError struct {
	Reason string
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "auth: invalid token (" + e.Reason + ")"
	}
	return "auth: invalid token (" + e.Reason + "): " + e.Err.Error()
}

func (e *TokenError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidToken}
	}
	return []error{ErrInvalidToken, e.Err}
}

// TokenFailureReason extracts the internal reason from a verification error.
func TokenFailureReason(err error) string {
	var te *TokenError
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}
