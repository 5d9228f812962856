// Package auth validates bearer credentials presented to the prediction API.
//
// Credentials are HMAC-signed JWTs carrying a subject and an expiry instant.
// Validation is a pure function of the credential, the current time and the
// configured secret/algorithm pair.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iris-ai/irisd/pkg/config"
)

// Reject reasons. Every validation error wraps exactly one of these.
var (
	ErrMalformed    = errors.New("malformed credential")
	ErrBadSignature = errors.New("bad signature")
	ErrExpired      = errors.New("credential expired")
)

// Claims is the token payload. Username mirrors Subject for issuers that
// identify the holder by user name.
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the accepted holder of a credential.
type Identity struct {
	Subject   string
	ExpiresAt time.Time
}

// Validator verifies bearer credentials.
type Validator struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a Validator for the configured secret and algorithm.
func NewValidator(cfg config.AuthConfig, opts ...Option) (*Validator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: empty secret")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("auth: unknown algorithm %q", cfg.Algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: algorithm %q is not an HMAC method", cfg.Algorithm)
	}

	v := &Validator{
		secret: []byte(cfg.Secret),
		method: method,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// ValidateHeader extracts the credential from an Authorization header value
// ("Bearer <token>") and validates it.
func (v *Validator) ValidateHeader(header string) (Identity, error) {
	token, err := ExtractBearer(header)
	if err != nil {
		return Identity{}, err
	}
	return v.Validate(token)
}

// Validate checks the credential's signature and expiry. The expiry instant
// must be strictly after the current time.
func (v *Validator) Validate(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: empty token", ErrMalformed)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, classify(err)
	}

	id := Identity{Subject: claims.Subject}
	if id.Subject == "" {
		id.Subject = claims.Username
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// ExtractBearer returns the token from a "Bearer <token>" header value.
// The scheme is matched case-insensitively.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", ErrMalformed)
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", fmt.Errorf("%w: expected bearer scheme", ErrMalformed)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty token", ErrMalformed)
	}
	return token, nil
}

// Reason returns the short reject reason for a validation error:
// "malformed", "bad_signature" or "expired".
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrExpired):
		return "expired"
	default:
		return "malformed"
	}
}
