package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iris-ai/irisd/pkg/config"
)

// IssueToken signs a credential for subject that expires cfg.Expiry() after
// now. irisd itself never issues credentials over the network; this is the
// issuer-side counterpart of Validate.
func IssueToken(cfg config.AuthConfig, subject string, now time.Time) (string, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return "", fmt.Errorf("auth: unknown algorithm %q", cfg.Algorithm)
	}

	claims := Claims{
		Username: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiry())),
		},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}
