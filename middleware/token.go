package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kendall-kelly/quickfix-api/config"
)

// MintToken signs an HS256 access token that EnsureValidToken accepts when
// cfg is not bound to an Auth0 tenant. An empty role leaves the claim out.
func MintToken(cfg *config.Config, subject, role string, ttl time.Duration) (string, error) {
	if cfg.UsesAuth0() {
		return "", errors.New("tokens are issued by Auth0 when AUTH0_DOMAIN is set")
	}
	if cfg.JWTSecret == "" {
		return "", errors.New("JWT_SECRET is required to mint tokens")
	}
	if subject == "" {
		return "", errors.New("subject is required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": cfg.JWTIssuer,
		"aud": []string{TokenAudience(cfg)},
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}
