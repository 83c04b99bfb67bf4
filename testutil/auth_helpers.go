package testutil

import (
	"testing"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/dispatch"
	"github.com/kendall-kelly/quickfix-api/middleware"
	"github.com/kendall-kelly/quickfix-api/models"
)

// TestSecret signs tokens in tests that exercise the real auth middleware
const TestSecret = "quickfix-test-secret"

// TestConfig is a configuration suitable for router tests: sqlite, HS256
// tokens and no outbound notifiers
func TestConfig() *config.Config {
	return &config.Config{
		DatabaseDriver:  "sqlite",
		DatabaseURL:     ":memory:",
		GoEnv:           "test",
		JWTSecret:       TestSecret,
		JWTIssuer:       "quickfix-test",
		CORSOrigins:     "http://localhost:3000",
		NotifyQueueSize: 16,
	}
}

// MintToken signs an HS256 access token for subject that cfg accepts
func MintToken(t *testing.T, cfg *config.Config, subject, role string) string {
	t.Helper()
	token, err := middleware.MintToken(cfg, subject, role, time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer, role string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{
			Role: role,
		},
	}
}

// MockAuth sets up the context exactly as EnsureValidToken followed by
// LoadActor would for user
func MockAuth(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", user.Auth0ID)
		c.Set("access_token", "token-"+user.Auth0ID)
		c.Set("validated_claims", MockValidatedClaims(user.Auth0ID, "quickfix-test", user.Role))
		c.Set("current_user", user)
		c.Set("actor", dispatch.Actor{ID: user.ID, Role: user.Role})
		c.Next()
	}
}

// MockToken sets up the context as EnsureValidToken alone would, for
// handlers that run before a user row exists
func MockToken(subject, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", subject)
		c.Set("access_token", accessToken)
		c.Set("validated_claims", MockValidatedClaims(subject, "quickfix-test", role))
		c.Next()
	}
}
