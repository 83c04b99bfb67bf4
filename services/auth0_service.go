package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kendall-kelly/quickfix-api/config"
)

// userInfoTimeout bounds a single call to the tenant
const userInfoTimeout = 10 * time.Second

// Auth0UserInfo is the profile a customer or technician registers with
type Auth0UserInfo struct {
	Sub         string `json:"sub"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// UserInfoProvider looks up the profile behind an access token
type UserInfoProvider interface {
	GetUserInfo(ctx context.Context, accessToken string) (*Auth0UserInfo, error)
}

// UserInfoError is returned when the tenant answers with a non-200 status
type UserInfoError struct {
	StatusCode int
	Body       string
}

func (e *UserInfoError) Error() string {
	return fmt.Sprintf("userinfo endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Rejected reports whether the tenant refused the access token itself
func (e *UserInfoError) Rejected() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsTokenRejected reports whether err means the access token was refused
func IsTokenRejected(err error) bool {
	var uie *UserInfoError
	return errors.As(err, &uie) && uie.Rejected()
}

// Auth0Service reads registration profiles from an Auth0 tenant
type Auth0Service struct {
	endpoint   string
	httpClient *http.Client
}

// NewAuth0Service binds the service to cfg.Auth0Domain. A domain that
// already carries a scheme is used as is.
func NewAuth0Service(cfg *config.Config) *Auth0Service {
	return &Auth0Service{
		endpoint:   userInfoEndpoint(cfg.Auth0Domain),
		httpClient: &http.Client{Timeout: userInfoTimeout},
	}
}

func userInfoEndpoint(domain string) string {
	domain = strings.TrimSuffix(domain, "/")
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain + "/userinfo"
}

// GetUserInfo exchanges the caller's access token for their profile
func (s *Auth0Service) GetUserInfo(ctx context.Context, accessToken string) (*Auth0UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call userinfo endpoint: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("warning: failed to close userinfo response: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &UserInfoError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var info Auth0UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}
	if info.Sub == "" {
		return nil, errors.New("userinfo response has no subject")
	}
	return &info, nil
}
