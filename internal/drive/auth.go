// Package drive provides Google Drive API authentication and client functionality
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// driveScope is the OAuth scope required to list and download files.
const driveScope = "https://www.googleapis.com/auth/drive.readonly"

// AccessToken represents an OAuth access token with metadata
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"-"` // Calculated expiration time
}

// IsExpired returns true if the token is expired or will expire within the buffer time
func (t *AccessToken) IsExpired(buffer time.Duration) bool {
	return time.Now().Add(buffer).After(t.ExpiresAt)
}

// AuthError represents authentication-related errors
type AuthError struct {
	Type   string
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error %s: %s (%v)", e.Type, e.Reason, e.Err)
	}
	return fmt.Sprintf("auth error %s: %s", e.Type, e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TokenSource defines the interface for obtaining Drive access tokens
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ServiceAccountCredentials is the subset of a Google service account key
// file this client needs.
type ServiceAccountCredentials struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// LoadServiceAccountCredentials reads a service account key file.
func LoadServiceAccountCredentials(path string) (*ServiceAccountCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", path, err)
	}

	var creds ServiceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}

	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, fmt.Errorf("credentials file %s is missing client_email or private_key", path)
	}
	if creds.TokenURI == "" {
		creds.TokenURI = "https://oauth2.googleapis.com/token"
	}

	return &creds, nil
}

// tokenResponse represents the response from the OAuth token endpoint
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// ServiceAccountAuth implements the JWT-bearer grant for a Google service
// account. Tokens are cached and refreshed shortly before expiry.
type ServiceAccountAuth struct {
	creds       *ServiceAccountCredentials
	client      *http.Client
	mutex       sync.Mutex
	cachedToken *AccessToken
}

// NewServiceAccountAuth creates a new service account authenticator
func NewServiceAccountAuth(creds *ServiceAccountCredentials) *ServiceAccountAuth {
	return &ServiceAccountAuth{
		creds: creds,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Token obtains or refreshes an access token using the JWT-bearer grant
func (s *ServiceAccountAuth) Token(ctx context.Context) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cachedToken != nil && !s.cachedToken.IsExpired(5*time.Minute) {
		return s.cachedToken.AccessToken, nil
	}

	assertion, err := s.signAssertion()
	if err != nil {
		return "", &AuthError{
			Type:   "jwt_generation",
			Reason: "failed to sign service account assertion",
			Err:    err,
		}
	}

	data := url.Values{}
	data.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	data.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, "POST", s.creds.TokenURI, strings.NewReader(data.Encode()))
	if err != nil {
		return "", &AuthError{
			Type:   "request_creation",
			Reason: "failed to create token request",
			Err:    err,
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &AuthError{
			Type:   "request_failed",
			Reason: "failed to get access token",
			Err:    err,
		}
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", &AuthError{
			Type:   "response_parsing",
			Reason: "failed to parse token response",
			Err:    err,
		}
	}

	if tr.Error != "" {
		return "", &AuthError{
			Type:   tr.Error,
			Reason: tr.ErrorDesc,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{
			Type:   "http_error",
			Reason: fmt.Sprintf("HTTP %d from token endpoint", resp.StatusCode),
		}
	}

	token := &AccessToken{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		ExpiresIn:   tr.ExpiresIn,
		ExpiresAt:   time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}

	s.cachedToken = token
	return token.AccessToken, nil
}

// signAssertion builds the signed JWT the token endpoint exchanges for an
// access token.
func (s *ServiceAccountAuth) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(s.creds.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   s.creds.ClientEmail,
		"scope": driveScope,
		"aud":   s.creds.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(key)
}
