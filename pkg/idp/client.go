// Package idp is a thin client for the identity provider's management API.
// User records created through onboarding, profile edits, and password
// resets are mirrored there so interactive logins stay in sync.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/EnvSync-Cloud/envsync-api/pkg/apperrors"
)

// Config points the client at the provider tenant
type Config struct {
	// Domain is the tenant base URL, e.g. https://tenant.auth0.com
	Domain       string
	ClientID     string
	ClientSecret string
	// Connection is the database connection users are created in
	Connection string
}

// Client talks to the management API with a client-credentials token.
// The oauth2 transport caches and refreshes the token by itself.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a management API client
func NewClient(ctx context.Context, cfg Config) *Client {
	if cfg.Connection == "" {
		cfg.Connection = "Username-Password-Authentication"
	}
	credentials := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.Domain + "/oauth/token",
		EndpointParams: url.Values{
			"audience": {cfg.Domain + "/api/v2/"},
		},
	}

	httpClient := credentials.Client(ctx)
	httpClient.Timeout = 15 * time.Second
	return &Client{cfg: cfg, http: httpClient}
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode idp request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.Domain+path, body)
	if err != nil {
		return fmt.Errorf("failed to build idp request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Upstream("identity provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.Upstream(
			fmt.Sprintf("identity provider returned %d", resp.StatusCode),
			fmt.Errorf("%s %s: %s", method, path, strings.TrimSpace(string(detail))))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode idp response: %w", err)
		}
	}
	return nil
}

// CreateUser provisions a login and returns the provider's user id
func (c *Client) CreateUser(ctx context.Context, email, password, name string) (string, error) {
	payload := map[string]interface{}{
		"email":      email,
		"password":   password,
		"name":       name,
		"connection": c.cfg.Connection,
	}
	var created struct {
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v2/users", payload, &created); err != nil {
		return "", err
	}
	if created.UserID == "" {
		return "", apperrors.Upstream("identity provider returned no user id", nil)
	}
	return created.UserID, nil
}

// UpdateUser mirrors profile fields to the provider
func (c *Client) UpdateUser(ctx context.Context, externalID, name, pictureURL string) error {
	payload := map[string]interface{}{}
	if name != "" {
		payload["name"] = name
	}
	if pictureURL != "" {
		payload["picture"] = pictureURL
	}
	if len(payload) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPatch, "/api/v2/users/"+url.PathEscape(externalID), payload, nil)
}

// DeleteUser removes the provider account
func (c *Client) DeleteUser(ctx context.Context, externalID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v2/users/"+url.PathEscape(externalID), nil, nil)
}

// TriggerPasswordReset asks the provider to email a change-password link.
// This endpoint is unauthenticated on the provider side.
func (c *Client) TriggerPasswordReset(ctx context.Context, email string) error {
	payload := map[string]interface{}{
		"client_id":  c.cfg.ClientID,
		"email":      email,
		"connection": c.cfg.Connection,
	}
	return c.do(ctx, http.MethodPost, "/dbconnections/change_password", payload, nil)
}
