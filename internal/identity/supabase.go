// Package identity wraps the managed auth backend (Supabase) for passwordless
// magic-link sign-in: admin link generation, one-time token verification, and
// rewriting of provider action links into application callback URLs.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider is the identity backend surface handlers depend on; tests
// substitute a fake.
type Provider interface {
	GenerateMagicLink(ctx context.Context, email, redirectTo string) (string, error)
	VerifyToken(ctx context.Context, token, tokenType string) (*Session, error)
}

// Session is the provider session returned after a verified one-time token.
// This is the single documented response contract; no fallback property
// probing.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        SessionUser `json:"user"`
}

type SessionUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

// Client calls the Supabase auth admin API with the service-role key.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type generateLinkResponse struct {
	ActionLink string `json:"action_link"`
}

// GenerateMagicLink asks the provider for a one-time sign-in link for email.
// The returned action link embeds the opaque token; the provider's own email
// is never sent because the link is rewritten and dispatched by us.
func (c *Client) GenerateMagicLink(ctx context.Context, email, redirectTo string) (string, error) {
	payload := map[string]any{
		"type":  "magiclink",
		"email": email,
		"options": map[string]string{
			"redirect_to": redirectTo,
		},
	}

	var out generateLinkResponse
	if err := c.post(ctx, "/auth/v1/admin/generate_link", payload, &out); err != nil {
		return "", err
	}
	if out.ActionLink == "" {
		return "", fmt.Errorf("identity provider returned no action link")
	}
	return out.ActionLink, nil
}

// VerifyToken exchanges a one-time token for a provider session.
func (c *Client) VerifyToken(ctx context.Context, token, tokenType string) (*Session, error) {
	payload := map[string]any{
		"type":       tokenType,
		"token_hash": token,
	}

	var session Session
	if err := c.post(ctx, "/auth/v1/verify", payload, &session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" || session.User.Email == "" {
		return nil, fmt.Errorf("identity provider returned no session")
	}
	return &session, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, detail)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding identity provider response: %w", err)
	}
	return nil
}
