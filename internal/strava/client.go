// Package strava drives the three-legged OAuth flow with Strava and the
// athlete/statistics enrichment calls used for runner verification.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	authURL        = "https://www.strava.com/oauth/authorize"
	tokenURL       = "https://www.strava.com/oauth/token"
	deauthorizeURL = "https://www.strava.com/oauth/deauthorize"
	apiBaseURL     = "https://www.strava.com/api/v3"
)

// Athlete is the subset of Strava's athlete response this service reads.
type Athlete struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

func (a Athlete) DisplayName() string {
	return strings.TrimSpace(a.Firstname + " " + a.Lastname)
}

// RunTotals is one of the distance/count aggregates in the stats response.
type RunTotals struct {
	Distance float64 `json:"distance"` // meters
	Count    int     `json:"count"`
}

// Stats is the subset of the athlete statistics response this service reads.
type Stats struct {
	AllRunTotals    RunTotals `json:"all_run_totals"`
	RecentRunTotals RunTotals `json:"recent_run_totals"`
}

// API is the provider surface the bridge service depends on; tests fake it.
type API interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Athlete(ctx context.Context, accessToken string) (*Athlete, error)
	Stats(ctx context.Context, accessToken string, athleteID int64) (*Stats, error)
	Revoke(ctx context.Context, accessToken string) error
}

// Client implements API against the real Strava endpoints.
type Client struct {
	oauth      *oauth2.Config
	apiBase    string
	revokeURL  string
	httpClient *http.Client
}

func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read", "activity:read_all"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		apiBase:    apiBaseURL,
		revokeURL:  deauthorizeURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURLs redirects token, API and revoke calls, for tests.
func (c *Client) WithBaseURLs(tokenBase, apiBase string) *Client {
	c.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:  tokenBase + "/oauth/authorize",
		TokenURL: tokenBase + "/oauth/token",
	}
	c.apiBase = apiBase
	c.revokeURL = tokenBase + "/oauth/deauthorize"
	return c
}

func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}

// Refresh performs a refresh-token grant and returns the new token pair.
// Strava rotates the refresh token on every grant, so the caller must persist
// the returned pair, not the old one.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	return token, nil
}

func (c *Client) Athlete(ctx context.Context, accessToken string) (*Athlete, error) {
	var athlete Athlete
	if err := c.get(ctx, c.apiBase+"/athlete", accessToken, &athlete); err != nil {
		return nil, err
	}
	return &athlete, nil
}

func (c *Client) Stats(ctx context.Context, accessToken string, athleteID int64) (*Stats, error) {
	var stats Stats
	ep := fmt.Sprintf("%s/athletes/%d/stats", c.apiBase, athleteID)
	if err := c.get(ctx, ep, accessToken, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Revoke deauthorizes the access token with the provider.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{"access_token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("revoke returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling strava: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("strava returned %d: %s", resp.StatusCode, detail)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding strava response: %w", err)
	}
	return nil
}
