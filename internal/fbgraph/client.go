// Package fbgraph is a minimal Facebook Graph API client covering the calls
// the linking flow needs: profile, managed pages, and page publishing.
package fbgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Graph API root. Overridable for tests.
const DefaultBaseURL = "https://graph.facebook.com"

const requestTimeout = 10 * time.Second

// Profile is the subset of /me the flow persists.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Page is one entry from /me/accounts.
type Page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	AccessToken string `json:"access_token"`
}

// Client calls the Graph API. All calls carry a bounded timeout so a slow
// upstream can never hang the OAuth callback page.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Graph client. An empty baseURL selects the real API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// FetchProfile returns the token owner's id, name, and email.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile Profile
	params := url.Values{"fields": {"id,name,email"}, "access_token": {accessToken}}
	if err := c.get(ctx, "/me", params, &profile); err != nil {
		return nil, fmt.Errorf("facebook: failed to fetch profile: %w", err)
	}
	return &profile, nil
}

// FetchManagedPages returns the pages the token owner manages, each with its
// page-scoped access token.
func (c *Client) FetchManagedPages(ctx context.Context, accessToken string) ([]Page, error) {
	var result struct {
		Data []Page `json:"data"`
	}
	params := url.Values{"access_token": {accessToken}}
	if err := c.get(ctx, "/me/accounts", params, &result); err != nil {
		return nil, fmt.Errorf("facebook: failed to fetch pages: %w", err)
	}
	return result.Data, nil
}

// Publish posts message (and an optional link) to a page feed using the
// page-scoped token and returns the new post ID.
func (c *Client) Publish(ctx context.Context, pageID, pageAccessToken, message, link string) (string, error) {
	form := url.Values{
		"message":      {message},
		"access_token": {pageAccessToken},
	}
	if link != "" {
		form.Set("link", link)
	}

	endpoint := fmt.Sprintf("%s/%s/feed", c.baseURL, pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("facebook: failed to build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &result); err != nil {
		return "", fmt.Errorf("facebook: failed to publish post: %w", err)
	}
	return result.ID, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
