package heroku

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/driftkit/driftkit/internal/config"
)

// DefaultAPIURL is the public Heroku platform API endpoint. Profiles
// can point api_url elsewhere for private installs or tests.
const DefaultAPIURL = "https://api.heroku.com"

// Client is a minimal Heroku platform API client covering the calls
// the config-vars plugin and the proxy shim need.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// App is the subset of Heroku app attributes the agent consumes.
type App struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewClient builds a client from a connection profile.
func NewClient(profile config.Profile) *Client {
	base := profile.APIURL
	if base == "" {
		base = DefaultAPIURL
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil

	return &Client{
		baseURL: base,
		apiKey:  profile.APIKey,
		http:    rc.StandardClient(),
	}
}

// ListApps returns all apps visible to the API key.
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	var apps []App
	if err := c.do(ctx, http.MethodGet, "/apps", nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// GetApp fetches a single app by name.
func (c *Client) GetApp(ctx context.Context, name string) (*App, error) {
	var app App
	if err := c.do(ctx, http.MethodGet, "/apps/"+name, nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListAppConfigVars returns the app's current config vars.
func (c *Client) ListAppConfigVars(ctx context.Context, app string) (map[string]string, error) {
	var vars map[string]string
	if err := c.do(ctx, http.MethodGet, "/apps/"+app+"/config-vars", nil, &vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// UpdateAppConfigVars patches config vars. A nil value deletes the
// key, per the platform API contract.
func (c *Client) UpdateAppConfigVars(ctx context.Context, app string, vars map[string]*string) (map[string]string, error) {
	var updated map[string]string
	if err := c.do(ctx, http.MethodPatch, "/apps/"+app+"/config-vars", vars, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.heroku+json; version=3")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("heroku API %s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(detail))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
