// Package facts collects host facts that need outside help to
// determine, starting with the host's external IP address.
package facts

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultProviders are plain-text what-is-my-ip services, tried in
// order until one returns a usable address.
var DefaultProviders = []string{
	"https://icanhazip.com",
	"https://api.ipify.org",
	"http://v4.ident.me",
	"http://ipecho.net/plain",
}

const providerTimeout = 5 * time.Second

// ExternalIP resolves the host's public IPv4 address.
type ExternalIP struct {
	providers []string
	client    *http.Client
}

// NewExternalIP builds the collector. With no arguments it uses the
// default provider list.
func NewExternalIP(providers ...string) *ExternalIP {
	if len(providers) == 0 {
		providers = DefaultProviders
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	rc.HTTPClient.Timeout = providerTimeout

	return &ExternalIP{providers: providers, client: rc.StandardClient()}
}

// Collect queries providers in order and returns the first public
// IPv4 address. When every provider fails the fact map is empty; an
// unreachable provider list is not an error condition for the host.
func (c *ExternalIP) Collect(ctx context.Context) map[string]any {
	for _, provider := range c.providers {
		ip, ok := c.query(ctx, provider)
		if ok {
			return map[string]any{"external_ip": ip}
		}
	}
	return map[string]any{}
}

func (c *ExternalIP) query(ctx context.Context, provider string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider, nil)
	if err != nil {
		return "", false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", false
	}

	candidate := strings.TrimSpace(string(body))
	ip := net.ParseIP(candidate)
	if ip == nil || ip.To4() == nil {
		return "", false
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return "", false
	}
	return candidate, true
}
