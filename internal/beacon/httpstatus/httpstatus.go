// Package httpstatus probes status endpoints and emits events for
// checks that fail: a JSON health value out of range, a missing body
// pattern, a non-OK status code, or an unreachable site.
package httpstatus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/driftkit/driftkit/internal/beacon"
	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/pkg/assert"
)

// BeaconName identifies this beacon in emitted events.
const BeaconName = "http_status"

// DefaultTimeout bounds a site probe when the site sets none.
const DefaultTimeout = 30 * time.Second

// Beacon probes every configured site once per cadence tick.
type Beacon struct {
	sites  map[string]config.Site
	client *http.Client
}

// New builds the beacon from its configuration section.
func New(cfg *config.HTTPStatusBeacon) *Beacon {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.Logger = nil

	return &Beacon{
		sites:  cfg.Sites,
		client: rc.StandardClient(),
	}
}

// Name implements beacon.Beacon.
func (b *Beacon) Name() string { return BeaconName }

// Probe checks every site. It returns findings only; passing checks
// are silent. Per the beacon contract it never returns an error, and
// one broken site does not prevent probing the rest.
func (b *Beacon) Probe(ctx context.Context) []beacon.Event {
	var events []beacon.Event
	for name, site := range b.sites {
		events = append(events, b.probeSite(ctx, name, site)...)
	}
	return events
}

func (b *Beacon) probeSite(ctx context.Context, name string, site config.Site) []beacon.Event {
	timeout := DefaultTimeout
	if site.Timeout > 0 {
		timeout = time.Duration(site.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site.StatusEndpoint, nil)
	if err != nil {
		return []beacon.Event{unreachable(name, site, err)}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return []beacon.Event{unreachable(name, site, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return []beacon.Event{unreachable(name, site, err)}
	}

	if resp.StatusCode != http.StatusOK {
		return []beacon.Event{beacon.NewEvent(BeaconName, name, map[string]any{
			"site":        name,
			"endpoint":    site.StatusEndpoint,
			"status_code": resp.StatusCode,
		})}
	}

	var events []beacon.Event
	events = append(events, checkJSON(name, site, body)...)
	events = append(events, checkHTML(name, site, body)...)
	return events
}

// checkJSON evaluates json_response items against the parsed body.
// Each path addresses one value as "service:key".
func checkJSON(name string, site config.Site, body []byte) []beacon.Event {
	if len(site.JSONResponse) == 0 {
		return nil
	}

	// Decode only the leading JSON value; some status pages append
	// human-readable text after it.
	var parsed map[string]any
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&parsed); err != nil {
		return []beacon.Event{beacon.NewEvent(BeaconName, name, map[string]any{
			"site":     name,
			"endpoint": site.StatusEndpoint,
			"error":    fmt.Sprintf("status body is not JSON: %v", err),
		})}
	}

	var events []beacon.Event
	for _, check := range site.JSONResponse {
		observed, err := lookupPath(parsed, check.Path)
		if err != nil {
			events = append(events, checkFailure(name, site, check, nil, err.Error()))
			continue
		}

		comp, err := assert.ParseComparison(check.Comp)
		if err != nil {
			events = append(events, checkFailure(name, site, check, observed, err.Error()))
			continue
		}

		result, err := assert.Evaluate(assert.Match(check.Value, comp), observed)
		if err != nil {
			events = append(events, checkFailure(name, site, check, observed, err.Error()))
			continue
		}
		if !result.Passed {
			events = append(events, checkFailure(name, site, check, observed, ""))
		}
	}
	return events
}

// checkHTML evaluates html_response items against the raw body text.
// Each value is a regular expression the body must contain.
func checkHTML(name string, site config.Site, body []byte) []beacon.Event {
	var events []beacon.Event
	for _, check := range site.HTMLResponse {
		pattern, ok := check.Value.(string)
		if !ok {
			events = append(events, checkFailure(name, site, check, nil, "html_response value must be a pattern string"))
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			events = append(events, checkFailure(name, site, check, nil, err.Error()))
			continue
		}
		if !re.Match(body) {
			events = append(events, checkFailure(name, site, check, nil, ""))
		}
	}
	return events
}

func checkFailure(name string, site config.Site, check config.ResponseCheck, observed any, problem string) beacon.Event {
	data := map[string]any{
		"site":     name,
		"endpoint": site.StatusEndpoint,
		"expected": check.Value,
		"comp":     check.Comp,
	}
	if check.Path != "" {
		data["path"] = check.Path
	}
	if observed != nil {
		data["actual"] = observed
	}
	if problem != "" {
		data["error"] = problem
	}
	return beacon.NewEvent(BeaconName, name, data)
}

func unreachable(name string, site config.Site, err error) beacon.Event {
	return beacon.NewEvent(BeaconName, name, map[string]any{
		"site":     name,
		"endpoint": site.StatusEndpoint,
		"error":    err.Error(),
	})
}

// lookupPath resolves a "service:key" path in a parsed status body.
func lookupPath(parsed map[string]any, path string) (any, error) {
	service, key, found := strings.Cut(path, ":")
	if !found {
		return nil, fmt.Errorf("path %q must have the form service:key", path)
	}

	section, ok := parsed[service].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("status body has no %q section", service)
	}
	value, ok := section[key]
	if !ok {
		return nil, fmt.Errorf("status body has no %q key under %q", key, service)
	}
	return value, nil
}
