package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftkit/driftkit/pkg/assert"
	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validDocument = `
version: "1.0"
name: edge-infrastructure
settings:
  continue_on_error: true
profiles:
  myconsul:
    driver: consul
    host: 127.0.0.1
    port: 8500
    scheme: http
    token: b6376760-a8bb-edd5-fcda-33bc13bfc556
    dc: dev
  vault-prod:
    address: https://vault.example.com:8200
    token: root-token
  heroku-main:
    api_key: secret-key
steps:
  - id: cdn
    type: cloudfront_distribution
    profile: vault-prod
    distribution: my-distribution
    config:
      Comment: edge distribution
      Enabled: true
    tags:
      env: prod
  - id: app_vars
    type: heroku_config_vars
    profile: heroku-main
    app: my-app
    config_vars:
      DATABASE_URL: postgres://db
  - id: vault_ready
    type: vault_initialized
    profile: vault-prod
    secret_shares: 5
    secret_threshold: 3
    unseal: true
  - id: ssh_config_checks
    type: infra_test
    backend: file
    target: /etc/ssh/sshd_config
    checks:
      exists: true
      mode:
        match: "0600"
        comparison: eq
      contains:
        parameter: "PermitRootLogin no"
        match: true
beacons:
  interval: 60
  http_status:
    sites:
      example-site-1:
        status_endpoint: "https://example.com/status"
        timeout: 10
        json_response:
          - path: "redis:status"
            value: up
            comp: "="
          - path: "postgresql:response_microseconds"
            value: 50
            comp: "<="
        html_response:
          - value: "foo.*bar"
            comp: search
`

func TestParseConfigValidDocument(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig(writeConfig(t, validDocument))
	require.NoError(t, err)

	require.Equal(t, "edge-infrastructure", cfg.Name)
	require.True(t, cfg.Settings.ContinueOnError)
	require.Len(t, cfg.Steps, 4)
	require.Len(t, cfg.Profiles, 3)

	cdn := cfg.Steps[0]
	require.Equal(t, "cloudfront_distribution", cdn.Type)
	require.NotNil(t, cdn.CloudFront)
	require.Equal(t, "my-distribution", cdn.CloudFront.Distribution)
	require.Equal(t, true, cdn.CloudFront.Config["Enabled"])
	require.Equal(t, "prod", cdn.CloudFront.Tags["env"])
	require.True(t, cdn.Enabled)

	vars := cfg.Steps[1]
	require.NotNil(t, vars.Heroku)
	require.Equal(t, "my-app", vars.Heroku.App)
	require.Equal(t, "postgres://db", vars.Heroku.ConfigVars["DATABASE_URL"])

	vault := cfg.Steps[2]
	require.NotNil(t, vault.VaultInit)
	require.Equal(t, 5, vault.VaultInit.SecretShares)
	require.True(t, vault.VaultInit.Unseal)

	tests := cfg.Steps[3]
	require.NotNil(t, tests.InfraTest)
	require.Equal(t, "file", tests.InfraTest.Backend)

	exists := tests.InfraTest.Checks["exists"]
	require.NotNil(t, exists.Expectation.Literal)
	require.True(t, *exists.Expectation.Literal)

	mode := tests.InfraTest.Checks["mode"]
	require.Equal(t, "0600", mode.Expectation.Match)
	require.Equal(t, assert.ComparisonEq, mode.Expectation.Comparison)

	contains := tests.InfraTest.Checks["contains"]
	require.True(t, contains.HasParam)
	require.Equal(t, "PermitRootLogin no", contains.Parameter)

	require.NotNil(t, cfg.Beacons.HTTPStatus)
	site := cfg.Beacons.HTTPStatus.Sites["example-site-1"]
	require.Equal(t, "https://example.com/status", site.StatusEndpoint)
	require.Len(t, site.JSONResponse, 2)
	require.Equal(t, "redis:status", site.JSONResponse[0].Path)
}

func TestParseConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	var parseErr *driftkiterrors.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseConfigRejectsUnknownStepType(t *testing.T) {
	t.Parallel()

	doc := `
version: "1.0"
name: bad
steps:
  - id: nope
    type: teleport
`
	_, err := ParseConfig(writeConfig(t, doc))

	var validationErr *driftkiterrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestParseConfigRejectsDuplicateStepIDs(t *testing.T) {
	t.Parallel()

	doc := `
version: "1.0"
name: dupes
steps:
  - id: once
    type: vault_initialized
  - id: once
    type: vault_initialized
`
	_, err := ParseConfig(writeConfig(t, doc))

	var validationErr *driftkiterrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, err.Error(), "duplicate step id")
}

func TestParseConfigRejectsUnknownProfileReference(t *testing.T) {
	t.Parallel()

	doc := `
version: "1.0"
name: missing-profile
steps:
  - id: cdn
    type: cloudfront_distribution
    profile: nowhere
    distribution: d
    config:
      Enabled: true
`
	_, err := ParseConfig(writeConfig(t, doc))

	var validationErr *driftkiterrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, err.Error(), "unknown profile")
}

func TestParseConfigRejectsBeaconWithoutEndpoint(t *testing.T) {
	t.Parallel()

	doc := `
version: "1.0"
name: bad-beacon
beacons:
  http_status:
    sites:
      broken:
        json_response:
          - path: "redis:status"
            value: up
            comp: "="
`
	_, err := ParseConfig(writeConfig(t, doc))

	var validationErr *driftkiterrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestParseConfigRejectsBeaconPathWithoutServiceKeyForm(t *testing.T) {
	t.Parallel()

	doc := `
version: "1.0"
name: bad-path
beacons:
  http_status:
    sites:
      site-a:
        status_endpoint: "https://example.com/status"
        json_response:
          - path: "redisstatus"
            value: up
            comp: "="
`
	_, err := ParseConfig(writeConfig(t, doc))

	var validationErr *driftkiterrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, err.Error(), "service:key")
}
