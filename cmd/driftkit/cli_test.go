package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftkit/driftkit/internal/plugin"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "driftkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	plugin.ResetRegistry()

	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func assertionConfig(t *testing.T, target string) string {
	return writeConfig(t, fmt.Sprintf(`
version: "1.0"
name: smoke
steps:
  - id: file_checks
    type: infra_test
    backend: file
    target: %s
    checks:
      exists: true
      is_file: true
`, target))
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "Driftkit")
}

func TestPluginsCommandListsEveryStepType(t *testing.T) {
	out, err := runCLI(t, "plugins")
	require.NoError(t, err)
	for _, name := range []string{
		"cloudfront_distribution",
		"heroku_config_vars",
		"vault_initialized",
		"vault_policy",
		"vault_auth_backend",
		"vault_audit_backend",
		"infra_test",
	} {
		require.Contains(t, out, name)
	}
}

func TestApplyRunsAssertionSteps(t *testing.T) {
	target := filepath.Join(t.TempDir(), "probe.conf")
	require.NoError(t, os.WriteFile(target, []byte("data"), 0o600))

	out, err := runCLI(t, "apply", "-c", assertionConfig(t, target))
	require.NoError(t, err)
	require.Contains(t, out, "[ok] file_checks")
	require.Contains(t, out, "1 succeeded, 0 failed")
}

func TestApplyFailsWhenAssertionsFail(t *testing.T) {
	target := filepath.Join(t.TempDir(), "absent.conf")

	out, err := runCLI(t, "apply", "-c", assertionConfig(t, target))
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 step(s) failed")
	require.Contains(t, out, "[fail] file_checks")
}

func TestVerifyCleanConfiguration(t *testing.T) {
	target := filepath.Join(t.TempDir(), "probe.conf")
	require.NoError(t, os.WriteFile(target, []byte("data"), 0o600))

	out, err := runCLI(t, "verify", "-c", assertionConfig(t, target))
	require.NoError(t, err)
	require.Contains(t, out, "0 pending")
}

func TestTestCommandReportsAssertions(t *testing.T) {
	target := filepath.Join(t.TempDir(), "probe.conf")
	require.NoError(t, os.WriteFile(target, []byte("data"), 0o600))

	out, err := runCLI(t, "test", "-c", assertionConfig(t, target))
	require.NoError(t, err)
	require.Contains(t, out, "Assertion passed")
	require.Contains(t, out, "1 suite(s) passed")
}

func TestTestCommandFailsOnFailedSuite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "absent.conf")

	_, err := runCLI(t, "test", "-c", assertionConfig(t, target))
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 of 1 suite(s) failed")
}

func TestApplyRejectsMissingConfig(t *testing.T) {
	_, err := runCLI(t, "apply", "-c", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestSdbGetRejectsBadURI(t *testing.T) {
	cfg := writeConfig(t, `
version: "1.0"
name: smoke
profiles:
  myconsul:
    driver: consul
    host: localhost
    port: 8500
`)

	_, err := runCLI(t, "sdb", "get", "-c", cfg, "not-a-uri")
	require.Error(t, err)
	require.Contains(t, err.Error(), "sdb URI")
}
