package main

import (
	"github.com/driftkit/driftkit/internal/plugin"
	"github.com/driftkit/driftkit/internal/plugins/cloudfront"
	"github.com/driftkit/driftkit/internal/plugins/heroku"
	"github.com/driftkit/driftkit/internal/plugins/infratest"
	"github.com/driftkit/driftkit/internal/plugins/vault"
)

// registerPlugins wires every step-type plugin into the registry.
// Plugins need the profile resolver at construction time, so this runs
// after the configuration is parsed rather than from init functions.
func registerPlugins(profiles plugin.ProfileResolver) error {
	plugins := map[string]plugin.Plugin{
		"cloudfront_distribution": cloudfront.New(profiles),
		"heroku_config_vars":      heroku.New(profiles),
		"vault_initialized":       vault.NewInitialized(profiles),
		"vault_policy":            vault.NewPolicy(profiles),
		"vault_auth_backend":      vault.NewAuthBackend(profiles),
		"vault_audit_backend":     vault.NewAuditBackend(profiles),
		"infra_test":              infratest.New(),
	}

	for stepType, p := range plugins {
		if err := plugin.RegisterPlugin(stepType, p); err != nil {
			return err
		}
	}
	return nil
}
