package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})

	return validateInst
}

// ValidateConfig performs schema and cross-field validation on the
// configuration.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return driftkiterrors.NewValidationError("config", "configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	stepIndex := make(map[string]struct{}, len(cfg.Steps))
	for i, step := range cfg.Steps {
		if _, exists := stepIndex[step.ID]; exists {
			return driftkiterrors.NewValidationError(
				fieldForStep(i, "id"), fmt.Sprintf("duplicate step id %q", step.ID), nil)
		}
		stepIndex[step.ID] = struct{}{}

		if err := validateStepBody(i, step); err != nil {
			return err
		}

		if step.Profile != "" {
			if _, ok := cfg.Profiles[step.Profile]; !ok {
				return driftkiterrors.NewValidationError(
					fieldForStep(i, "profile"),
					fmt.Sprintf("references unknown profile %q", step.Profile), nil)
			}
		}
	}

	if cfg.Beacons.HTTPStatus != nil {
		if err := validateBeacon(cfg.Beacons.HTTPStatus); err != nil {
			return err
		}
	}

	return nil
}

// validateStepBody ensures the type-specific section matching the
// declared type was actually populated.
func validateStepBody(i int, step Step) error {
	var present bool
	switch step.Type {
	case "cloudfront_distribution":
		present = step.CloudFront != nil && step.CloudFront.Distribution != ""
	case "heroku_config_vars":
		present = step.Heroku != nil && step.Heroku.App != ""
	case "vault_initialized":
		present = step.VaultInit != nil
	case "vault_policy":
		present = step.VaultPolicy != nil && step.VaultPolicy.Policy != ""
	case "vault_auth_backend":
		present = step.VaultAuth != nil && step.VaultAuth.BackendType != ""
	case "vault_audit_backend":
		present = step.VaultAudit != nil && step.VaultAudit.BackendType != ""
	case "infra_test":
		present = step.InfraTest != nil && len(step.InfraTest.Checks) > 0
	}
	if !present {
		return driftkiterrors.NewValidationError(
			fieldForStep(i, "type"),
			fmt.Sprintf("step %q is missing the configuration for type %q", step.ID, step.Type), nil)
	}
	return nil
}

// validateBeacon enforces the beacon's required shape: every site
// needs a status endpoint and at least one json_response item.
func validateBeacon(b *HTTPStatusBeacon) error {
	if len(b.Sites) == 0 {
		return driftkiterrors.NewValidationError(
			"beacons.http_status.sites", "requires at least one site", nil)
	}
	for name, site := range b.Sites {
		if site.StatusEndpoint == "" {
			return driftkiterrors.NewValidationError(
				fmt.Sprintf("beacons.http_status.sites.%s", name),
				"requires status_endpoint", nil)
		}
		if len(site.JSONResponse) == 0 {
			return driftkiterrors.NewValidationError(
				fmt.Sprintf("beacons.http_status.sites.%s", name),
				"requires json_response", nil)
		}
		for j, item := range site.JSONResponse {
			if !strings.Contains(item.Path, ":") {
				return driftkiterrors.NewValidationError(
					fmt.Sprintf("beacons.http_status.sites.%s.json_response[%d].path", name, j),
					`must use the "service:key" form`, nil)
			}
		}
	}
	return nil
}

func convertValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if ok := errorsAs(err, &validationErrors); !ok || len(validationErrors) == 0 {
		return driftkiterrors.NewValidationError("config", err.Error(), err)
	}

	first := validationErrors[0]
	field := strings.TrimPrefix(first.Namespace(), "Config.")
	message := fmt.Sprintf("failed %q validation", first.Tag())
	return driftkiterrors.NewValidationError(field, message, err)
}

func errorsAs(err error, target *validator.ValidationErrors) bool {
	v, ok := err.(validator.ValidationErrors)
	if ok {
		*target = v
	}
	return ok
}

func fieldForStep(index int, field string) string {
	return fmt.Sprintf("steps[%d].%s", index, field)
}
