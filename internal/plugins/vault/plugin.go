package vault

import (
	"context"
	"fmt"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/model"
	"github.com/driftkit/driftkit/internal/plugin"
	"github.com/driftkit/driftkit/pkg/converge"
	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

// Initialization defaults, matching the server's own recommended
// shamir parameters.
const (
	defaultSecretShares    = 5
	defaultSecretThreshold = 3
)

// base carries what every vault plugin needs: profile resolution and a
// way to build a system-backend handle.
type base struct {
	profiles plugin.ProfileResolver
	newSys   SysFactory
}

func (b *base) sys(step *config.Step) (Sys, error) {
	profile, ok := b.profiles.Profile(step.Profile)
	if !ok {
		return nil, driftkiterrors.NewValidationError(step.ID, fmt.Sprintf("unknown profile %q", step.Profile), nil)
	}
	return b.newSys(profile)
}

// evaluate runs a dry-run converge and translates it into the
// evaluation contract. A creation-record preview classifies the
// resource as missing rather than drifted.
func (b *base) evaluate(ctx context.Context, step *config.Step, req converge.Request) (*model.EvaluationResult, error) {
	req.DryRun = true
	res := converge.Converge(ctx, req)
	if res.Outcome == converge.OutcomeFailed {
		return nil, driftkiterrors.NewPluginError(step.Type, fmt.Errorf("%s", res.Comment))
	}

	eval := &model.EvaluationResult{
		StepID:       step.ID,
		CurrentState: model.StatusSatisfied,
		Message:      res.Comment,
		Changes:      res.Changes,
	}
	if res.Outcome == converge.OutcomePreview {
		eval.RequiresAction = true
		eval.CurrentState = model.StatusDrifted
		if model.FromConverge(step.ID, res).Status == model.StatusWouldCreate {
			eval.CurrentState = model.StatusMissing
		}
	}
	return eval, nil
}

func (b *base) apply(ctx context.Context, step *config.Step, req converge.Request) (*model.StepResult, error) {
	res := converge.Converge(ctx, req)
	result := model.FromConverge(step.ID, res)
	if res.Outcome == converge.OutcomeFailed {
		result.Error = fmt.Errorf("%s", res.Comment)
		return result, driftkiterrors.NewExecutionError(step.ID, result.Error)
	}
	return result, nil
}

// --- vault_initialized ---

type initializedPlugin struct{ base }

// NewInitialized creates the vault_initialized plugin.
func NewInitialized(profiles plugin.ProfileResolver) plugin.Plugin {
	return &initializedPlugin{base{profiles: profiles, newSys: NewSys}}
}

// NewInitializedWithSys creates the plugin over a fixed system handle.
func NewInitializedWithSys(profiles plugin.ProfileResolver, sys Sys) plugin.Plugin {
	return &initializedPlugin{base{profiles: profiles, newSys: fixed(sys)}}
}

func fixed(sys Sys) SysFactory {
	return func(config.Profile) (Sys, error) { return sys, nil }
}

var _ plugin.Plugin = (*initializedPlugin)(nil)

func (p *initializedPlugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "vault_initialized",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Stateful:    true,
		Description: "Initializes a Vault cluster when it is not yet initialized.",
	}
}

func (p *initializedPlugin) Schema() any { return config.VaultInitStep{} }

// request builds the converge request. Apply captures the generated
// root credentials so the caller can record them; there is no second
// chance to read them after initialization.
func (p *initializedPlugin) request(step *config.Step, creds *map[string]any) (converge.Request, error) {
	if step.VaultInit == nil {
		return converge.Request{}, driftkiterrors.NewValidationError(step.ID, "missing vault_initialized configuration", nil)
	}
	cfg := step.VaultInit

	sys, err := p.sys(step)
	if err != nil {
		return converge.Request{}, err
	}

	shares := cfg.SecretShares
	if shares == 0 {
		shares = defaultSecretShares
	}
	threshold := cfg.SecretThreshold
	if threshold == 0 {
		threshold = defaultSecretThreshold
	}

	fetch := func(ctx context.Context) (map[string]any, error) {
		initialized, err := sys.InitStatusWithContext(ctx)
		if err != nil {
			return nil, err
		}
		if !initialized {
			return nil, nil
		}
		return map[string]any{"initialized": true}, nil
	}

	apply := func(ctx context.Context, _ map[string]any) error {
		resp, err := sys.InitWithContext(ctx, &vaultapi.InitRequest{
			SecretShares:    shares,
			SecretThreshold: threshold,
			PGPKeys:         cfg.PGPKeys,
		})
		if err != nil {
			return err
		}
		if creds != nil {
			*creds = map[string]any{
				"keys":       resp.Keys,
				"keys_b64":   resp.KeysB64,
				"root_token": resp.RootToken,
			}
		}
		if cfg.Unseal {
			for _, shard := range resp.Keys {
				status, err := sys.UnsealWithContext(ctx, shard)
				if err != nil {
					return err
				}
				if !status.Sealed {
					break
				}
			}
		}
		return nil
	}

	return converge.Request{
		Name:    "vault",
		Desired: map[string]any{"initialized": true},
		Fetch:   fetch,
		Apply:   apply,
	}, nil
}

func (p *initializedPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	req, err := p.request(step, nil)
	if err != nil {
		return nil, err
	}
	return p.evaluate(ctx, step, req)
}

func (p *initializedPlugin) Apply(ctx context.Context, _ *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	var creds map[string]any
	req, err := p.request(step, &creds)
	if err != nil {
		return nil, err
	}
	result, err := p.apply(ctx, step, req)
	if err == nil && creds != nil {
		result.Changes = map[string]any{"root_credentials": creds}
	}
	return result, err
}

// --- vault_policy ---

type policyPlugin struct{ base }

// NewPolicy creates the vault_policy plugin.
func NewPolicy(profiles plugin.ProfileResolver) plugin.Plugin {
	return &policyPlugin{base{profiles: profiles, newSys: NewSys}}
}

// NewPolicyWithSys creates the plugin over a fixed system handle.
func NewPolicyWithSys(profiles plugin.ProfileResolver, sys Sys) plugin.Plugin {
	return &policyPlugin{base{profiles: profiles, newSys: fixed(sys)}}
}

var _ plugin.Plugin = (*policyPlugin)(nil)

func (p *policyPlugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "vault_policy",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Stateful:    true,
		Description: "Creates or updates a named Vault policy.",
	}
}

func (p *policyPlugin) Schema() any { return config.VaultPolicyStep{} }

func (p *policyPlugin) request(step *config.Step) (converge.Request, error) {
	if step.VaultPolicy == nil {
		return converge.Request{}, driftkiterrors.NewValidationError(step.ID, "missing vault_policy configuration", nil)
	}
	cfg := step.VaultPolicy

	sys, err := p.sys(step)
	if err != nil {
		return converge.Request{}, err
	}

	fetch := func(ctx context.Context) (map[string]any, error) {
		rules, err := sys.GetPolicyWithContext(ctx, cfg.Policy)
		if err != nil {
			return nil, err
		}
		// The API reports a missing policy as empty rules, not an error.
		if rules == "" {
			return nil, nil
		}
		return map[string]any{"rules": rules}, nil
	}

	apply := func(ctx context.Context, _ map[string]any) error {
		return sys.PutPolicyWithContext(ctx, cfg.Policy, cfg.Rules)
	}

	return converge.Request{
		Name:    cfg.Policy,
		Desired: map[string]any{"rules": cfg.Rules},
		Fetch:   fetch,
		Apply:   apply,
	}, nil
}

func (p *policyPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	req, err := p.request(step)
	if err != nil {
		return nil, err
	}
	return p.evaluate(ctx, step, req)
}

func (p *policyPlugin) Apply(ctx context.Context, _ *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	req, err := p.request(step)
	if err != nil {
		return nil, err
	}
	return p.apply(ctx, step, req)
}

// --- vault_auth_backend ---

type authBackendPlugin struct{ base }

// NewAuthBackend creates the vault_auth_backend plugin.
func NewAuthBackend(profiles plugin.ProfileResolver) plugin.Plugin {
	return &authBackendPlugin{base{profiles: profiles, newSys: NewSys}}
}

// NewAuthBackendWithSys creates the plugin over a fixed system handle.
func NewAuthBackendWithSys(profiles plugin.ProfileResolver, sys Sys) plugin.Plugin {
	return &authBackendPlugin{base{profiles: profiles, newSys: fixed(sys)}}
}

var _ plugin.Plugin = (*authBackendPlugin)(nil)

func (p *authBackendPlugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "vault_auth_backend",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Stateful:    true,
		Description: "Enables a Vault authentication backend.",
	}
}

func (p *authBackendPlugin) Schema() any { return config.VaultAuthStep{} }

func (p *authBackendPlugin) request(step *config.Step) (converge.Request, error) {
	if step.VaultAuth == nil {
		return converge.Request{}, driftkiterrors.NewValidationError(step.ID, "missing vault_auth_backend configuration", nil)
	}
	cfg := step.VaultAuth

	sys, err := p.sys(step)
	if err != nil {
		return converge.Request{}, err
	}

	mount := cfg.MountPoint
	if mount == "" {
		mount = cfg.BackendType
	}

	fetch := func(ctx context.Context) (map[string]any, error) {
		mounts, err := sys.ListAuthWithContext(ctx)
		if err != nil {
			return nil, err
		}
		existing, ok := mounts[mountKey(mount)]
		if !ok {
			return nil, nil
		}
		return map[string]any{"type": existing.Type}, nil
	}

	apply := func(ctx context.Context, _ map[string]any) error {
		return sys.EnableAuthWithOptionsWithContext(ctx, mount, &vaultapi.EnableAuthOptions{
			Type:        cfg.BackendType,
			Description: cfg.Description,
		})
	}

	return converge.Request{
		Name:    mount,
		Desired: map[string]any{"type": cfg.BackendType},
		Fetch:   fetch,
		Apply:   apply,
	}, nil
}

func (p *authBackendPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	req, err := p.request(step)
	if err != nil {
		return nil, err
	}
	return p.evaluate(ctx, step, req)
}

func (p *authBackendPlugin) Apply(ctx context.Context, _ *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	req, err := p.request(step)
	if err != nil {
		return nil, err
	}
	return p.apply(ctx, step, req)
}

// --- vault_audit_backend ---

type auditBackendPlugin struct{ base }

// NewAuditBackend creates the vault_audit_backend plugin.
func NewAuditBackend(profiles plugin.ProfileResolver) plugin.Plugin {
	return &auditBackendPlugin{base{profiles: profiles, newSys: NewSys}}
}

// NewAuditBackendWithSys creates the plugin over a fixed system handle.
func NewAuditBackendWithSys(profiles plugin.ProfileResolver, sys Sys) plugin.Plugin {
	return &auditBackendPlugin{base{profiles: profiles, newSys: fixed(sys)}}
}

var _ plugin.Plugin = (*auditBackendPlugin)(nil)

func (p *auditBackendPlugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "vault_audit_backend",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Stateful:    true,
		Description: "Enables a Vault audit backend.",
	}
}

func (p *auditBackendPlugin) Schema() any { return config.VaultAuditStep{} }

func (p *auditBackendPlugin) request(step *config.Step) (converge.Request, error) {
	if step.VaultAudit == nil {
		return converge.Request{}, driftkiterrors.NewValidationError(step.ID, "missing vault_audit_backend configuration", nil)
	}
	cfg := step.VaultAudit

	sys, err := p.sys(step)
	if err != nil {
		return converge.Request{}, err
	}

	mount := cfg.MountPoint
	if mount == "" {
		mount = cfg.BackendType
	}

	fetch := func(ctx context.Context) (map[string]any, error) {
		mounts, err := sys.ListAuditWithContext(ctx)
		if err != nil {
			return nil, err
		}
		existing, ok := mounts[mountKey(mount)]
		if !ok {
			return nil, nil
		}
		return map[string]any{"type": existing.Type}, nil
	}

	apply := func(ctx context.Context, _ map[string]any) error {
		return sys.EnableAuditWithOptionsWithContext(ctx, mount, &vaultapi.EnableAuditOptions{
			Type:        cfg.BackendType,
			Description: cfg.Description,
			Options:     cfg.Options,
		})
	}

	return converge.Request{
		Name:    mount,
		Desired: map[string]any{"type": cfg.BackendType},
		Fetch:   fetch,
		Apply:   apply,
	}, nil
}

func (p *auditBackendPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	req, err := p.request(step)
	if err != nil {
		return nil, err
	}
	return p.evaluate(ctx, step, req)
}

func (p *auditBackendPlugin) Apply(ctx context.Context, _ *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	req, err := p.request(step)
	if err != nil {
		return nil, err
	}
	return p.apply(ctx, step, req)
}

// mountKey normalizes a mount point to the trailing-slash form the
// list endpoints key their maps with.
func mountKey(mount string) string {
	return strings.TrimSuffix(mount, "/") + "/"
}
