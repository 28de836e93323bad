package heroku

import (
	"context"
	"fmt"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/model"
	"github.com/driftkit/driftkit/internal/plugin"
	"github.com/driftkit/driftkit/pkg/converge"
	"github.com/driftkit/driftkit/pkg/diffmap"
	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

// API is the slice of the platform client the plugin drives. Tests
// substitute a fake.
type API interface {
	ListAppConfigVars(ctx context.Context, app string) (map[string]string, error)
	UpdateAppConfigVars(ctx context.Context, app string, vars map[string]*string) (map[string]string, error)
}

type configVarsPlugin struct {
	profiles  plugin.ProfileResolver
	newClient func(config.Profile) API
}

// New creates the heroku_config_vars plugin. Profiles supply the API
// key and endpoint per step.
func New(profiles plugin.ProfileResolver) plugin.Plugin {
	return &configVarsPlugin{
		profiles: profiles,
		newClient: func(p config.Profile) API {
			return NewClient(p)
		},
	}
}

// NewWithClient creates the plugin over a fixed client, bypassing
// profile-based construction.
func NewWithClient(profiles plugin.ProfileResolver, api API) plugin.Plugin {
	return &configVarsPlugin{
		profiles:  profiles,
		newClient: func(config.Profile) API { return api },
	}
}

var _ plugin.Plugin = (*configVarsPlugin)(nil)

func (p *configVarsPlugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "heroku_config_vars",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Stateful:    true,
		Description: "Manages Heroku application config vars.",
	}
}

func (p *configVarsPlugin) Schema() any {
	return config.HerokuStep{}
}

func (p *configVarsPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	req, err := p.request(step, true)
	if err != nil {
		return nil, err
	}

	res := converge.Converge(ctx, *req)
	if res.Outcome == converge.OutcomeFailed {
		return nil, driftkiterrors.NewPluginError("heroku_config_vars", fmt.Errorf("%s", res.Comment))
	}

	eval := &model.EvaluationResult{
		StepID:       step.ID,
		CurrentState: model.StatusSatisfied,
		Message:      res.Comment,
		Changes:      res.Changes,
	}
	if res.Outcome == converge.OutcomePreview {
		eval.CurrentState = model.StatusDrifted
		eval.RequiresAction = true
		eval.Diff = renderPreview(res.Changes)
	}
	return eval, nil
}

func (p *configVarsPlugin) Apply(ctx context.Context, _ *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	req, err := p.request(step, false)
	if err != nil {
		return nil, err
	}

	res := converge.Converge(ctx, *req)
	result := model.FromConverge(step.ID, res)
	if res.Outcome == converge.OutcomeFailed {
		result.Error = fmt.Errorf("%s", res.Comment)
		return result, driftkiterrors.NewExecutionError(step.ID, result.Error)
	}
	return result, nil
}

// request assembles the converge request for one step. The observed
// state is captured by the fetch closure so apply can compute which
// existing keys an override must blank out.
func (p *configVarsPlugin) request(step *config.Step, dryRun bool) (*converge.Request, error) {
	if step.Heroku == nil {
		return nil, driftkiterrors.NewValidationError(step.ID, "missing heroku configuration", nil)
	}
	cfg := step.Heroku

	profile, ok := p.profiles.Profile(step.Profile)
	if !ok {
		return nil, driftkiterrors.NewValidationError(step.ID, fmt.Sprintf("unknown profile %q", step.Profile), nil)
	}
	client := p.newClient(profile)

	desired := make(map[string]any, len(cfg.ConfigVars))
	for k, v := range cfg.ConfigVars {
		desired[k] = v
	}

	var current map[string]string

	fetch := func(ctx context.Context) (map[string]any, error) {
		vars, err := client.ListAppConfigVars(ctx, cfg.App)
		if err != nil {
			return nil, err
		}
		current = vars

		observed := make(map[string]any, len(vars))
		for k, v := range vars {
			// In merge mode, vars outside the managed set are not drift.
			if !cfg.Override {
				if _, managed := cfg.ConfigVars[k]; !managed {
					continue
				}
			}
			observed[k] = v
		}
		return observed, nil
	}

	apply := func(ctx context.Context, _ map[string]any) error {
		patch := make(map[string]*string, len(cfg.ConfigVars))
		if cfg.Override {
			for k := range current {
				if _, keep := cfg.ConfigVars[k]; !keep {
					patch[k] = nil
				}
			}
		}
		for k := range cfg.ConfigVars {
			v := cfg.ConfigVars[k]
			patch[k] = &v
		}
		_, err := client.UpdateAppConfigVars(ctx, cfg.App, patch)
		return err
	}

	return &converge.Request{
		Name:    cfg.App,
		Desired: desired,
		Fetch:   fetch,
		Apply:   apply,
		DryRun:  dryRun,
	}, nil
}

// renderPreview turns a change record back into old/new maps and
// renders them as a unified diff for dry-run output.
func renderPreview(changes map[string]any) string {
	old := map[string]any{}
	updated := map[string]any{}
	if added, ok := changes["added"].(map[string]any); ok {
		for k, v := range added {
			updated[k] = v
		}
	}
	if removed, ok := changes["removed"].(map[string]any); ok {
		for k, v := range removed {
			old[k] = v
		}
	}
	if changed, ok := changes["changed"].(map[string]any); ok {
		for k, v := range changed {
			if ch, ok := v.(diffmap.Change); ok {
				old[k] = ch.Old
				updated[k] = ch.New
			}
		}
	}

	rendered, err := diffmap.Render(old, updated)
	if err != nil {
		return ""
	}
	return rendered
}
