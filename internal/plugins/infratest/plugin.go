package infratest

import (
	"context"
	"fmt"
	"time"

	"github.com/driftkit/driftkit/internal/capability"
	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/model"
	"github.com/driftkit/driftkit/internal/plugin"
	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

type infraTestPlugin struct {
	registry *capability.Registry
}

// New creates the infra_test plugin over the built-in backends.
func New() plugin.Plugin {
	return NewWithRegistry(DefaultRegistry())
}

// NewWithRegistry creates the plugin with a custom backend registry.
func NewWithRegistry(r *capability.Registry) plugin.Plugin {
	return &infraTestPlugin{registry: r}
}

var _ plugin.Plugin = (*infraTestPlugin)(nil)

func (p *infraTestPlugin) PluginMetadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "infra_test",
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Stateful:    false,
		Description: "Runs declarative assertions against capability backends.",
	}
}

func (p *infraTestPlugin) Schema() any {
	return config.InfraTestStep{}
}

// Evaluate runs the assertion suite. Probing is read-only by
// construction, so the whole suite runs during evaluation; there is
// nothing for Apply to converge.
func (p *infraTestPlugin) Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error) {
	if step.InfraTest == nil {
		return nil, driftkiterrors.NewValidationError(step.ID, "missing infra_test configuration", nil)
	}
	cfg := step.InfraTest

	backend, ok := p.registry.Backend(cfg.Backend)
	if !ok {
		return nil, driftkiterrors.NewUnsupportedCapabilityError(cfg.Backend, "")
	}

	suite, err := RunSuite(ctx, backend, cfg.Target, cfg.Checks)
	if err != nil {
		return nil, driftkiterrors.NewPluginError("infra_test", err)
	}

	state := model.StatusSatisfied
	if !suite.Success {
		state = model.StatusBlocked
	}

	return &model.EvaluationResult{
		StepID:         step.ID,
		CurrentState:   state,
		RequiresAction: false,
		Message:        suite.Summary(),
	}, nil
}

// Apply is never required for assertion suites; a suite that fails
// cannot be converged by this plugin.
func (p *infraTestPlugin) Apply(_ context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error) {
	return &model.StepResult{
		StepID:    step.ID,
		Status:    model.StatusFailed,
		Message:   "assertion suites cannot be converged",
		Error:     fmt.Errorf("apply is not supported for infra_test steps"),
		Timestamp: time.Now(),
	}, driftkiterrors.NewExecutionError(step.ID, fmt.Errorf("apply is not supported for infra_test steps"))
}
