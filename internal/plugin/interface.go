package plugin

import (
	"context"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/model"
)

// Plugin defines the contract every driftkit state plugin satisfies.
//
// The host agent drives plugins through a two-phase cycle:
//
//   - Evaluate performs a STRICTLY READ-ONLY assessment of the
//     external system's current state against the desired state in the
//     step. It must not mutate anything; the engine relies on this to
//     implement dry-run previews.
//   - Apply mutates the external system toward the desired state. It
//     is only called when Evaluate reported RequiresAction and the run
//     is not a dry-run. Apply must be idempotent.
//
// Evaluate errors should be typed (ValidationError for bad step
// configuration, FetchError for collaborator transport failures);
// the engine converts them into failed step results rather than
// letting them propagate as faults.
type Plugin interface {
	// PluginMetadata returns the plugin's identity and description for
	// registry listings.
	PluginMetadata() Metadata

	// Schema returns the struct that defines the step configuration
	// for this plugin's type.
	Schema() any

	// Evaluate assesses current vs desired state without mutating.
	Evaluate(ctx context.Context, step *config.Step) (*model.EvaluationResult, error)

	// Apply converges the system toward the desired state using the
	// prior evaluation.
	Apply(ctx context.Context, evalResult *model.EvaluationResult, step *config.Step) (*model.StepResult, error)
}

// ProfileResolver hands plugins the connection profile a step
// references. The engine implements it from the parsed configuration;
// tests substitute fixed profiles.
type ProfileResolver interface {
	Profile(name string) (config.Profile, bool)
}
