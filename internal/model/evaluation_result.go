package model

// VerificationStatus classifies the observed state of a resource
// relative to its desired state.
type VerificationStatus string

const (
	// StatusSatisfied means the resource already matches the desired state.
	StatusSatisfied VerificationStatus = "satisfied"
	// StatusMissing means the resource does not exist yet.
	StatusMissing VerificationStatus = "missing"
	// StatusDrifted means the resource exists but differs from the desired state.
	StatusDrifted VerificationStatus = "drifted"
	// StatusBlocked means the resource cannot be assessed or converged.
	StatusBlocked VerificationStatus = "blocked"
	// StatusUnknown means evaluation could not determine the state.
	StatusUnknown VerificationStatus = "unknown"
)

// EvaluationResult contains the result of evaluating a step's current
// state against its desired state. Returned by Plugin.Evaluate and
// passed to Plugin.Apply when action is required.
type EvaluationResult struct {
	// StepID is the unique identifier of the evaluated step.
	StepID string

	// CurrentState classifies the resource relative to the desired state.
	CurrentState VerificationStatus

	// RequiresAction indicates whether Apply should be called:
	// true for Missing or Drifted, false otherwise.
	RequiresAction bool

	// Message is a human-readable description of the assessment.
	Message string

	// Diff is an optional rendered preview of what would change,
	// populated when RequiresAction is true so dry-runs can show it.
	Diff string

	// Changes is the structural change record for the pending action.
	Changes map[string]any

	// InternalData is opaque data passed from Evaluate to Apply to
	// avoid recomputation.
	InternalData any
}
