// Package converge implements the diff-and-converge cycle shared by
// every state plugin: fetch the observed state, diff it against the
// desired state, and act only on a mismatch, honoring dry-run mode.
//
// The engine holds no state between calls. Collaborator access goes
// through the Fetch and Apply callbacks, so the engine stays agnostic
// to whatever backend a plugin wraps.
package converge

import (
	"context"
	"fmt"

	"github.com/driftkit/driftkit/pkg/diffmap"
	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

// Outcome is the tri-state result of a converge call. The host agent's
// return convention encodes these as true, false and null; Bool maps
// onto that.
type Outcome int

const (
	// OutcomeFailed reports a fetch or apply failure.
	OutcomeFailed Outcome = iota
	// OutcomeSucceeded reports that the resource matches the desired
	// state, either already or after a successful apply.
	OutcomeSucceeded
	// OutcomePreview reports a dry-run that found pending changes and
	// did not apply them.
	OutcomePreview
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomePreview:
		return "preview"
	default:
		return "failed"
	}
}

// Bool renders the outcome in the host agent's result convention:
// true for success, false for failure, nil for a dry-run preview.
func (o Outcome) Bool() *bool {
	switch o {
	case OutcomePreview:
		return nil
	case OutcomeSucceeded:
		t := true
		return &t
	default:
		f := false
		return &f
	}
}

// FetchFunc reads the observed state of a resource. A nil map reports
// the resource as absent; an empty non-nil map is an existing resource
// with no attributes. Failures should describe the transport or
// collaborator problem.
type FetchFunc func(ctx context.Context) (map[string]any, error)

// ApplyFunc pushes the desired state to the collaborator.
type ApplyFunc func(ctx context.Context, desired map[string]any) error

// DiffFunc computes the structural difference between observed and
// desired state. Plugins with bespoke comparison rules supply their
// own; the default is diffmap.Diff.
type DiffFunc func(observed, desired map[string]any) diffmap.Result

// Request carries one converge invocation.
type Request struct {
	// Name identifies the resource in comments and change records.
	Name string

	// Desired is the target state.
	Desired map[string]any

	// Fetch reads the observed state. Required.
	Fetch FetchFunc

	// Apply mutates the resource toward Desired. Required unless the
	// call runs in dry-run mode.
	Apply ApplyFunc

	// DiffFn overrides the structural diff. Optional.
	DiffFn DiffFunc

	// DryRun previews pending changes without invoking Apply.
	DryRun bool
}

// Result is the uniform record handed back to the host agent.
type Result struct {
	Name    string
	Outcome Outcome
	Comment string
	Changes map[string]any
}

// Converge reconciles a resource toward its desired state.
//
// Dry-run mode never invokes Apply; that is a correctness invariant,
// not a best-effort behavior.
func Converge(ctx context.Context, req Request) Result {
	ret := Result{Name: req.Name, Changes: map[string]any{}}

	if req.Fetch == nil {
		ret.Outcome = OutcomeFailed
		ret.Comment = fmt.Sprintf("%s has no fetch function", req.Name)
		return ret
	}

	observed, err := req.Fetch(ctx)
	if err != nil {
		ret.Outcome = OutcomeFailed
		ret.Comment = driftkiterrors.NewFetchError(req.Name, err).Error()
		return ret
	}

	if observed == nil {
		return create(ctx, req, ret)
	}

	diffFn := req.DiffFn
	if diffFn == nil {
		diffFn = diffmap.Diff
	}
	diff := diffFn(observed, req.Desired)

	if diff.Empty() {
		ret.Outcome = OutcomeSucceeded
		ret.Comment = fmt.Sprintf("%s has correct config", req.Name)
		return ret
	}

	if req.DryRun {
		ret.Outcome = OutcomePreview
		ret.Comment = fmt.Sprintf("%s set for new config", req.Name)
		ret.Changes = diff.AsMap()
		return ret
	}

	if err := apply(ctx, req); err != nil {
		ret.Outcome = OutcomeFailed
		ret.Comment = err.Error()
		return ret
	}

	ret.Outcome = OutcomeSucceeded
	ret.Comment = fmt.Sprintf("Updated %s", req.Name)
	ret.Changes = diff.AsMap()
	return ret
}

// create handles the resource-absent branch. The change record for a
// creation is {old: nil, new: name} rather than a structural diff.
func create(ctx context.Context, req Request, ret Result) Result {
	if req.DryRun {
		ret.Outcome = OutcomePreview
		ret.Comment = fmt.Sprintf("%s set for creation", req.Name)
		ret.Changes = map[string]any{"old": nil, "new": req.Name}
		return ret
	}

	if err := apply(ctx, req); err != nil {
		ret.Outcome = OutcomeFailed
		ret.Comment = err.Error()
		return ret
	}

	ret.Outcome = OutcomeSucceeded
	ret.Comment = fmt.Sprintf("Created %s", req.Name)
	ret.Changes = map[string]any{"old": nil, "new": req.Name}
	return ret
}

func apply(ctx context.Context, req Request) error {
	if req.Apply == nil {
		return driftkiterrors.NewApplyError(req.Name, fmt.Errorf("no apply function"))
	}
	if err := req.Apply(ctx, req.Desired); err != nil {
		return driftkiterrors.NewApplyError(req.Name, err)
	}
	return nil
}
