package converge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftkit/driftkit/pkg/diffmap"
)

type countingApply struct {
	calls   int
	lastArg map[string]any
	err     error
}

func (c *countingApply) fn(_ context.Context, desired map[string]any) error {
	c.calls++
	c.lastArg = desired
	return c.err
}

func fetchReturning(state map[string]any) FetchFunc {
	return func(context.Context) (map[string]any, error) {
		return state, nil
	}
}

func TestConvergeNoDifferenceIsNoop(t *testing.T) {
	t.Parallel()

	state := map[string]any{"region": "us-east-1", "enabled": true}
	applier := &countingApply{}

	res := Converge(context.Background(), Request{
		Name:    "my-distribution",
		Desired: state,
		Fetch:   fetchReturning(map[string]any{"region": "us-east-1", "enabled": true}),
		Apply:   applier.fn,
	})

	require.Equal(t, OutcomeSucceeded, res.Outcome)
	require.Equal(t, "my-distribution has correct config", res.Comment)
	require.Empty(t, res.Changes)
	require.Zero(t, applier.calls)
}

func TestConvergeDryRunNeverApplies(t *testing.T) {
	t.Parallel()

	applier := &countingApply{}

	res := Converge(context.Background(), Request{
		Name:    "my-app",
		Desired: map[string]any{"region": "us-east-1"},
		Fetch:   fetchReturning(map[string]any{"region": "us-west-2"}),
		Apply:   applier.fn,
		DryRun:  true,
	})

	require.Equal(t, OutcomePreview, res.Outcome)
	require.Nil(t, res.Outcome.Bool())
	require.Equal(t, "my-app set for new config", res.Comment)
	require.NotEmpty(t, res.Changes)
	require.Zero(t, applier.calls)
}

func TestConvergeAbsentObservedIsCreation(t *testing.T) {
	t.Parallel()

	applier := &countingApply{}
	desired := map[string]any{"region": "us-east-1", "enabled": true}

	res := Converge(context.Background(), Request{
		Name:    "new-resource",
		Desired: desired,
		Fetch:   fetchReturning(nil),
		Apply:   applier.fn,
	})

	require.Equal(t, OutcomeSucceeded, res.Outcome)
	require.Equal(t, "Created new-resource", res.Comment)
	require.Equal(t, map[string]any{"old": nil, "new": "new-resource"}, res.Changes)
	require.Equal(t, 1, applier.calls)
	require.Equal(t, desired, applier.lastArg)
}

func TestConvergeCreationDryRun(t *testing.T) {
	t.Parallel()

	applier := &countingApply{}

	res := Converge(context.Background(), Request{
		Name:    "new-resource",
		Desired: map[string]any{"enabled": true},
		Fetch:   fetchReturning(nil),
		Apply:   applier.fn,
		DryRun:  true,
	})

	require.Equal(t, OutcomePreview, res.Outcome)
	require.Equal(t, "new-resource set for creation", res.Comment)
	require.Equal(t, map[string]any{"old": nil, "new": "new-resource"}, res.Changes)
	require.Zero(t, applier.calls)
}

func TestConvergeUpdateAppliesExactlyOnce(t *testing.T) {
	t.Parallel()

	applier := &countingApply{}
	desired := map[string]any{"region": "us-east-1", "enabled": true}

	res := Converge(context.Background(), Request{
		Name:    "edge-config",
		Desired: desired,
		Fetch:   fetchReturning(map[string]any{"region": "us-west-2", "enabled": true}),
		Apply:   applier.fn,
	})

	require.Equal(t, OutcomeSucceeded, res.Outcome)
	require.Equal(t, "Updated edge-config", res.Comment)
	require.Equal(t, 1, applier.calls)
	require.Equal(t, desired, applier.lastArg)

	changed, ok := res.Changes["changed"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, diffmap.Change{Old: "us-west-2", New: "us-east-1"}, changed["region"])
}

func TestConvergeFetchFailure(t *testing.T) {
	t.Parallel()

	applier := &countingApply{}

	res := Converge(context.Background(), Request{
		Name:    "broken",
		Desired: map[string]any{"a": 1},
		Fetch: func(context.Context) (map[string]any, error) {
			return nil, fmt.Errorf("connection refused")
		},
		Apply: applier.fn,
	})

	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Contains(t, res.Comment, "error checking broken")
	require.Contains(t, res.Comment, "connection refused")
	require.Empty(t, res.Changes)
	require.Zero(t, applier.calls)
}

func TestConvergeApplyFailure(t *testing.T) {
	t.Parallel()

	applier := &countingApply{err: fmt.Errorf("access denied")}

	res := Converge(context.Background(), Request{
		Name:    "locked-down",
		Desired: map[string]any{"a": 2},
		Fetch:   fetchReturning(map[string]any{"a": 1}),
		Apply:   applier.fn,
	})

	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Contains(t, res.Comment, "error applying locked-down")
	require.Contains(t, res.Comment, "access denied")
	require.Empty(t, res.Changes)
	require.Equal(t, 1, applier.calls)
}

func TestConvergeCustomDiffFunc(t *testing.T) {
	t.Parallel()

	applier := &countingApply{}
	called := 0

	res := Converge(context.Background(), Request{
		Name:    "custom",
		Desired: map[string]any{"a": 1},
		Fetch:   fetchReturning(map[string]any{"a": 2}),
		Apply:   applier.fn,
		DiffFn: func(observed, desired map[string]any) diffmap.Result {
			called++
			// Report equivalence regardless of content.
			return diffmap.Result{}
		},
	})

	require.Equal(t, 1, called)
	require.Equal(t, OutcomeSucceeded, res.Outcome)
	require.Zero(t, applier.calls)
}

func TestOutcomeBool(t *testing.T) {
	t.Parallel()

	require.Nil(t, OutcomePreview.Bool())

	succeeded := OutcomeSucceeded.Bool()
	require.NotNil(t, succeeded)
	require.True(t, *succeeded)

	failed := OutcomeFailed.Bool()
	require.NotNil(t, failed)
	require.False(t, *failed)
}

func TestEndToEndScenario(t *testing.T) {
	t.Parallel()

	// desired and observed differ only in region; a live converge
	// applies once and succeeds.
	desired := map[string]any{"region": "us-east-1", "enabled": true}
	observed := map[string]any{"region": "us-west-2", "enabled": true}

	diff := diffmap.Diff(observed, desired)
	require.Empty(t, diff.Added)
	require.Empty(t, diff.Removed)
	require.Equal(t, map[string]any{
		"region": diffmap.Change{Old: "us-west-2", New: "us-east-1"},
	}, diff.Changed)

	applier := &countingApply{}
	res := Converge(context.Background(), Request{
		Name:    "scenario",
		Desired: desired,
		Fetch:   fetchReturning(observed),
		Apply:   applier.fn,
	})

	require.Equal(t, 1, applier.calls)
	require.Equal(t, OutcomeSucceeded, res.Outcome)
}
