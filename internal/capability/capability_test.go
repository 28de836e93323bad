package capability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

func testBackend() *Backend {
	b := NewBackend("file")
	b.Register("exists", Property(func(_ context.Context, target string) (any, error) {
		return target == "/etc/passwd", nil
	}))
	b.Register("contains", Method(func(_ context.Context, target, parameter string) (any, error) {
		return parameter == "root", nil
	}))
	return b
}

func TestObserveProperty(t *testing.T) {
	t.Parallel()

	b := testBackend()

	observed, err := b.Observe(context.Background(), "exists", "/etc/passwd", nil)
	require.NoError(t, err)
	require.Equal(t, true, observed)
}

func TestObserveMethodWithParameter(t *testing.T) {
	t.Parallel()

	b := testBackend()
	param := "root"

	observed, err := b.Observe(context.Background(), "contains", "/etc/passwd", &param)
	require.NoError(t, err)
	require.Equal(t, true, observed)
}

func TestObserveUnknownCapability(t *testing.T) {
	t.Parallel()

	b := testBackend()

	_, err := b.Observe(context.Background(), "md5sum", "/etc/passwd", nil)

	var unsupported *driftkiterrors.UnsupportedCapabilityError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "file", unsupported.Backend)
	require.Equal(t, "md5sum", unsupported.Capability)
}

func TestObserveMethodWithoutParameter(t *testing.T) {
	t.Parallel()

	b := testBackend()

	_, err := b.Observe(context.Background(), "contains", "/etc/passwd", nil)

	var invalid *driftkiterrors.InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "contains", invalid.Capability)
}

func TestObservePropertyRejectsParameter(t *testing.T) {
	t.Parallel()

	b := testBackend()
	param := "unexpected"

	_, err := b.Observe(context.Background(), "exists", "/etc/passwd", &param)

	var invalid *driftkiterrors.InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(testBackend())

	b, ok := r.Backend("file")
	require.True(t, ok)
	require.Equal(t, "file", b.Name())

	_, ok = r.Backend("service")
	require.False(t, ok)
}
