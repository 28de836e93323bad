package beacon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftkit/driftkit/internal/logger"
)

type stubBeacon struct {
	name   string
	probes atomic.Int32
	events []Event
}

func (s *stubBeacon) Name() string { return s.name }

func (s *stubBeacon) Probe(context.Context) []Event {
	s.probes.Add(1)
	return s.events
}

func TestNewEventStampsIdentity(t *testing.T) {
	t.Parallel()

	event := NewEvent("http_status", "frontend", map[string]any{"status_code": 503})

	require.NotEmpty(t, event.ID)
	require.Equal(t, "http_status", event.Beacon)
	require.Equal(t, "frontend", event.Tag)
	require.WithinDuration(t, time.Now().UTC(), event.Time, time.Minute)
	require.Equal(t, 503, event.Data["status_code"])

	other := NewEvent("http_status", "frontend", nil)
	require.NotEqual(t, event.ID, other.ID)
}

func TestRunnerProbesImmediatelyAndDeliversEvents(t *testing.T) {
	t.Parallel()

	b := &stubBeacon{
		name:   "stub",
		events: []Event{NewEvent("stub", "a", nil), NewEvent("stub", "b", nil)},
	}

	var received []Event
	runner := NewRunner(time.Hour, logger.NewNop(), func(e Event) {
		received = append(received, e)
	}, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool { return b.probes.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.Len(t, received, 2)
	require.Equal(t, "a", received[0].Tag)
	require.Equal(t, "b", received[1].Tag)
}

func TestRunnerTicksOnInterval(t *testing.T) {
	t.Parallel()

	b := &stubBeacon{name: "stub"}
	runner := NewRunner(10*time.Millisecond, logger.NewNop(), func(Event) {}, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool { return b.probes.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
