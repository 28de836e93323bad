// Package beacon defines the periodic monitoring contract. Beacons
// probe on a fixed cadence and emit events only for findings; a quiet
// probe produces nothing.
package beacon

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/driftkit/driftkit/internal/logger"
)

// Event is one beacon finding. Data is beacon-specific.
type Event struct {
	ID     string         `json:"id"`
	Beacon string         `json:"beacon"`
	Tag    string         `json:"tag"`
	Time   time.Time      `json:"time"`
	Data   map[string]any `json:"data"`
}

// NewEvent stamps a finding with identity and time.
func NewEvent(beacon, tag string, data map[string]any) Event {
	return Event{
		ID:     uuid.NewString(),
		Beacon: beacon,
		Tag:    tag,
		Time:   time.Now().UTC(),
		Data:   data,
	}
}

// Beacon is a periodic probe. Probe must not panic and must not
// return an error: transport failures are findings, reported as
// events, so one unreachable site never stops the cadence.
type Beacon interface {
	Name() string
	Probe(ctx context.Context) []Event
}

// Handler consumes emitted events.
type Handler func(Event)

// Runner drives a set of beacons on a shared interval.
type Runner struct {
	beacons  []Beacon
	interval time.Duration
	handler  Handler
	log      *logger.Logger
}

// NewRunner assembles a runner. The handler receives every event from
// every beacon, in probe order.
func NewRunner(interval time.Duration, log *logger.Logger, handler Handler, beacons ...Beacon) *Runner {
	return &Runner{
		beacons:  beacons,
		interval: interval,
		handler:  handler,
		log:      log,
	}
}

// Run probes immediately, then on every interval tick until the
// context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.probeAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.probeAll(ctx)
		}
	}
}

func (r *Runner) probeAll(ctx context.Context) {
	for _, b := range r.beacons {
		events := b.Probe(ctx)
		r.log.WithFields(map[string]any{"beacon": b.Name(), "events": len(events)}).Debug("beacon probe finished")
		for _, event := range events {
			r.handler(event)
		}
	}
}
