// Package engine executes configured steps sequentially through the
// plugin registry: evaluate first, then apply when action is required
// and the run is not a dry-run.
package engine

import (
	"context"
	"time"

	"github.com/driftkit/driftkit/internal/config"
	"github.com/driftkit/driftkit/internal/logger"
	"github.com/driftkit/driftkit/internal/model"
	"github.com/driftkit/driftkit/internal/plugin"
)

// Options overrides run behavior on top of the configured settings.
type Options struct {
	// DryRun forces preview mode regardless of settings.dry_run.
	DryRun bool

	// ContinueOnError keeps executing after a failed step.
	ContinueOnError bool
}

// Summary aggregates one run.
type Summary struct {
	Results   []*model.StepResult
	Succeeded int
	Failed    int
	Skipped   int
	Previewed int
}

// Success reports whether the run completed without failures.
func (s *Summary) Success() bool {
	return s.Failed == 0
}

// Engine runs the steps of one configuration.
type Engine struct {
	cfg    *config.Config
	log    *logger.Logger
	opts   Options
	lookup func(stepType string) (plugin.Plugin, error)
}

// New creates an engine. Options merge with the configuration's
// settings section; either source can enable a behavior.
func New(cfg *config.Config, log *logger.Logger, opts Options) *Engine {
	opts.DryRun = opts.DryRun || cfg.Settings.DryRun
	opts.ContinueOnError = opts.ContinueOnError || cfg.Settings.ContinueOnError

	return &Engine{
		cfg:    cfg,
		log:    log.WithComponent("engine"),
		opts:   opts,
		lookup: plugin.GetPlugin,
	}
}

// Profile implements plugin.ProfileResolver from the parsed
// configuration.
func (e *Engine) Profile(name string) (config.Profile, bool) {
	p, ok := e.cfg.Profiles[name]
	return p, ok
}

// Run executes every step in order. The error return covers run-level
// faults only; per-step failures are reported through the summary.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	if e.cfg.Settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.Settings.Timeout)*time.Second)
		defer cancel()
	}

	summary := &Summary{}
	stopped := false

	for i := range e.cfg.Steps {
		step := &e.cfg.Steps[i]
		log := e.log.WithFields(map[string]any{"step": step.ID, "type": step.Type})

		if stopped {
			summary.add(skipped(step.ID, "skipped after earlier failure"))
			continue
		}
		if !step.Enabled {
			log.Debug("step disabled, skipping")
			summary.add(skipped(step.ID, "step disabled"))
			continue
		}

		result := e.runStep(ctx, step, log)
		summary.add(result)

		if result.Status == model.StatusFailed && !e.opts.ContinueOnError {
			log.Warn("stopping run after failed step")
			stopped = true
		}
	}

	return summary, nil
}

func (e *Engine) runStep(ctx context.Context, step *config.Step, log *logger.Logger) *model.StepResult {
	started := time.Now()
	finish := func(r *model.StepResult) *model.StepResult {
		r.Duration = time.Since(started)
		if r.Timestamp.IsZero() {
			r.Timestamp = time.Now()
		}
		return r
	}

	p, err := e.lookup(step.Type)
	if err != nil {
		log.Error(err, "no plugin for step type")
		return finish(failed(step.ID, "no plugin for step type", err))
	}

	eval, err := p.Evaluate(ctx, step)
	if err != nil {
		log.Error(err, "evaluation failed")
		return finish(failed(step.ID, "evaluation failed", err))
	}

	if eval.CurrentState == model.StatusBlocked {
		log.Warn("step blocked")
		return finish(failed(step.ID, eval.Message, nil))
	}

	if !eval.RequiresAction {
		log.Debug("step already satisfied")
		return finish(&model.StepResult{
			StepID:  step.ID,
			Status:  model.StatusSuccess,
			Message: eval.Message,
		})
	}

	if e.opts.DryRun {
		status := model.StatusWouldUpdate
		if eval.CurrentState == model.StatusMissing {
			status = model.StatusWouldCreate
		}
		log.Info("dry-run: pending changes detected")
		return finish(&model.StepResult{
			StepID:  step.ID,
			Status:  status,
			Message: eval.Message,
			Changes: eval.Changes,
		})
	}

	result, err := p.Apply(ctx, eval, step)
	if err != nil {
		log.Error(err, "apply failed")
		if result == nil {
			result = failed(step.ID, "apply failed", err)
		}
		result.Status = model.StatusFailed
		if result.Error == nil {
			result.Error = err
		}
		return finish(result)
	}

	log.Info("step applied")
	return finish(result)
}

func (s *Summary) add(r *model.StepResult) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case model.StatusSuccess:
		s.Succeeded++
	case model.StatusFailed:
		s.Failed++
	case model.StatusSkipped:
		s.Skipped++
	case model.StatusWouldCreate, model.StatusWouldUpdate:
		s.Previewed++
	}
}

func skipped(stepID, message string) *model.StepResult {
	return &model.StepResult{
		StepID:    stepID,
		Status:    model.StatusSkipped,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func failed(stepID, message string, err error) *model.StepResult {
	return &model.StepResult{
		StepID:    stepID,
		Status:    model.StatusFailed,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}
