package model

import (
	"time"

	"github.com/driftkit/driftkit/pkg/converge"
)

const (
	// StatusPending indicates a step has not started yet.
	StatusPending = "pending"
	// StatusRunning indicates a step is actively executing.
	StatusRunning = "running"
	// StatusSuccess marks a successful step execution.
	StatusSuccess = "success"
	// StatusSkipped indicates the runner skipped the step.
	StatusSkipped = "skipped"
	// StatusFailed marks a failure during step execution.
	StatusFailed = "failed"
	// StatusWouldCreate indicates dry-run would create a resource.
	StatusWouldCreate = "would_create"
	// StatusWouldUpdate indicates dry-run would update a resource.
	StatusWouldUpdate = "would_update"
)

// StepResult captures the outcome of executing a single step. It is
// the return contract handed back to the host agent: constructed fresh
// per invocation, never persisted.
type StepResult struct {
	StepID    string
	Status    string
	Message   string
	Changes   map[string]any
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

// FromConverge translates a converge result into the step-result
// contract. A preview outcome maps to would_create when the change
// record is a creation record, would_update otherwise.
func FromConverge(stepID string, res converge.Result) *StepResult {
	status := StatusFailed
	switch res.Outcome {
	case converge.OutcomeSucceeded:
		status = StatusSuccess
	case converge.OutcomePreview:
		status = StatusWouldUpdate
		if isCreationRecord(res.Changes) {
			status = StatusWouldCreate
		}
	}

	return &StepResult{
		StepID:    stepID,
		Status:    status,
		Message:   res.Comment,
		Changes:   res.Changes,
		Timestamp: time.Now(),
	}
}

func isCreationRecord(changes map[string]any) bool {
	if len(changes) != 2 {
		return false
	}
	old, hasOld := changes["old"]
	_, hasNew := changes["new"]
	return hasOld && hasNew && old == nil
}
