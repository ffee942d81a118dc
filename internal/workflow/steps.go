package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"forge/internal/db/repositories"
	"forge/internal/logging"
	"forge/pkg/models"
)

// StepRunner executes named units of work exactly once per workflow run.
// A step that already completed short-circuits to its persisted result, which
// makes side-effecting operations safe to retry at the workflow level: a
// retried run skips everything that already happened and resumes at the first
// step that has no completed record.
type StepRunner struct {
	steps *repositories.WorkflowStepRepo
	runID string
}

func NewStepRunner(steps *repositories.WorkflowStepRepo, runID string) *StepRunner {
	return &StepRunner{steps: steps, runID: runID}
}

// RunID returns the correlation identifier this runner checkpoints under.
func (r *StepRunner) RunID() string {
	return r.runID
}

// Run executes fn under the step name, persisting its JSON output. name must
// be unique within the run; re-entry with a completed name returns the stored
// output without invoking fn. A previously failed name is re-attempted.
func (r *StepRunner) Run(ctx context.Context, name string, fn func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	prior, err := r.steps.Get(ctx, r.runID, name)
	switch {
	case err == nil:
		if prior.Status == models.StepStatusCompleted {
			logging.Debug("step %q already completed for run %s, replaying stored result", name, r.runID)
			return prior.Output, nil
		}
		logging.Debug("step %q previously failed for run %s, re-attempting", name, r.runID)
	case errors.Is(err, sql.ErrNoRows):
		// first execution
	default:
		return nil, fmt.Errorf("failed to load step %q: %w", name, err)
	}

	output, err := fn(ctx)
	if err != nil {
		if failErr := r.steps.Fail(ctx, r.runID, name, err.Error()); failErr != nil {
			logging.Error("failed to record failure of step %q: %v", name, failErr)
		}
		return nil, err
	}

	if err := r.steps.Complete(ctx, r.runID, name, output); err != nil {
		return nil, err
	}
	return output, nil
}

// RunStep is the typed wrapper around StepRunner.Run: fn's return value is
// checkpointed as JSON and decoded again on replay.
func RunStep[T any](ctx context.Context, r *StepRunner, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := r.Run(ctx, name, func(ctx context.Context) (json.RawMessage, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode step %q output: %w", name, err)
		}
		return encoded, nil
	})
	if err != nil {
		return zero, err
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, fmt.Errorf("failed to decode step %q output: %w", name, err)
	}
	return value, nil
}
