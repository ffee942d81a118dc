package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"forge/pkg/models"
)

type WorkflowStepRepo struct {
	db *sql.DB
}

func NewWorkflowStepRepo(db *sql.DB) *WorkflowStepRepo {
	return &WorkflowStepRepo{db: db}
}

// Get returns the step record for (runID, name), or sql.ErrNoRows.
func (r *WorkflowStepRepo) Get(ctx context.Context, runID, name string) (*models.WorkflowStep, error) {
	var step models.WorkflowStep
	var output sql.NullString
	var stepErr sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, name, status, output, error, created_at
		FROM workflow_steps
		WHERE run_id = ? AND name = ?`, runID, name).
		Scan(&step.ID, &step.RunID, &step.Name, &step.Status, &output, &stepErr, &step.CreatedAt)
	if err != nil {
		return nil, err
	}

	if output.Valid {
		step.Output = json.RawMessage(output.String)
	}
	if stepErr.Valid {
		step.Error = &stepErr.String
	}
	return &step, nil
}

// Complete records a step's resolved output. A previously failed attempt for
// the same name is overwritten; a completed one is never touched.
func (r *WorkflowStepRepo) Complete(ctx context.Context, runID, name string, output json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workflow_steps (run_id, name, status, output)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, name) DO UPDATE SET
			status = excluded.status,
			output = excluded.output,
			error = NULL
		WHERE workflow_steps.status = ?`,
		runID, name, models.StepStatusCompleted, string(output), models.StepStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to record step %q: %w", name, err)
	}
	return nil
}

// Fail records a step failure so operators can inspect the run afterwards.
func (r *WorkflowStepRepo) Fail(ctx context.Context, runID, name, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workflow_steps (run_id, name, status, error)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, name) DO UPDATE SET
			status = excluded.status,
			error = excluded.error
		WHERE workflow_steps.status = ?`,
		runID, name, models.StepStatusFailed, errMsg, models.StepStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to record step failure %q: %w", name, err)
	}
	return nil
}

// ListForRun returns every step recorded for a run in execution order.
func (r *WorkflowStepRepo) ListForRun(ctx context.Context, runID string) ([]*models.WorkflowStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, name, status, output, error, created_at
		FROM workflow_steps
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*models.WorkflowStep
	for rows.Next() {
		var step models.WorkflowStep
		var output, stepErr sql.NullString
		if err := rows.Scan(&step.ID, &step.RunID, &step.Name, &step.Status, &output, &stepErr, &step.CreatedAt); err != nil {
			return nil, err
		}
		if output.Valid {
			step.Output = json.RawMessage(output.String)
		}
		if stepErr.Valid {
			step.Error = &stepErr.String
		}
		steps = append(steps, &step)
	}
	return steps, rows.Err()
}
