package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forge/pkg/models"
)

func TestWorkflowStepGetMissing(t *testing.T) {
	repos := newTestRepos(t)

	_, err := repos.WorkflowSteps.Get(context.Background(), "run-1", "provision")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestWorkflowStepCompleteAndGet(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.WorkflowSteps.Complete(ctx, "run-1", "provision", json.RawMessage(`"sb-1"`)))

	step, err := repos.WorkflowSteps.Get(ctx, "run-1", "provision")
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusCompleted, step.Status)
	assert.JSONEq(t, `"sb-1"`, string(step.Output))
	assert.Nil(t, step.Error)
}

func TestWorkflowStepCompletedIsImmutable(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.WorkflowSteps.Complete(ctx, "run-1", "provision", json.RawMessage(`"first"`)))
	require.NoError(t, repos.WorkflowSteps.Complete(ctx, "run-1", "provision", json.RawMessage(`"second"`)))
	require.NoError(t, repos.WorkflowSteps.Fail(ctx, "run-1", "provision", "late failure"))

	step, err := repos.WorkflowSteps.Get(ctx, "run-1", "provision")
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusCompleted, step.Status)
	assert.JSONEq(t, `"first"`, string(step.Output), "a completed step's output never changes")
}

func TestWorkflowStepFailThenComplete(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.WorkflowSteps.Fail(ctx, "run-1", "provision", "timeout"))

	step, err := repos.WorkflowSteps.Get(ctx, "run-1", "provision")
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusFailed, step.Status)
	require.NotNil(t, step.Error)
	assert.Equal(t, "timeout", *step.Error)

	require.NoError(t, repos.WorkflowSteps.Complete(ctx, "run-1", "provision", json.RawMessage(`"sb-1"`)))

	step, err = repos.WorkflowSteps.Get(ctx, "run-1", "provision")
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusCompleted, step.Status)
	assert.Nil(t, step.Error, "recovering clears the recorded failure")
}

func TestWorkflowStepListForRun(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.WorkflowSteps.Complete(ctx, "run-1", "get-sandbox-id", json.RawMessage(`"sb-1"`)))
	require.NoError(t, repos.WorkflowSteps.Complete(ctx, "run-1", "terminal.1", json.RawMessage(`"ok"`)))
	require.NoError(t, repos.WorkflowSteps.Fail(ctx, "run-1", "save-result", "db locked"))
	require.NoError(t, repos.WorkflowSteps.Complete(ctx, "run-2", "get-sandbox-id", json.RawMessage(`"sb-2"`)))

	steps, err := repos.WorkflowSteps.ListForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, "get-sandbox-id", steps[0].Name)
	assert.Equal(t, "terminal.1", steps[1].Name)
	assert.Equal(t, "save-result", steps[2].Name)
}
