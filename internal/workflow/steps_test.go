package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forge/internal/db"
	"forge/internal/db/repositories"
)

func newTestRunner(t *testing.T, runID string) *StepRunner {
	t.Helper()
	database := db.NewTest(t)
	repos := repositories.New(database)
	return NewStepRunner(repos.WorkflowSteps, runID)
}

func TestStepRunnerExecutesOnce(t *testing.T) {
	runner := newTestRunner(t, "run-1")
	ctx := context.Background()

	calls := 0
	fn := func(ctx context.Context) (string, error) {
		calls++
		return "output", nil
	}

	first, err := RunStep(ctx, runner, "provision", fn)
	require.NoError(t, err)
	assert.Equal(t, "output", first)

	second, err := RunStep(ctx, runner, "provision", fn)
	require.NoError(t, err)
	assert.Equal(t, "output", second)
	assert.Equal(t, 1, calls, "completed step must replay, not re-execute")
}

func TestStepRunnerRetriesFailedStep(t *testing.T) {
	runner := newTestRunner(t, "run-1")
	ctx := context.Background()

	calls := 0
	fn := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient failure")
		}
		return "recovered", nil
	}

	_, err := RunStep(ctx, runner, "provision", fn)
	require.Error(t, err)

	value, err := RunStep(ctx, runner, "provision", fn)
	require.NoError(t, err)
	assert.Equal(t, "recovered", value)
	assert.Equal(t, 2, calls)

	// Now completed, so a third call replays.
	value, err = RunStep(ctx, runner, "provision", fn)
	require.NoError(t, err)
	assert.Equal(t, "recovered", value)
	assert.Equal(t, 2, calls)
}

func TestStepRunnerIsolatesRuns(t *testing.T) {
	database := db.NewTest(t)
	repos := repositories.New(database)
	ctx := context.Background()

	runnerA := NewStepRunner(repos.WorkflowSteps, "run-a")
	runnerB := NewStepRunner(repos.WorkflowSteps, "run-b")

	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	a, err := RunStep(ctx, runnerA, "step", fn)
	require.NoError(t, err)
	b, err := RunStep(ctx, runnerB, "step", fn)
	require.NoError(t, err)

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b, "same step name in another run must execute independently")
}

func TestStepRunnerPersistsStructuredOutput(t *testing.T) {
	runner := newTestRunner(t, "run-1")
	ctx := context.Background()

	type payload struct {
		Files map[string]string `json:"files"`
	}

	want := payload{Files: map[string]string{"app/page.tsx": "export default Page"}}
	got, err := RunStep(ctx, runner, "write", func(ctx context.Context) (payload, error) {
		return want, nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Replay decodes the stored JSON rather than calling fn.
	got, err = RunStep(ctx, runner, "write", func(ctx context.Context) (payload, error) {
		return payload{}, errors.New("must not run")
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStepRunnerRawOutput(t *testing.T) {
	runner := newTestRunner(t, "run-1")
	ctx := context.Background()

	raw, err := runner.Run(ctx, "step", func(ctx context.Context) (json.RawMessage, error) {
		return json.RawMessage(`{"ok":true}`), nil
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}
