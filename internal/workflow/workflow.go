package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"forge/internal/agent"
	"forge/internal/config"
	"forge/internal/db/repositories"
	"forge/internal/logging"
	"forge/internal/sandbox"
	"forge/pkg/models"
)

const historyLimit = 5

// Workflow runs one agent job end to end: sandbox provisioning, the agent
// loop, and outcome persistence, all checkpointed per run so a crashed or
// retried run resumes where it stopped instead of repeating side effects.
type Workflow struct {
	cfg      *config.Config
	repos    *repositories.Repositories
	provider sandbox.Provider
	chat     agent.ChatClient
}

func New(cfg *config.Config, repos *repositories.Repositories, provider sandbox.Provider, chat agent.ChatClient) *Workflow {
	return &Workflow{cfg: cfg, repos: repos, provider: provider, chat: chat}
}

// Execute processes a run event. An agent that gives up or runs out of rounds
// is a normal completion with an ERROR outcome; the returned error covers only
// infrastructure failures, which leave the run resumable under the same runID.
func (w *Workflow) Execute(ctx context.Context, event models.RunEvent) (*models.RunResult, error) {
	started := time.Now()

	runID := event.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	runner := NewStepRunner(w.repos.WorkflowSteps, runID)
	logging.Info("starting run %s for project %d", runID, event.ProjectID)

	sandboxID, err := RunStep(ctx, runner, "get-sandbox-id", func(ctx context.Context) (string, error) {
		return w.provider.Create(ctx, w.cfg.SandboxTemplate, w.cfg.SandboxTimeout)
	})
	if err != nil {
		return nil, fmt.Errorf("sandbox provisioning failed: %w", err)
	}

	history, err := RunStep(ctx, runner, "get-previous-messages", func(ctx context.Context) ([]*models.Message, error) {
		return w.repos.Messages.ListRecent(ctx, event.ProjectID, historyLimit)
	})
	if err != nil {
		return nil, fmt.Errorf("loading conversation history failed: %w", err)
	}

	keepalive := sandbox.StartKeepAlive(w.provider, sandboxID, w.cfg.HeartbeatPeriod)
	defer keepalive.Stop()

	state := agent.NewState()
	conv := agent.NewConversation(agent.HistoryFromMessages(history))
	toolbox := agent.NewToolbox(runner, w.provider, sandboxID, state, w.cfg.CommandTimeout)
	coder := agent.NewCoder(w.chat, w.cfg.AIModel, toolbox)
	network := agent.NewNetwork(coder, state, w.cfg.MaxRounds)

	phase, err := network.Run(ctx, event.Value, conv)
	if err != nil {
		return nil, fmt.Errorf("agent loop failed: %w", err)
	}
	logging.Info("run %s finished agent loop in phase %s with %d files", runID, phase, len(state.Files))

	result, err := w.finalize(ctx, runner, event.ProjectID, sandboxID, state)
	if err != nil {
		return nil, err
	}
	result.ProcessingTime = time.Since(started).Round(time.Millisecond).String()

	logging.Info("run %s completed in %s", runID, result.ProcessingTime)
	return result, nil
}
