package workflow

import (
	"context"
	"fmt"

	"forge/internal/agent"
	"forge/internal/db/repositories"
	"forge/pkg/models"
)

const failureMessage = "The agent failed to complete the task. Please try again."

// finalize classifies the run, resolves the preview URL and writes the
// outcome message. The save is a checkpointed step, so a retried run never
// produces a second outcome row.
func (w *Workflow) finalize(ctx context.Context, runner *StepRunner, projectID int64, sandboxID string, state *agent.State) (*models.RunResult, error) {
	failed := state.Summary == "" || len(state.Files) == 0

	url, err := RunStep(ctx, runner, "get-sandbox-url", func(ctx context.Context) (string, error) {
		sess, err := w.provider.Resolve(ctx, sandboxID)
		if err != nil {
			return "", err
		}
		return "https://" + sess.Host(w.cfg.AppPort), nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolving sandbox url failed: %w", err)
	}

	title := "Fragment"
	content := failureMessage
	if !failed {
		summarizer := agent.NewSummarizer(w.chat, w.cfg.AITitleModel)
		title = summarizer.GenerateTitle(ctx, state.Summary)
		content = summarizer.GenerateResponse(ctx, state.Summary)
	}

	_, err = RunStep(ctx, runner, "save-result", func(ctx context.Context) (int64, error) {
		if failed {
			msg, err := w.repos.Messages.Create(ctx, projectID, failureMessage, models.MessageRoleAssistant, models.MessageTypeError, nil)
			if err != nil {
				return 0, err
			}
			return msg.ID, nil
		}
		msg, err := w.repos.Messages.Create(ctx, projectID, content, models.MessageRoleAssistant, models.MessageTypeResult, &repositories.FragmentInput{
			SandboxURL: url,
			Title:      title,
			Files:      state.Files.Clone(),
		})
		if err != nil {
			return 0, err
		}
		return msg.ID, nil
	})
	if err != nil {
		return nil, fmt.Errorf("saving result failed: %w", err)
	}

	return &models.RunResult{
		URL:     url,
		Title:   title,
		Files:   state.Files.Clone(),
		Summary: state.Summary,
	}, nil
}
