package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"forge/internal/logging"
	"forge/internal/sandbox"
	"forge/pkg/models"
)

const (
	toolTerminal            = "terminal"
	toolCreateOrUpdateFiles = "createOrUpdateFiles"
	toolReadFiles           = "readFiles"
)

// Steps is the checkpointing facility tool dispatch runs under. Each tool
// invocation becomes one durable step, so a retried workflow never repeats a
// sandbox side effect that already happened.
type Steps interface {
	Run(ctx context.Context, name string, fn func(context.Context) (json.RawMessage, error)) (json.RawMessage, error)
}

// Toolbox exposes the three sandbox capabilities to the model and dispatches
// its tool calls. Tool-level failures are reported back to the model as plain
// text so it can adapt; only a sandbox that cannot be resolved at all is
// surfaced as an error, which aborts the run.
type Toolbox struct {
	steps          Steps
	provider       sandbox.Provider
	sandboxID      string
	state          *State
	commandTimeout time.Duration

	// seq disambiguates repeated invocations of the same tool within a run.
	// Assigned in request order, so a replayed run maps the same invocation
	// to the same step name.
	seq int
}

func NewToolbox(steps Steps, provider sandbox.Provider, sandboxID string, state *State, commandTimeout time.Duration) *Toolbox {
	return &Toolbox{
		steps:          steps,
		provider:       provider,
		sandboxID:      sandboxID,
		state:          state,
		commandTimeout: commandTimeout,
	}
}

// Definitions returns the tool schemas advertised to the model.
func (tb *Toolbox) Definitions() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        toolTerminal,
				Description: openai.String("Use the terminal to run commands"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"command": map[string]any{"type": "string"},
					},
					"required": []string{"command"},
				},
			},
		},
		{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        toolCreateOrUpdateFiles,
				Description: openai.String("Create or update files in the sandbox"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"files": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"path":    map[string]any{"type": "string"},
									"content": map[string]any{"type": "string"},
								},
								"required": []string{"path", "content"},
							},
						},
					},
					"required": []string{"files"},
				},
			},
		},
		{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        toolReadFiles,
				Description: openai.String("Read files from the sandbox"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"files": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []string{"files"},
				},
			},
		},
	}
}

// Dispatch executes one model tool call and returns its output as text.
// The returned error is reserved for workflow-fatal conditions.
func (tb *Toolbox) Dispatch(ctx context.Context, call openai.ChatCompletionMessageToolCall) (string, error) {
	switch call.Function.Name {
	case toolTerminal:
		var args struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("invalid terminal arguments: %v", err), nil
		}
		return tb.runTerminal(ctx, args.Command)

	case toolCreateOrUpdateFiles:
		var args struct {
			Files []filePayload `json:"files"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("invalid createOrUpdateFiles arguments: %v", err), nil
		}
		return tb.createOrUpdateFiles(ctx, args.Files)

	case toolReadFiles:
		var args struct {
			Files []string `json:"files"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("invalid readFiles arguments: %v", err), nil
		}
		return tb.readFiles(ctx, args.Files)

	default:
		return fmt.Sprintf("unknown tool %q", call.Function.Name), nil
	}
}

type filePayload struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (tb *Toolbox) stepName(tool string) string {
	tb.seq++
	return fmt.Sprintf("%s.%d", tool, tb.seq)
}

func (tb *Toolbox) runTerminal(ctx context.Context, command string) (string, error) {
	name := tb.stepName(toolTerminal)

	raw, err := tb.steps.Run(ctx, name, func(ctx context.Context) (json.RawMessage, error) {
		logging.Debug("executing command: %s", command)

		session, err := tb.provider.Resolve(ctx, tb.sandboxID)
		if err != nil {
			return nil, err
		}

		var stdout, stderr strings.Builder
		output, err := session.RunCommand(ctx, command, sandbox.CommandOpts{
			Timeout:  tb.commandTimeout,
			OnStdout: func(data []byte) { stdout.Write(data) },
			OnStderr: func(data []byte) { stderr.Write(data) },
		})
		if err != nil {
			// Returned as tool output, not an error: the agent is expected
			// to read the failure and try a different command.
			return json.Marshal(fmt.Sprintf("command failed: %v\nstdout: %s\nstderr: %s",
				err, stdout.String(), stderr.String()))
		}
		if output.Failed() {
			return json.Marshal(fmt.Sprintf("command failed with exit code %d: %s\nstdout: %s\nstderr: %s",
				output.ExitCode, output.Error, output.Stdout, output.Stderr))
		}
		return json.Marshal(output.Stdout)
	})
	if err != nil {
		return "", err
	}

	var result string
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode terminal step output: %w", err)
	}
	return result, nil
}

// writeFilesResult is the checkpointed output of one write batch. Files holds
// exactly the pairs that were durably applied; Failure is non-empty when the
// batch stopped partway.
type writeFilesResult struct {
	Files   models.FileMap `json:"files"`
	Failure string         `json:"failure,omitempty"`
}

func (tb *Toolbox) createOrUpdateFiles(ctx context.Context, files []filePayload) (string, error) {
	name := tb.stepName(toolCreateOrUpdateFiles)

	raw, err := tb.steps.Run(ctx, name, func(ctx context.Context) (json.RawMessage, error) {
		logging.Debug("writing %d files to sandbox", len(files))

		session, err := tb.provider.Resolve(ctx, tb.sandboxID)
		if err != nil {
			return nil, err
		}

		updated := tb.state.Files.Clone()
		for _, file := range files {
			if err := session.WriteFile(ctx, file.Path, file.Content); err != nil {
				// Keep what was applied before the failure; the model sees
				// the error and decides what to do about the remainder.
				return json.Marshal(writeFilesResult{
					Files:   updated,
					Failure: fmt.Sprintf("failed writing %s: %v", file.Path, err),
				})
			}
			updated[file.Path] = file.Content
		}
		return json.Marshal(writeFilesResult{Files: updated})
	})
	if err != nil {
		return "", err
	}

	var result writeFilesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode file write step output: %w", err)
	}

	// The step produced a mapping, so it is safe to assign back onto shared
	// state; on a partial batch this is exactly the applied subset.
	if result.Files != nil {
		tb.state.Files = result.Files
	}

	if result.Failure != "" {
		return result.Failure, nil
	}
	return fmt.Sprintf("created or updated %d files", len(files)), nil
}

func (tb *Toolbox) readFiles(ctx context.Context, paths []string) (string, error) {
	name := tb.stepName(toolReadFiles)

	raw, err := tb.steps.Run(ctx, name, func(ctx context.Context) (json.RawMessage, error) {
		logging.Debug("reading %d files from sandbox", len(paths))

		session, err := tb.provider.Resolve(ctx, tb.sandboxID)
		if err != nil {
			return nil, err
		}

		contents := make([]filePayload, 0, len(paths))
		for _, path := range paths {
			content, err := session.ReadFile(ctx, path)
			if err != nil {
				return json.Marshal(fmt.Sprintf("failed reading files: %v", err))
			}
			contents = append(contents, filePayload{Path: path, Content: content})
		}
		encoded, err := json.Marshal(contents)
		if err != nil {
			return nil, err
		}
		return json.Marshal(string(encoded))
	})
	if err != nil {
		return "", err
	}

	var result string
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode file read step output: %w", err)
	}
	return result, nil
}
