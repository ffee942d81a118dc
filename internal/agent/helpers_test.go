package agent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/openai/openai-go"

	"forge/internal/sandbox"
)

// memSteps executes step functions directly and remembers outputs by name,
// replaying a completed step like the durable runner would.
type memSteps struct {
	outputs map[string]json.RawMessage
	calls   int
}

func newMemSteps() *memSteps {
	return &memSteps{outputs: make(map[string]json.RawMessage)}
}

func (m *memSteps) Run(ctx context.Context, name string, fn func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if out, ok := m.outputs[name]; ok {
		return out, nil
	}
	m.calls++
	out, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	m.outputs[name] = out
	return out, nil
}

type fakeSession struct {
	commands   []string
	runResult  *sandbox.CommandOutput
	runErr     error
	files      map[string]string
	writeFails map[string]error
	host       string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		runResult: &sandbox.CommandOutput{Stdout: "ok"},
		files:     make(map[string]string),
		host:      "sb-1.example.dev",
	}
}

func (s *fakeSession) RunCommand(ctx context.Context, command string, opts sandbox.CommandOpts) (*sandbox.CommandOutput, error) {
	s.commands = append(s.commands, command)
	if s.runErr != nil {
		if opts.OnStdout != nil {
			opts.OnStdout([]byte(s.runResult.Stdout))
		}
		if opts.OnStderr != nil {
			opts.OnStderr([]byte(s.runResult.Stderr))
		}
		return nil, s.runErr
	}
	return s.runResult, nil
}

func (s *fakeSession) WriteFile(ctx context.Context, path, content string) error {
	if err := s.writeFails[path]; err != nil {
		return err
	}
	s.files[path] = content
	return nil
}

func (s *fakeSession) ReadFile(ctx context.Context, path string) (string, error) {
	content, ok := s.files[path]
	if !ok {
		return "", errors.New("no such file: " + path)
	}
	return content, nil
}

func (s *fakeSession) Host(port int) string { return s.host }

type fakeProvider struct {
	session    *fakeSession
	resolveErr error
}

func (p *fakeProvider) Create(ctx context.Context, templateID string, timeout time.Duration) (string, error) {
	return "sb-1", nil
}

func (p *fakeProvider) Resolve(ctx context.Context, sandboxID string) (sandbox.Session, error) {
	if p.resolveErr != nil {
		return nil, p.resolveErr
	}
	return p.session, nil
}

// fakeChat replays a scripted sequence of completions.
type fakeChat struct {
	responses []*openai.ChatCompletion
	requests  []openai.ChatCompletionNewParams
	err       error
}

func (c *fakeChat) Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	c.requests = append(c.requests, params)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return textCompletion("no script left"), nil
	}
	next := c.responses[0]
	c.responses = c.responses[1:]
	return next, nil
}

func textCompletion(text string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: text}},
		},
	}
}

func toolCompletion(text string, calls ...openai.ChatCompletionMessageToolCall) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: text, ToolCalls: calls}},
		},
	}
}

func toolCall(id, name string, args any) openai.ChatCompletionMessageToolCall {
	encoded, _ := json.Marshal(args)
	return openai.ChatCompletionMessageToolCall{
		ID: id,
		Function: openai.ChatCompletionMessageToolCallFunction{
			Name:      name,
			Arguments: string(encoded),
		},
	}
}

func newTestToolbox(provider sandbox.Provider, state *State) *Toolbox {
	return NewToolbox(newMemSteps(), provider, "sb-1", state, time.Minute)
}
