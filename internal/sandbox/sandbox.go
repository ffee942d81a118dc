// Package sandbox wraps the remote execution environment the agent works in.
//
// The connection to a sandbox is deliberately not cached: every use resolves
// the opaque sandbox ID to a live session again, because a connection object
// cannot be trusted to survive a workflow checkpoint boundary.
package sandbox

import (
	"context"
	"fmt"
	"time"

	qsandbox "github.com/qiniu/go-sdk/v7/sandbox"
)

// CommandOpts bounds and observes a single shell command execution.
type CommandOpts struct {
	Timeout  time.Duration
	OnStdout func(data []byte)
	OnStderr func(data []byte)
}

// CommandOutput is the captured result of a completed shell command.
type CommandOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Error carries the provider-reported failure reason, empty on success.
	Error string
}

// Failed reports whether the command ran but did not succeed.
func (o *CommandOutput) Failed() bool {
	return o.ExitCode != 0 || o.Error != ""
}

// Session is a live connection to one sandbox. It is valid only for the
// duration of the step that resolved it.
type Session interface {
	RunCommand(ctx context.Context, command string, opts CommandOpts) (*CommandOutput, error)
	WriteFile(ctx context.Context, path, content string) error
	ReadFile(ctx context.Context, path string) (string, error)
	Host(port int) string
}

// Provider creates sandboxes and resolves their IDs to live sessions.
type Provider interface {
	Create(ctx context.Context, templateID string, timeout time.Duration) (string, error)
	Resolve(ctx context.Context, sandboxID string) (Session, error)
}

// QiniuProvider is the production Provider backed by the Qiniu sandbox service.
type QiniuProvider struct {
	client *qsandbox.Client
}

func NewQiniuProvider(apiKey string) (*QiniuProvider, error) {
	client, err := qsandbox.NewClient(&qsandbox.Config{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox client: %w", err)
	}
	return &QiniuProvider{client: client}, nil
}

func (p *QiniuProvider) Create(ctx context.Context, templateID string, timeout time.Duration) (string, error) {
	timeoutSec := int32(timeout.Seconds())
	sb, _, err := p.client.CreateAndWait(ctx, qsandbox.CreateParams{
		TemplateID: templateID,
		Timeout:    &timeoutSec,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create sandbox from template %q: %w", templateID, err)
	}
	return sb.ID(), nil
}

// Resolve reconnects to an existing sandbox. Failure here means the sandbox
// expired or the network is gone; the state inside it is unrecoverable, so
// callers must treat this as fatal rather than retry silently.
func (p *QiniuProvider) Resolve(ctx context.Context, sandboxID string) (Session, error) {
	sb, err := p.client.Connect(ctx, sandboxID, qsandbox.ConnectParams{})
	if err != nil {
		return nil, fmt.Errorf("sandbox %s unavailable: %w", sandboxID, err)
	}
	return &qiniuSession{sb: sb}, nil
}

type qiniuSession struct {
	sb *qsandbox.Sandbox
}

func (s *qiniuSession) RunCommand(ctx context.Context, command string, opts CommandOpts) (*CommandOutput, error) {
	var cmdOpts []qsandbox.CommandOption
	if opts.Timeout > 0 {
		cmdOpts = append(cmdOpts, qsandbox.WithTimeout(opts.Timeout))
	}
	if opts.OnStdout != nil {
		cmdOpts = append(cmdOpts, qsandbox.WithOnStdout(opts.OnStdout))
	}
	if opts.OnStderr != nil {
		cmdOpts = append(cmdOpts, qsandbox.WithOnStderr(opts.OnStderr))
	}

	result, err := s.sb.Commands().Run(ctx, command, cmdOpts...)
	if err != nil {
		return nil, err
	}

	return &CommandOutput{
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		ExitCode: result.ExitCode,
		Error:    result.Error,
	}, nil
}

func (s *qiniuSession) WriteFile(ctx context.Context, path, content string) error {
	if _, err := s.sb.Files().Write(ctx, path, []byte(content)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *qiniuSession) ReadFile(ctx context.Context, path string) (string, error) {
	data, err := s.sb.Files().Read(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func (s *qiniuSession) Host(port int) string {
	return s.sb.GetHost(port)
}
