package agent

import (
	"context"
	"strings"

	"github.com/openai/openai-go"

	"forge/internal/logging"
)

const (
	fallbackTitle    = "Fragment"
	fallbackResponse = "Here you go"
)

// Summarizer turns a raw task summary into the user-facing title and
// response message. Both generators degrade to fixed fallbacks rather than
// failing the workflow.
type Summarizer struct {
	chat  ChatClient
	model string
}

func NewSummarizer(chat ChatClient, model string) *Summarizer {
	return &Summarizer{chat: chat, model: model}
}

func (s *Summarizer) GenerateTitle(ctx context.Context, summary string) string {
	title, err := s.generate(ctx, titleSystemPrompt, summary)
	if err != nil || title == "" {
		logging.Warn("title generation failed, using fallback: %v", err)
		return fallbackTitle
	}
	return title
}

func (s *Summarizer) GenerateResponse(ctx context.Context, summary string) string {
	response, err := s.generate(ctx, responseSystemPrompt, summary)
	if err != nil || response == "" {
		logging.Warn("response generation failed, using fallback: %v", err)
		return fallbackResponse
	}
	return response
}

func (s *Summarizer) generate(ctx context.Context, system, summary string) (string, error) {
	completion, err := s.chat.Complete(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(summary),
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
