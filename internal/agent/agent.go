package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"forge/internal/logging"
)

// ChatClient is the minimal model-calling surface the agents need.
type ChatClient interface {
	Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// OpenAIClient adapts the OpenAI SDK (or any OpenAI-compatible endpoint) to
// ChatClient.
type OpenAIClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

func (c *OpenAIClient) Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}

// Coder is the model-plus-tools actor driven by the network controller.
type Coder struct {
	chat  ChatClient
	model string
	tools *Toolbox
}

func NewCoder(chat ChatClient, model string, tools *Toolbox) *Coder {
	return &Coder{chat: chat, model: model, tools: tools}
}

// Step runs one agent round: a single model call plus the dispatch of every
// tool call it requested, in request order. It returns the round's trailing
// text response, which the controller inspects for the terminal marker.
func (a *Coder) Step(ctx context.Context, conv *Conversation) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: conv.Messages(coderSystemPrompt),
		Tools:    a.tools.Definitions(),
	}

	completion, err := a.chat.Complete(ctx, params)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	message := completion.Choices[0].Message
	if len(message.ToolCalls) == 0 {
		conv.AddAssistantText(message.Content)
		return message.Content, nil
	}

	conv.AddAssistantToolCalls(message.Content, message.ToolCalls)
	for _, call := range message.ToolCalls {
		logging.Debug("dispatching tool call %s (%s)", call.Function.Name, call.ID)
		output, err := a.tools.Dispatch(ctx, call)
		if err != nil {
			return "", err
		}
		conv.AddToolResult(call.ID, output)
	}

	return message.Content, nil
}
