package agent

import (
	"github.com/openai/openai-go"

	"forge/pkg/models"
)

// Conversation is the ordered model-facing transcript: seeded from persisted
// history, extended by the model's own turns and tool results during the run.
type Conversation struct {
	messages []openai.ChatCompletionMessageParamUnion
}

func NewConversation(seed []openai.ChatCompletionMessageParamUnion) *Conversation {
	return &Conversation{messages: seed}
}

// HistoryFromMessages maps persisted project messages into model turns.
func HistoryFromMessages(messages []*models.Message) []openai.ChatCompletionMessageParamUnion {
	turns := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.MessageRoleAssistant {
			turns = append(turns, openai.AssistantMessage(msg.Content))
		} else {
			turns = append(turns, openai.UserMessage(msg.Content))
		}
	}
	return turns
}

func (c *Conversation) AddUserText(text string) {
	c.messages = append(c.messages, openai.UserMessage(text))
}

func (c *Conversation) AddAssistantText(text string) {
	c.messages = append(c.messages, openai.AssistantMessage(text))
}

// AddAssistantToolCalls records an assistant turn that requested tool calls,
// preserving the provider-issued call IDs so the follow-up tool results pair
// up correctly.
func (c *Conversation) AddAssistantToolCalls(text string, calls []openai.ChatCompletionMessageToolCall) {
	assistant := openai.ChatCompletionAssistantMessageParam{
		Role: "assistant",
	}
	if text != "" {
		assistant.Content.OfString = openai.String(text)
	}
	for _, call := range calls {
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   call.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}
	c.messages = append(c.messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
}

func (c *Conversation) AddToolResult(callID, output string) {
	c.messages = append(c.messages, openai.ToolMessage(output, callID))
}

// Messages returns the transcript with the system prompt prepended.
func (c *Conversation) Messages(systemPrompt string) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(c.messages)+1)
	out = append(out, openai.SystemMessage(systemPrompt))
	out = append(out, c.messages...)
	return out
}

// Len reports the number of transcript entries, excluding the system prompt.
func (c *Conversation) Len() int {
	return len(c.messages)
}
