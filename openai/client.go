package openai

import (
	"context"
	"os"
	"strconv"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"praxis-backend/sessions"
)

// defaultTimeout bounds every completion call; provider latency must not pin a
// request handler indefinitely.
const defaultTimeout = 60 * time.Second

// Completer is the slice of the LLM provider the tutor handlers need.
// Implementations return provider errors as-is; retries are the SDK's business,
// not ours.
type Completer interface {
	Complete(ctx context.Context, history []sessions.ContextMessage, systemPrompt string, maxTokens int, temperature float32) (string, error)
}

type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// NewClient builds a client from OPENAI_API_KEY / OPENAI_MODEL /
// OPENAI_TIMEOUT_SECONDS.
func NewClient() *Client {
	key := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := defaultTimeout
	if raw := os.Getenv("OPENAI_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	return &Client{api: openai.NewClient(key), model: model, timeout: timeout}
}

func (c *Client) Complete(ctx context.Context, history []sessions.ContextMessage, systemPrompt string, maxTokens int, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == sessions.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
