package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	apperrors "finsight/internal/errors"
)

// AnthropicClient runs completions against the Anthropic Messages API.
// System messages become the system prompt; the rest keep their order.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates an AnthropicClient. Retries are disabled so a
// failure surfaces after a single attempt.
func NewAnthropicClient(apiKey, model string, opts ...option.RequestOption) *AnthropicClient {
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	return &AnthropicClient{
		client: anthropic.NewClient(append(base, opts...)...),
		model:  model,
	}
}

// Complete sends req and concatenates the text blocks of the reply.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := Checkpoint(ctx); err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	if err := Checkpoint(ctx); err != nil {
		return "", err
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		if ctxErr := Checkpoint(ctx); ctxErr != nil {
			return "", ctxErr
		}
		return "", apperrors.Wrap(apperrors.ErrAPI, fmt.Errorf("calling anthropic messages: %w", err))
	}

	if err := Checkpoint(ctx); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", apperrors.Wrap(apperrors.ErrAPI, fmt.Errorf("anthropic reply has no text content"))
	}
	return b.String(), nil
}
