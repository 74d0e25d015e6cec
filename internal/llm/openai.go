package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	apperrors "finsight/internal/errors"
)

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient.
func NewClient(endpoint, apiKey, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Complete sends req and returns choices[0].message.content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := Checkpoint(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrAPI, fmt.Errorf("marshaling completion request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrAPI, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	if err := Checkpoint(ctx); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := Checkpoint(ctx); ctxErr != nil {
			return "", ctxErr
		}
		return "", apperrors.Wrap(apperrors.ErrAPI, fmt.Errorf("calling completion endpoint: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := Checkpoint(ctx); ctxErr != nil {
			return "", ctxErr
		}
		return "", apperrors.Wrap(apperrors.ErrAPI, fmt.Errorf("reading completion response: %w", err))
	}

	if err := Checkpoint(ctx); err != nil {
		return "", err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := gjson.GetBytes(raw, "error.message").String()
		return "", apperrors.Wrap(apperrors.ErrAPI, fmt.Errorf("completion endpoint: unexpected status %d: %s", resp.StatusCode, msg))
	}

	if err := Checkpoint(ctx); err != nil {
		return "", err
	}
	return extractContent(raw)
}

// extractContent pulls the assistant text out of a completion body. An
// error object in the body is reported even on a 2xx status.
func extractContent(raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", apperrors.Wrap(apperrors.ErrAPI, fmt.Errorf("completion response is not JSON"))
	}
	if apiErr := gjson.GetBytes(raw, "error"); apiErr.Exists() {
		msg := "Unknown error"
		if m := apiErr.Get("message"); m.Exists() {
			msg = m.String()
		}
		return "", apperrors.Wrap(apperrors.ErrAPI, fmt.Errorf("completion endpoint error: %s", msg))
	}
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() || content.String() == "" {
		return "", apperrors.Wrap(apperrors.ErrAPI, fmt.Errorf("completion response has no choices[0].message.content"))
	}
	return content.String(), nil
}
