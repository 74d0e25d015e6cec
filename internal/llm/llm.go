// Package llm talks to chat-completion services. Every Completer returns the
// assistant text of a single completion or an *errors.AppError carrying
// ErrAPI, ErrParse or ErrCancelled.
package llm

import (
	"context"
	"errors"

	apperrors "finsight/internal/errors"
)

// Role is the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Fixed generation parameters.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
)

// Message is one prompt message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// NewRequest builds a request with the default temperature and token cap.
func NewRequest(messages ...Message) Request {
	return Request{Messages: messages, Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens}
}

// Completer runs one completion.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Checkpoint returns an ErrCancelled AppError if ctx has been cancelled.
// A passed deadline is reported as ErrAPI.
func Checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return contextError(err)
	}
	return nil
}

func contextError(err error) error {
	if errors.Is(err, context.Canceled) {
		return apperrors.Wrap(apperrors.ErrCancelled, err)
	}
	return apperrors.Wrap(apperrors.ErrAPI, err)
}

// IsCancelled reports whether err is a cancellation outcome.
func IsCancelled(err error) bool {
	return errors.Is(err, apperrors.ErrCancelled) || errors.Is(err, context.Canceled)
}
