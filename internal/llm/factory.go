package llm

import (
	"net/http"

	"finsight/internal/config"
)

// FromConfig builds the Completer for the configured provider.
func FromConfig(cfg *config.Config) Completer {
	if cfg.LLMProvider == config.ProviderAnthropic {
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}
	return NewClient(cfg.LLMEndpoint, cfg.LLMAPIKey, cfg.LLMModel, &http.Client{Timeout: cfg.LLMTimeout})
}
