// Package provider builds collaborator clients from configuration.
package provider

import (
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"

	"github.com/petasbytes/theraia/internal/config"
	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/log"
	"github.com/petasbytes/theraia/internal/runner"
)

const DefaultModel = anthropic.ModelClaude3_7SonnetLatest

// NewAnthropicClient returns a client; the API key comes from ANTHROPIC_API_KEY
// unless opts override it.
func NewAnthropicClient(opts ...option.RequestOption) *anthropic.Client {
	c := anthropic.NewClient(opts...)
	return &c
}

// NewOpenAIClient returns a client for the configured OpenAI-compatible endpoint.
// httpClient may be nil.
func NewOpenAIClient(cfg *config.Config, httpClient *http.Client) *openai.Client {
	cc := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		cc.BaseURL = cfg.OpenAIBaseURL
	}
	if httpClient != nil {
		cc.HTTPClient = httpClient
	}
	return openai.NewClientWithConfig(cc)
}

// NewCompleter picks the runner named by cfg.Provider.
func NewCompleter(cfg *config.Config) (flows.Completer, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic, "":
		model := anthropic.Model(cfg.Model)
		if model == "" {
			model = DefaultModel
		}
		log.Info().Str("provider", "anthropic").Str("model", string(model)).Msg("collaborator configured")
		return runner.NewAnthropic(NewAnthropicClient(), model, cfg.HistoryBudget), nil
	case config.ProviderOpenAI:
		log.Info().Str("provider", "openai").Str("model", cfg.OpenAIModel).Msg("collaborator configured")
		return runner.NewOpenAI(NewOpenAIClient(cfg, nil), cfg.OpenAIModel, cfg.HistoryBudget), nil
	default:
		return nil, fmt.Errorf("provider: unknown provider %q", cfg.Provider)
	}
}
