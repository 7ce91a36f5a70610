package llm

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	openrouterx "github.com/tanpawarit/vizta/pkg/openrouter"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// Purpose selects per-caller model overrides.
type Purpose string

const (
	PurposeSocial     Purpose = "social"
	PurposePersonal   Purpose = "personal"
	PurposeClassifier Purpose = "classifier"
)

type Config struct {
	FallbackProvider string  `envconfig:"FALLBACK_PROVIDER" split_words:"true" default:"openrouter"`
	FallbackModel    string  `envconfig:"FALLBACK_MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	AnthropicAPIKey  string  `envconfig:"ANTHROPIC_API_KEY" split_words:"true"`
	Temperature      float64 `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	MaxTokens        int     `envconfig:"MAX_TOKENS" split_words:"true" default:"1500"`

	SocialModel     string `envconfig:"SOCIAL_MODEL" split_words:"true"`
	PersonalModel   string `envconfig:"PERSONAL_MODEL" split_words:"true"`
	ClassifierModel string `envconfig:"CLASSIFIER_MODEL" split_words:"true"`
}

func (c Config) Validate() error {
	switch strings.TrimSpace(c.FallbackProvider) {
	case ProviderOpenRouter:
	case ProviderAnthropic:
		if strings.TrimSpace(c.AnthropicAPIKey) == "" {
			return fmt.Errorf("%w: anthropic api key is required for the anthropic fallback", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unsupported fallback provider %q", contractx.ErrValidation, c.FallbackProvider)
	}
	if strings.TrimSpace(c.FallbackModel) == "" {
		return fmt.Errorf("%w: fallback model is required", contractx.ErrValidation)
	}
	return nil
}

// Options returns the chat options shared by reasoning calls.
func (c Config) Options() contractx.ChatOptions {
	return contractx.ChatOptions{
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
}

// PrimaryModel returns the OpenRouter model used for purpose p.
func (c Config) PrimaryModel(p Purpose, base openrouterx.Config) string {
	var override string
	switch p {
	case PurposeSocial:
		override = c.SocialModel
	case PurposePersonal:
		override = c.PersonalModel
	case PurposeClassifier:
		override = c.ClassifierModel
	}
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return strings.TrimSpace(base.Model)
}

// Build returns the primary and fallback chat models for purpose p.
func Build(ctx context.Context, cfg Config, router openrouterx.Config, p Purpose) (contractx.ChatModel, contractx.ChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	primaryCfg := router.WithModel(cfg.PrimaryModel(p, router))
	einoModel, err := primaryCfg.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create primary model for %s: %v", contractx.ErrModelInvoke, p, err)
	}
	primary := NewEinoChat(einoModel, primaryCfg.Model)

	var fallback contractx.ChatModel
	switch cfg.FallbackProvider {
	case ProviderAnthropic:
		fallback = NewAnthropicChat(cfg.AnthropicAPIKey, cfg.FallbackModel)
	default:
		client := openrouterx.NewClient(router)
		if client == nil {
			return nil, nil, fmt.Errorf("%w: openrouter api key is required for the fallback model", contractx.ErrValidation)
		}
		fallback = NewOpenAIChat(client, cfg.FallbackModel)
	}

	return primary, fallback, nil
}
