package perplexity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultSystemPrompt = "Eres un asistente de investigación. Responde de forma breve y factual, citando fechas cuando existan."

type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.perplexity.ai"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"sonar"`
	MaxTokens   int64         `envconfig:"MAX_TOKENS" split_words:"true" default:"800"`
	Temperature float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"20s"`
}

// Client is a knowledge/web search service reached through the OpenAI
// chat-completions protocol.
type Client struct {
	client       *openaisdk.Client
	model        string
	maxTokens    int64
	temperature  float64
	systemPrompt string
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("perplexity api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openaisdk.NewClient(opts...)

	return NewFromClient(&client, cfg), nil
}

func NewFromClient(client *openaisdk.Client, cfg Config) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "sonar"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &Client{
		client:       client,
		model:        model,
		maxTokens:    maxTokens,
		temperature:  cfg.Temperature,
		systemPrompt: defaultSystemPrompt,
	}
}

func (c *Client) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("search query is empty")
	}

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(c.systemPrompt),
			openaisdk.UserMessage(query),
		},
		Temperature:         openaisdk.Float(c.temperature),
		MaxCompletionTokens: openaisdk.Int(c.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("perplexity search: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("perplexity search: no choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
