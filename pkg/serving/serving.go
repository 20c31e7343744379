// Package serving connects to a model serving workspace through its
// OpenAI-compatible surface: an eino chat model for completions and an
// openai-go client as the workspace handle.
package serving

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const servingPath = "/serving-endpoints"

type Config struct {
	Host               string        `envconfig:"HOST" split_words:"true" required:"true"`
	Token              string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Endpoint           string        `envconfig:"ENDPOINT" split_words:"true" default:"databricks-claude-sonnet-4-5"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"1000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	MaxRetries         int           `envconfig:"MAX_RETRIES" split_words:"true" default:"2"`
}

func (c Config) Validate() error {
	host := strings.TrimSpace(c.Host)
	if host == "" {
		return errors.New("serving host is required")
	}
	u, err := url.ParseRequestURI(host)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid serving host %q", host)
	}
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("serving token is required")
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("serving endpoint is required")
	}
	return nil
}

// BaseURL is the OpenAI-compatible root under which endpoints are served.
func (c Config) BaseURL() string {
	host := strings.TrimRight(strings.TrimSpace(c.Host), "/")
	if strings.HasSuffix(host, servingPath) {
		return host
	}
	return host + servingPath
}

// WithEndpoint returns a copy of c targeting another endpoint.
func (c Config) WithEndpoint(endpoint string) Config {
	if v := strings.TrimSpace(endpoint); v != "" {
		c.Endpoint = v
	}
	return c
}

// LLM is a chat client bound to one serving endpoint.
type LLM struct {
	endpoint string
	model    model.BaseChatModel
}

func NewLLM(ctx context.Context, cfg Config) (*LLM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	maxTokens := cfg.MaxCompletionToken
	temperature := cfg.Temperature
	m, err := openaimodel.NewChatModel(ctx, &openaimodel.ChatModelConfig{
		BaseURL:     cfg.BaseURL(),
		APIKey:      strings.TrimSpace(cfg.Token),
		Model:       strings.TrimSpace(cfg.Endpoint),
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serving: create chat model: %w", err)
	}
	return NewLLMFromModel(cfg.Endpoint, m), nil
}

// NewLLMFromModel wraps an existing chat model.
func NewLLMFromModel(endpoint string, m model.BaseChatModel) *LLM {
	return &LLM{endpoint: strings.TrimSpace(endpoint), model: m}
}

func (l *LLM) Endpoint() string {
	return l.endpoint
}

// Chat sends messages to the endpoint and returns the assistant reply.
func (l *LLM) Chat(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("serving: chat requires at least one message")
	}
	msg, err := l.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("serving: endpoint=%s: %w", l.endpoint, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("serving: endpoint=%s returned no message", l.endpoint)
	}
	return msg, nil
}

// NewClient creates an OpenAI SDK client authenticated against the workspace.
func NewClient(cfg Config) (*openaisdk.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.Token)),
		option.WithBaseURL(cfg.BaseURL()),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openaisdk.NewClient(opts...)
	return &client, nil
}

// CheckAuthentication verifies the token by listing the served models.
func CheckAuthentication(ctx context.Context, client *openaisdk.Client) error {
	if client == nil {
		return errors.New("serving: client is nil")
	}
	if _, err := client.Models.List(ctx); err != nil {
		return fmt.Errorf("serving: authentication check failed: %w", err)
	}
	return nil
}
