package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	fgerrors "github.com/randalmurphal/healthops/pkg/flowgraph/errors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini-2024-07-18"

// ErrNoChoices is returned when the provider answers with no choices.
var ErrNoChoices = errors.New("no choices returned")

// ErrMissingAPIKey is returned by NewOpenAIClient without an API key.
var ErrMissingAPIKey = errors.New("openai api key not set")

// chatService is the slice of the OpenAI SDK the client uses.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIClient is a Client backed by the OpenAI chat completions API.
type OpenAIClient struct {
	chat        chatService
	model       string
	temperature float64
	maxTokens   int
}

// OpenAIOption configures an OpenAIClient.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// WithModel sets the default model name.
func WithModel(model string) OpenAIOption {
	return func(c *openAIConfig) { c.model = model }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithDefaultTemperature sets the temperature used when requests leave it unset.
func WithDefaultTemperature(t float64) OpenAIOption {
	return func(c *openAIConfig) { c.temperature = t }
}

// WithDefaultMaxTokens caps completion length when requests leave it unset.
func WithDefaultMaxTokens(n int) OpenAIOption {
	return func(c *openAIConfig) { c.maxTokens = n }
}

// WithRequestTimeout bounds each HTTP request.
func WithRequestTimeout(d time.Duration) OpenAIOption {
	return func(c *openAIConfig) { c.timeout = d }
}

// NewOpenAIClient creates a client for apiKey.
//
// SDK-level retries are disabled; wrap the client with WithRetry to retry.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := openAIConfig{model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.timeout))
	}

	cli := openai.NewClient(reqOpts...)
	return &OpenAIClient{
		chat:        &cli.Chat.Completions,
		model:       cfg.model,
		temperature: cfg.temperature,
		maxTokens:   cfg.maxTokens,
	}, nil
}

// Model returns the default model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete sends req to the chat completions endpoint.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	params := c.buildParams(req)

	start := time.Now()
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return nil, translateError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewError("complete", ErrNoChoices, false)
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
		Duration:     time.Since(start),
		Usage: TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}, nil
}

func (c *OpenAIClient) buildParams(req CompletionRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	temperature := c.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	params.Temperature = openai.Float(temperature)

	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	return params
}

// translateError maps SDK failures onto the error categories used by the
// retry decorator.
func translateError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return NewError("complete", ctxErr, false)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		httpErr := &fgerrors.HTTPError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Endpoint:   "/chat/completions",
			Err:        err,
		}
		return NewError("complete", httpErr, fgerrors.IsRetryable(httpErr))
	}

	// Transport failures (connection reset, DNS) are worth another try.
	return NewError("complete", fmt.Errorf("request failed: %w", err), true)
}
