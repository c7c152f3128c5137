package extraction

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/circuitbreaker"
	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/sashabaranov/go-openai"
)

// Completion is a single prompt sent to the model.
type Completion struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
	// JSONMode asks the API to constrain the reply to a JSON object.
	JSONMode bool
}

// Model returns the raw text of a completion. The reply is untrusted.
type Model interface {
	Complete(ctx context.Context, c Completion) (string, error)
}

// OpenAIConfig configures the OpenAI chat completion client.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAIModel calls the chat completions API through a circuit breaker.
type OpenAIModel struct {
	client  *openai.Client
	model   string
	breaker *circuitbreaker.Breaker
	logger  logging.Logger
}

// NewOpenAIModel builds a client. An empty API key is a configuration error.
func NewOpenAIModel(config OpenAIConfig, logger logging.Logger) (*OpenAIModel, error) {
	if config.APIKey == "" {
		return nil, errors.ConfigError("OPENAI_API_KEY is not set")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithFields(logging.Field{Key: "component", Value: "openai"})

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &OpenAIModel{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   config.Model,
		breaker: circuitbreaker.New("openai", circuitbreaker.DefaultConfig(), logger),
		logger:  logger,
	}, nil
}

// Breaker exposes the circuit breaker for status reporting.
func (m *OpenAIModel) Breaker() *circuitbreaker.Breaker {
	return m.breaker
}

func (m *OpenAIModel) Complete(ctx context.Context, c Completion) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: c.Prompt},
		},
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
	if c.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var content string
	err := m.breaker.Execute(ctx, func() error {
		resp, err := m.client.CreateChatCompletion(ctx, req)
		if err != nil {
			var apiErr *openai.APIError
			if stderrors.As(err, &apiErr) {
				return errors.FetchError(fmt.Sprintf("model API error (%d)", apiErr.HTTPStatusCode), err)
			}
			return errors.FetchError("model API call failed", err)
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return errors.ExtractionError("invalid model response structure", nil)
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Debug("Model completion received",
		logging.String("model", m.model),
		logging.Int("length", len(content)),
	)
	return content, nil
}
