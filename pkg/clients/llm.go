package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const DefaultModelTimeout = 120 * time.Second

// Completer produces a JSON document matching schema and decodes it into out
type Completer interface {
	Complete(ctx context.Context, prompt, schemaName string, schema map[string]any, out any) error
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint using
// structured outputs. Gemini is reached through its OpenAI-compatible base URL.
type ChatClient struct {
	client    openai.Client
	apiKey    string
	apiKeyEnv string
	model     string
}

// NewChatClient creates a chat client. apiKeyEnv names the variable reported when
// no key is configured.
func NewChatClient(config types.ModelConfig, apiKeyEnv string) *ChatClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &ChatClient{
		client:    openai.NewClient(opts...),
		apiKey:    config.APIKey,
		apiKeyEnv: apiKeyEnv,
		model:     config.Model,
	}
}

var ErrEmptyCompletion = errors.New("model returned no content")

func (c *ChatClient) Complete(ctx context.Context, prompt, schemaName string, schema map[string]any, out any) error {
	if c.apiKey == "" {
		return &types.ConfigurationError{Key: c.apiKeyEnv}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return fmt.Errorf("model API error %d: %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ErrEmptyCompletion
	}
	message := resp.Choices[0].Message
	if message.Refusal != "" {
		return fmt.Errorf("model refused: %s", message.Refusal)
	}
	if strings.TrimSpace(message.Content) == "" {
		return ErrEmptyCompletion
	}

	if err := json.Unmarshal([]byte(message.Content), out); err != nil {
		return fmt.Errorf("decode %s: %w", schemaName, err)
	}
	return nil
}

// objectSchema builds a strict JSON schema object where every property is a
// required string
func objectSchema(descriptions map[string]string, order ...string) map[string]any {
	properties := make(map[string]any, len(order))
	for _, name := range order {
		properties[name] = map[string]any{
			"type":        "string",
			"description": descriptions[name],
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             order,
		"additionalProperties": false,
	}
}
