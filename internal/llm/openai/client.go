package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"compliance-backend/internal/llm"
	"compliance-backend/internal/shared/telemetry"
)

// DefaultModel is used when LLM_MODEL is unset.
const DefaultModel = "gpt-4o-mini"

const (
	schemaName     = "compliance_obligations"
	wrapperField   = "obligations"
	defaultTimeout = 30 * time.Second
)

// Client implements llm.Client using OpenAI Chat Completions with a strict
// JSON schema response format.
type Client struct {
	api    *goopenai.Client
	apiKey string
	model  string
	format *goopenai.ChatCompletionResponseFormat
}

// NewClient constructs a new OpenAI client. baseURL may point at any
// OpenAI-compatible server; empty uses the public API.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	apiKey = strings.TrimSpace(apiKey)
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if u := strings.TrimRight(strings.TrimSpace(baseURL), "/"); u != "" {
		cfg.BaseURL = u
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:    goopenai.NewClientWithConfig(cfg),
		apiKey: apiKey,
		model:  model,
		format: responseFormat(),
	}
}

// GenerateObligations sends one chunk and returns the unwrapped obligation array text.
func (c *Client) GenerateObligations(ctx context.Context, input llm.ExtractInput) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: llm.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: llm.UserPrompt(input.ChunkText)},
		},
		ResponseFormat: c.format,
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices: %w", llm.ErrMalformedResponse)
	}
	logUsage(c.model, resp.Usage)

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai response empty content: %w", llm.ErrMalformedResponse)
	}
	return unwrap(content), nil
}

// HasCredentials reports whether an API key was configured.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// unwrap returns the obligation array from {"obligations": [...]}. Anything
// else is passed through for the caller's parser to judge.
func unwrap(content string) string {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &wrapper); err != nil {
		return content
	}
	if inner, ok := wrapper[wrapperField]; ok {
		return string(inner)
	}
	return content
}

func responseFormat() *goopenai.ChatCompletionResponseFormat {
	return &goopenai.ChatCompletionResponseFormat{
		Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
			Name:   schemaName,
			Schema: wrappedSchema(),
			Strict: true,
		},
	}
}

// wrappedSchema nests the obligation array under an object root, which strict
// mode requires.
func wrappedSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			wrapperField: toDefinition(llm.ObligationSchema()),
		},
		Required:             []string{wrapperField},
		AdditionalProperties: false,
	}
}

func toDefinition(s *llm.Schema) jsonschema.Definition {
	def := jsonschema.Definition{Description: s.Description}
	switch {
	case strings.EqualFold(s.Type, llm.TypeArray):
		def.Type = jsonschema.Array
		if s.Items != nil {
			items := toDefinition(s.Items)
			def.Items = &items
		}
	case strings.EqualFold(s.Type, llm.TypeObject):
		def.Type = jsonschema.Object
		def.Properties = make(map[string]jsonschema.Definition, len(s.Properties))
		for name, prop := range s.Properties {
			def.Properties[name] = toDefinition(prop)
		}
		def.Required = append([]string(nil), s.Required...)
		def.AdditionalProperties = false
	default:
		def.Type = jsonschema.String
	}
	return def
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &llm.StatusError{Provider: "openai", Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &llm.StatusError{Provider: "openai", Code: reqErr.HTTPStatusCode, Body: fmt.Sprint(reqErr.Err)}
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
		return fmt.Errorf("openai request timeout: %w", err)
	}
	return fmt.Errorf("openai request: %w", err)
}

func logUsage(model string, usage goopenai.Usage) {
	telemetry.Info("llm response", map[string]any{
		"provider":          "openai",
		"model":             model,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
	})
}

var (
	_ llm.Client             = (*Client)(nil)
	_ llm.CredentialReporter = (*Client)(nil)
)
