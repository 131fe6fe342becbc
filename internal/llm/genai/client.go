// Package genai implements llm.Client on the Google generative-ai-go SDK.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"compliance-backend/internal/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Client sends chunks through a schema-constrained GenerativeModel.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClient dials the Generative Language API with apiKey. An empty key is
// rejected here, so Client carries no credential report of its own.
func NewClient(ctx context.Context, apiKey, modelName string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the genai provider")
	}
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	configureModel(model)
	return &Client{client: client, model: model}, nil
}

func configureModel(model *genai.GenerativeModel) {
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(llm.SystemPrompt)}}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = toGenaiSchema(llm.ObligationSchema())
}

// GenerateObligations returns the first text part of the first candidate.
func (c *Client) GenerateObligations(ctx context.Context, input llm.ExtractInput) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(llm.UserPrompt(input.ChunkText)))
	if err != nil {
		return "", classify(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("genai response missing candidates: %w", llm.ErrMalformedResponse)
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("genai first part is %T: %w", resp.Candidates[0].Content.Parts[0], llm.ErrMalformedResponse)
	}
	return string(text), nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Provider: "genai", Code: apiErr.Code, Body: apiErr.Message}
	}
	return fmt.Errorf("genai generate: %w", err)
}

func toGenaiSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toGenaiType(s.Type),
		Description: s.Description,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func toGenaiType(t string) genai.Type {
	switch {
	case strings.EqualFold(t, llm.TypeArray):
		return genai.TypeArray
	case strings.EqualFold(t, llm.TypeObject):
		return genai.TypeObject
	case strings.EqualFold(t, llm.TypeString):
		return genai.TypeString
	default:
		return genai.TypeUnspecified
	}
}

var (
	_ llm.Client = (*Client)(nil)
)
