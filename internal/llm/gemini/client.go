package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"compliance-backend/internal/llm"
)

const (
	// DefaultBaseURL is the public Generative Language API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is used when LLM_MODEL is unset.
	DefaultModel = "gemini-2.5-flash-preview-09-2025"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

// Client implements llm.Client against the Gemini generateContent REST endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient constructs a Gemini client. A missing API key is not an error:
// HasCredentials reports it and every request fails upstream.
func NewClient(opts Options) *Client {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string      `json:"responseMimeType"`
	ResponseSchema   *llm.Schema `json:"responseSchema"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction content          `json:"systemInstruction"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// BuildRequest returns the request body for one chunk.
func BuildRequest(chunkText string) ([]byte, error) {
	return json.Marshal(generateRequest{
		Contents:          []content{{Parts: []part{{Text: llm.UserPrompt(chunkText)}}}},
		SystemInstruction: content{Parts: []part{{Text: llm.SystemPrompt}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   llm.ObligationSchema(),
		},
	})
}

// GenerateObligations sends one chunk and returns candidates[0].content.parts[0].text.
func (c *Client) GenerateObligations(ctx context.Context, input llm.ExtractInput) (string, error) {
	payload, err := BuildRequest(input.ChunkText)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("gemini request timeout: %w", err)
		}
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("gemini read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &llm.StatusError{Provider: "gemini", Code: resp.StatusCode, Body: string(body)}
	}
	return ParseResponse(body)
}

// ParseResponse extracts the first candidate's first text part.
func ParseResponse(body []byte) (string, error) {
	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("gemini response parse: %v: %w", err, llm.ErrMalformedResponse)
	}
	if len(parsed.Candidates) == 0 || parsed.Candidates[0].Content == nil ||
		len(parsed.Candidates[0].Content.Parts) == 0 || parsed.Candidates[0].Content.Parts[0].Text == nil {
		return "", fmt.Errorf("gemini response missing candidates[0].content.parts[0].text: %w", llm.ErrMalformedResponse)
	}
	return *parsed.Candidates[0].Content.Parts[0].Text, nil
}

// HasCredentials reports whether an API key was configured.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

var (
	_ llm.Client             = (*Client)(nil)
	_ llm.CredentialReporter = (*Client)(nil)
)
