package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Client abstracts LLM providers for obligation extraction.
type Client interface {
	// GenerateObligations returns the raw JSON text of the model's answer,
	// expected to be an array of obligation objects.
	GenerateObligations(ctx context.Context, input ExtractInput) (string, error)
}

// ExtractInput captures the inputs needed for one extraction call.
type ExtractInput struct {
	ChunkText string
}

// CredentialReporter is implemented by clients that can tell whether they were
// configured with an API key.
type CredentialReporter interface {
	HasCredentials() bool
}

// HasCredentials reports false only when c positively reports missing credentials.
func HasCredentials(c Client) bool {
	if r, ok := c.(CredentialReporter); ok {
		return r.HasCredentials()
	}
	return true
}

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200]
	}
	if body == "" {
		return fmt.Sprintf("%s http status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s http status %d: %s", e.Provider, e.Code, body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// ErrMalformedResponse is returned when a provider answers 2xx with a body
// that does not carry the expected text part.
var ErrMalformedResponse = errors.New("malformed llm response")

// IsRetryable classifies an LLM error as transient. Timeouts, network faults,
// 408, 429 and 5xx statuses are transient; other statuses are permanent.
// Errors that carry their own Retryable method decide for themselves.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var classified interface{ Retryable() bool }
	if errors.As(err, &classified) {
		return classified.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrMalformedResponse) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "client.timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}
