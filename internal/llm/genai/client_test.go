package genai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"compliance-backend/internal/llm"
)

func TestToGenaiSchemaMirrorsObligationSchema(t *testing.T) {
	s := toGenaiSchema(llm.ObligationSchema())
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeArray, s.Type)
	require.NotNil(t, s.Items)
	assert.Equal(t, genai.TypeObject, s.Items.Type)
	assert.ElementsMatch(t, llm.RequiredFields, s.Items.Required)
	for _, name := range llm.RequiredFields {
		prop := s.Items.Properties[name]
		require.NotNil(t, prop, name)
		assert.Equal(t, genai.TypeString, prop.Type)
		assert.NotEmpty(t, prop.Description)
	}
}

func TestClientHasNoCredentialReport(t *testing.T) {
	var c llm.Client = &Client{}
	_, reports := c.(llm.CredentialReporter)
	assert.False(t, reports)
	assert.True(t, llm.HasCredentials(c))
}

func TestConfigureModel(t *testing.T) {
	model := &genai.GenerativeModel{}
	configureModel(model)
	assert.Equal(t, "application/json", model.ResponseMIMEType)
	require.NotNil(t, model.SystemInstruction)
	assert.Equal(t, genai.Text(llm.SystemPrompt), model.SystemInstruction.Parts[0])
	assert.Equal(t, genai.TypeArray, model.ResponseSchema.Type)
}

func TestClassifyMapsAPIErrors(t *testing.T) {
	err := classify(fmt.Errorf("rpc: %w", &googleapi.Error{Code: 429, Message: "quota"}))
	var statusErr *llm.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 429, statusErr.Code)
	assert.True(t, llm.IsRetryable(err))

	err = classify(&googleapi.Error{Code: 403, Message: "forbidden"})
	assert.False(t, llm.IsRetryable(err))

	err = classify(context.DeadlineExceeded)
	assert.True(t, llm.IsRetryable(err))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), " ", "")
	assert.Error(t, err)
}
