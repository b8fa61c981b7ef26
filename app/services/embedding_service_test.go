package services

import (
	"context"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIEmbeddingServiceUsesConfiguredModel(t *testing.T) {
	service := NewOpenAIEmbeddingService("test-key", "", "text-embedding-3-large", 3072, 10*time.Second)

	impl, ok := service.(*OpenAIEmbeddingService)
	require.True(t, ok)
	assert.Equal(t, openai.EmbeddingModel("text-embedding-3-large"), impl.model)
	assert.Equal(t, 3072, impl.dimensions)
}

func TestNewOpenAIEmbeddingServiceDefaults(t *testing.T) {
	service := NewOpenAIEmbeddingService("test-key", "", "", 0, 0)

	impl, ok := service.(*OpenAIEmbeddingService)
	require.True(t, ok)
	assert.Equal(t, openai.SmallEmbedding3, impl.model)
	assert.Equal(t, EmbeddingVectorDimensions, impl.dimensions)
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	service := NewOpenAIEmbeddingService("test-key", "", "", 0, 0)

	_, err := service.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyEmbeddingInput)
}
