package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Embedding service error constants
var (
	ErrEmptyEmbeddingInput = errors.New("embedding input is empty")
	ErrEmptyEmbeddingData  = errors.New("embedding response contains no data")
)

// EmbeddingVectorDimensions matches the vector column width in the catalog
const EmbeddingVectorDimensions = 1536

// EmbeddingService turns catalog content into dense vectors for the
// enrichment worker. Failures are returned to the caller; the worker's retry
// bookkeeping decides what happens next.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbeddingService implements EmbeddingService against the OpenAI API
type OpenAIEmbeddingService struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEmbeddingService creates a new embedding service. The model and
// dimensions must agree with each other and with the vector column width.
func NewOpenAIEmbeddingService(apiKey, baseURL, model string, dimensions int, timeout time.Duration) EmbeddingService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}

	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	if dimensions <= 0 {
		dimensions = EmbeddingVectorDimensions
	}

	return &OpenAIEmbeddingService{
		client:     openai.NewClientWithConfig(cfg),
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
	}
}

// Embed requests a single embedding vector for the given text
func (s *OpenAIEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyEmbeddingInput
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      s.model,
		Dimensions: s.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrEmptyEmbeddingData
	}

	return resp.Data[0].Embedding, nil
}
