package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/DreamCats/lexrag/internal/config"
)

// ErrEmptyText is returned when asked to embed an empty string
var ErrEmptyText = errors.New("cannot embed empty text")

// Service provides embedding generation functionality
type Service struct {
	cfg    *config.EmbeddingConfig
	client Client
}

// Client is the interface for embedding API clients
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions reports the vector size, or 0 when the model decides it
	Dimensions() int
}

// NewService creates a new embedding service
func NewService(ctx context.Context, cfg *config.EmbeddingConfig) (*Service, error) {
	var client Client
	var err error

	switch cfg.Provider {
	case "gemini":
		client, err = NewGeminiClient(ctx, cfg)
	case "openai":
		client, err = NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	return NewServiceWithClient(cfg, client), nil
}

// NewServiceWithClient wraps an existing client
func NewServiceWithClient(cfg *config.EmbeddingConfig, client Client) *Service {
	return &Service{cfg: cfg, client: client}
}

// Model returns the configured embedding model name
func (s *Service) Model() string {
	return s.cfg.Model
}

// Embed generates an embedding for a single text
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	return s.client.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts.
// The result is positional: empty texts get a nil vector, the rest are
// embedded in batches of cfg.BatchSize.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	validTexts := make([]string, 0, len(texts))
	validIndices := make([]int, 0, len(texts))
	for i, text := range texts {
		if text != "" {
			validTexts = append(validTexts, text)
			validIndices = append(validIndices, i)
		}
	}

	results := make([][]float32, len(texts))
	if len(validTexts) == 0 {
		return results, nil
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	for i := 0; i < len(validTexts); i += batchSize {
		end := i + batchSize
		if end > len(validTexts) {
			end = len(validTexts)
		}

		embeddings, err := s.client.EmbedBatch(ctx, validTexts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", i, end, err)
		}
		if len(embeddings) != end-i {
			return nil, fmt.Errorf("batch %d-%d: expected %d embeddings, got %d", i, end, end-i, len(embeddings))
		}

		for j, emb := range embeddings {
			results[validIndices[i+j]] = emb
		}
	}

	return results, nil
}

// Dimensions returns the dimension of the embeddings
func (s *Service) Dimensions() int {
	if s.cfg.Dimensions > 0 {
		return s.cfg.Dimensions
	}
	return s.client.Dimensions()
}

// Close releases the client when it holds a connection
func (s *Service) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Normalize scales v to unit L2 norm in place and returns it.
// A zero vector is left unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Dot computes the inner product; on unit vectors it equals cosine similarity
func Dot(a, b []float32) float32 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("vector dimension mismatch: %d vs %d", len(a), len(b)))
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
