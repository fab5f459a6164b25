package embedding

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/DreamCats/lexrag/internal/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements Client on the Gemini embedding API
type GeminiClient struct {
	client  *genai.Client
	model   *genai.EmbeddingModel
	dims    int
	learned atomic.Int64
}

// NewGeminiClient creates a new Gemini embedding client
func NewGeminiClient(ctx context.Context, cfg *config.EmbeddingConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api_key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.EmbeddingModel(cfg.Model)
	model.TaskType = genai.TaskTypeSemanticSimilarity

	return &GeminiClient{client: client, model: model, dims: cfg.Dimensions}, nil
}

// Embed generates an embedding for a single text
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := c.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	c.learn(res.Embedding.Values)
	return res.Embedding.Values, nil
}

// EmbedBatch generates embeddings for multiple texts in one request
func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := c.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := c.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(res.Embeddings))
	}

	out := make([][]float32, len(texts))
	for i, e := range res.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("empty embedding at position %d", i)
		}
		out[i] = e.Values
	}
	c.learn(out[0])
	return out, nil
}

// Dimensions returns the configured size, else the one observed from the API
// (0 before the first call)
func (c *GeminiClient) Dimensions() int {
	if c.dims > 0 {
		return c.dims
	}
	return int(c.learned.Load())
}

func (c *GeminiClient) learn(v []float32) {
	c.learned.CompareAndSwap(0, int64(len(v)))
}

// Close releases the underlying gRPC connection
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
