package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/DreamCats/lexrag/internal/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini generates answers with a Gemini model
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

// NewGemini creates a Gemini generator
func NewGemini(ctx context.Context, cfg *config.GenerationConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api_key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	if cfg.Temperature > 0 {
		model.SetTemperature(cfg.Temperature)
	}

	return &Gemini{client: client, model: model, name: cfg.Model}, nil
}

func (g *Gemini) Model() string { return g.name }

// Generate sends prompt as a single user turn and joins the text parts of
// the first candidate. An empty string means the model produced no text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// Close releases the underlying connection
func (g *Gemini) Close() error {
	return g.client.Close()
}
