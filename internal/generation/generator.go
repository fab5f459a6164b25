// Package generation wraps the language models that write answers.
package generation

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/DreamCats/lexrag/internal/config"
	"github.com/DreamCats/lexrag/internal/metrics"
	"github.com/DreamCats/lexrag/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Generator turns a prompt into answer text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// New creates the generator selected by cfg.Provider
func New(ctx context.Context, cfg *config.GenerationConfig) (Generator, error) {
	var (
		g   Generator
		err error
	)
	switch cfg.Provider {
	case "gemini":
		g, err = NewGemini(ctx, cfg)
	case "openai":
		g, err = NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return Instrument(g), nil
}

type instrumented struct {
	Generator
}

// Instrument records call counts and latency for g
func Instrument(g Generator) Generator {
	return instrumented{g}
}

func (i instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracing.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.model", i.Model()),
		attribute.Int("llm.prompt_chars", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	text, err := i.Generator.Generate(ctx, prompt)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.LLMCallTotal.WithLabelValues(i.Model(), status).Inc()
	metrics.LLMCallDuration.WithLabelValues(i.Model()).Observe(time.Since(start).Seconds())
	return text, err
}

// Close releases the wrapped generator when it holds a connection
func (i instrumented) Close() error {
	if c, ok := i.Generator.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
