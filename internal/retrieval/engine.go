package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DreamCats/lexrag/internal/corpus"
	"github.com/DreamCats/lexrag/internal/embedding"
	"github.com/DreamCats/lexrag/internal/filter"
	"github.com/DreamCats/lexrag/internal/index"
	"github.com/DreamCats/lexrag/internal/metrics"
	"github.com/DreamCats/lexrag/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrIndexNotReady is returned when searching before any index was built or restored
	ErrIndexNotReady = errors.New("index not ready: run `lexrag index` first")
	// ErrDimensionMismatch is returned when the query vector does not fit the index
	ErrDimensionMismatch = errors.New("query embedding dimension does not match index")
)

// DefaultOverfetch is how many candidates per requested result are pulled
// from the index before filtering.
const DefaultOverfetch = 2

// Result is one ranked passage
type Result struct {
	Content   string           `json:"content"`
	Metadata  corpus.Metadata  `json:"metadata"`
	Score     float32          `json:"score"`
	ChunkID   string           `json:"chunk_id"`
	ChunkType corpus.ChunkType `json:"chunk_type"`
}

// QueryEmbedder embeds search queries with the model used at build time
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SnapshotSource yields the active index, or nil when none is loaded
type SnapshotSource interface {
	Current() *index.Snapshot
}

// Engine runs filtered similarity search over the active index
type Engine struct {
	source    SnapshotSource
	embedder  QueryEmbedder
	overfetch int
}

// NewEngine creates a search engine. overfetch below 1 falls back to DefaultOverfetch.
func NewEngine(source SnapshotSource, embedder QueryEmbedder, overfetch int) *Engine {
	if overfetch < 1 {
		overfetch = DefaultOverfetch
	}
	return &Engine{source: source, embedder: embedder, overfetch: overfetch}
}

// Ready reports whether an index is loaded
func (e *Engine) Ready() bool {
	return e.source.Current() != nil
}

// Search returns at most topK results in non-increasing score order.
// It pulls topK*overfetch neighbours, drops empty slots and results
// rejected by f, and stops as soon as topK results have passed.
func (e *Engine) Search(ctx context.Context, query string, topK int, f *filter.Filter) ([]Result, error) {
	ctx, span := tracing.Start(ctx, "retrieval.search", trace.WithAttributes(
		attribute.Int("search.top_k", topK),
		attribute.String("search.filter", f.String()),
	))
	defer span.End()

	start := time.Now()
	results, err := e.search(ctx, query, topK, f)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("search.results", len(results)))
	}
	metrics.SearchTotal.WithLabelValues(status).Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.SearchResults.Observe(float64(len(results)))
	}
	return results, err
}

func (e *Engine) search(ctx context.Context, query string, topK int, f *filter.Filter) ([]Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	snap := e.source.Current()
	if snap == nil {
		return nil, ErrIndexNotReady
	}

	qv, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(qv) != snap.Index.Dim() {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(qv), snap.Index.Dim())
	}
	qv = embedding.Normalize(qv)

	hits, err := snap.Index.Search(qv, topK*e.overfetch)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]Result, 0, topK)
	for _, hit := range hits {
		if hit.Position == index.NoMatch {
			continue
		}

		md := snap.Metadata[hit.Position]
		if !f.Passes(md) {
			continue
		}

		results = append(results, Result{
			Content:   snap.Contents[hit.Position],
			Metadata:  md,
			Score:     hit.Score,
			ChunkID:   md.ChunkID,
			ChunkType: md.ChunkType,
		})
		if len(results) == topK {
			break
		}
	}

	return results, nil
}
