package index

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/DreamCats/lexrag/internal/corpus"
	"github.com/DreamCats/lexrag/internal/embedding"
	"github.com/DreamCats/lexrag/internal/metrics"
	"github.com/DreamCats/lexrag/internal/progress"
	"github.com/DreamCats/lexrag/internal/store"
	"github.com/DreamCats/lexrag/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyCorpus is returned when there is nothing to index
var ErrEmptyCorpus = errors.New("empty corpus")

// EmbeddingError reports a chunk that could not be embedded.
// Build logs and skips such chunks.
type EmbeddingError struct {
	ChunkID string
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed chunk %s: %v", e.ChunkID, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Embedder is the embedding capability the indexer and search share
type Embedder interface {
	Model() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Snapshot is one built or restored index. Index position i corresponds
// to Contents[i] and Metadata[i]. A Snapshot is never modified after
// it is published.
type Snapshot struct {
	Index    *VectorIndex
	Contents []string
	Metadata []corpus.Metadata
	Model    string
	BuiltAt  time.Time
}

// Len returns the number of indexed chunks
func (s *Snapshot) Len() int {
	return len(s.Contents)
}

// Indexer builds, persists and restores the vector index
type Indexer struct {
	embedder    Embedder
	dir         string
	batchSize   int
	concurrency int
	progress    progress.Reporter
	current     atomic.Pointer[Snapshot]
}

// Option configures an Indexer
type Option func(*Indexer)

// WithBatchSize sets how many chunks are sent per embedding call
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithConcurrency sets how many embedding batches run at once
func WithConcurrency(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// WithProgress attaches a progress reporter to Build
func WithProgress(r progress.Reporter) Option {
	return func(ix *Indexer) { ix.progress = r }
}

// New creates an indexer persisting to dir
func New(embedder Embedder, dir string, opts ...Option) *Indexer {
	ix := &Indexer{
		embedder:    embedder,
		dir:         dir,
		batchSize:   32,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Dir returns the artifact directory
func (ix *Indexer) Dir() string {
	return ix.dir
}

// Current returns the active snapshot, or nil before Build or Restore
func (ix *Indexer) Current() *Snapshot {
	return ix.current.Load()
}

// Build embeds every chunk, replaces the active index and persists it.
// Chunks that fail to embed are logged and skipped. If persisting fails
// the new snapshot stays active and the error is returned with it.
func (ix *Indexer) Build(ctx context.Context, chunks []corpus.Chunk) (*Snapshot, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}

	ctx, span := tracing.Start(ctx, "index.build")
	defer span.End()

	startTime := time.Now()
	log.Printf("Embedding %d chunks with %s (%d batches in flight)", len(chunks), ix.embedder.Model(), ix.concurrency)

	if ix.progress != nil {
		ix.progress.Start(len(chunks))
	}

	embedded, err := ix.embedAll(ctx, chunks)
	if ix.progress != nil {
		ix.progress.Finish()
	}
	if err != nil {
		return nil, err
	}

	var (
		vi       *VectorIndex
		contents = make([]string, 0, len(chunks))
		meta     = make([]corpus.Metadata, 0, len(chunks))
		skipped  int
	)

	for i, chunk := range chunks {
		vec, err := embedded[i].vec, embedded[i].err
		if err == nil && vi == nil {
			vi = NewVectorIndex(len(vec))
		}
		if err == nil {
			err = vi.Add(embedding.Normalize(vec))
		}
		if err != nil {
			skipped++
			metrics.ChunksSkipped.Inc()
			log.Printf("Warning: %v", &EmbeddingError{ChunkID: chunk.ID, Err: err})
			continue
		}

		md := chunk.Metadata
		md.ChunkID = chunk.ID
		md.ChunkType = chunk.Type
		contents = append(contents, chunk.Content)
		meta = append(meta, md)
		metrics.ChunksIndexed.Inc()
	}
	span.SetAttributes(
		attribute.Int("index.chunks", len(chunks)),
		attribute.Int("index.skipped", skipped),
	)

	if vi == nil || vi.Len() == 0 {
		return nil, fmt.Errorf("%w: none of %d chunks could be embedded", ErrEmptyCorpus, len(chunks))
	}

	snap := &Snapshot{
		Index:    vi,
		Contents: contents,
		Metadata: meta,
		Model:    ix.embedder.Model(),
		BuiltAt:  time.Now(),
	}
	ix.publish(snap)

	log.Printf("Indexed %d chunks (%d skipped, dimension %d) in %v",
		vi.Len(), skipped, vi.Dim(), time.Since(startTime))

	if err := ix.persist(snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// embedAll embeds chunks in batches of batchSize, running up to
// concurrency batches at once. Results are positional.
func (ix *Indexer) embedAll(ctx context.Context, chunks []corpus.Chunk) ([]embedResult, error) {
	out := make([]embedResult, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			copy(out[start:end], ix.embedBatch(gctx, chunks[start:end]))
			if ix.progress != nil {
				ix.progress.Add(end - start)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// per-chunk errors hide cancellation
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type embedResult struct {
	vec []float32
	err error
}

// embedBatch embeds one batch, falling back to one call per chunk when the
// batch request fails.
func (ix *Indexer) embedBatch(ctx context.Context, batch []corpus.Chunk) []embedResult {
	out := make([]embedResult, len(batch))

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(batch) {
		for i, v := range vectors {
			if len(v) == 0 {
				out[i].err = embedding.ErrEmptyText
				continue
			}
			out[i].vec = v
		}
		return out
	}

	if err != nil {
		log.Printf("Warning: batch embedding failed, retrying chunks one by one: %v", err)
	}
	for i, text := range texts {
		out[i].vec, out[i].err = ix.embedder.Embed(ctx, text)
		if out[i].err == nil && len(out[i].vec) == 0 {
			out[i].err = embedding.ErrEmptyText
		}
	}
	return out
}

func (ix *Indexer) publish(snap *Snapshot) {
	ix.current.Store(snap)
	metrics.IndexSize.Set(float64(snap.Len()))
}

// Persist writes the active snapshot to the artifact directory
func (ix *Indexer) Persist() error {
	snap := ix.Current()
	if snap == nil {
		return fmt.Errorf("no index to persist")
	}
	return ix.persist(snap)
}

func (ix *Indexer) persist(snap *Snapshot) error {
	err := store.Save(ix.dir, &store.Artifact{
		Vectors:   snap.Index.Vectors(),
		Contents:  snap.Contents,
		Metadata:  snap.Metadata,
		Model:     snap.Model,
		Dimension: snap.Index.Dim(),
		BuiltAt:   snap.BuiltAt,
	})
	if err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}
	log.Printf("Index persisted to %s", ix.dir)
	return nil
}

// Restore loads a persisted index and makes it active. found is false,
// with a nil error, when nothing has been persisted yet.
func (ix *Indexer) Restore() (snap *Snapshot, found bool, err error) {
	a, found, err := store.Load(ix.dir)
	if err != nil || !found {
		return nil, found, err
	}

	vi := NewVectorIndex(a.Dimension)
	for i, vec := range a.Vectors {
		if err := vi.Add(vec); err != nil {
			return nil, true, fmt.Errorf("vector %d: %w", i, err)
		}
	}

	snap = &Snapshot{
		Index:    vi,
		Contents: a.Contents,
		Metadata: a.Metadata,
		Model:    a.Model,
		BuiltAt:  a.BuiltAt,
	}
	ix.publish(snap)
	return snap, true, nil
}
