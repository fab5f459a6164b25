package index

import (
	"context"
	"errors"
	"hash/fnv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DreamCats/lexrag/internal/corpus"
	"github.com/DreamCats/lexrag/internal/embedding"
)

// bagEmbedder hashes lowercase words into a fixed number of buckets.
type bagEmbedder struct {
	failBatch bool
	reject    string
}

func (b *bagEmbedder) Model() string { return "bag-16" }

func (b *bagEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embedding.ErrEmptyText
	}
	if b.reject != "" && text == b.reject {
		return nil, errors.New("rejected by model")
	}
	vec := make([]float32, 16)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%16]++
	}
	return vec, nil
}

func (b *bagEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if b.failBatch {
		return nil, errors.New("batch endpoint unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if t == "" {
			continue
		}
		v, err := b.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func chunk(id, actID, title, content string) corpus.Chunk {
	return corpus.Chunk{
		ID:       id,
		Content:  content,
		Type:     corpus.ChunkOverview,
		Metadata: corpus.Metadata{ActID: actID, ActTitle: title, Year: "1872"},
	}
}

func TestVectorIndexSearch(t *testing.T) {
	vi := NewVectorIndex(2)
	for _, v := range [][]float32{{1, 0}, {0, 1}, {1, 0}} {
		if err := vi.Add(v); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := vi.Search([]float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 5 {
		t.Fatalf("Search() returned %d slots, want 5", len(hits))
	}

	wantPos := []int{0, 2, 1, NoMatch, NoMatch}
	for i, want := range wantPos {
		if hits[i].Position != want {
			t.Errorf("slot %d position = %d, want %d", i, hits[i].Position, want)
		}
	}
	if hits[0].Score != 1 || hits[2].Score != 0 {
		t.Errorf("unexpected scores: %+v", hits)
	}

	if _, err := vi.Search([]float32{1, 0, 0}, 1); err == nil {
		t.Error("expected dimension error")
	}
	if err := vi.Add([]float32{1}); err == nil {
		t.Error("expected Add dimension error")
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	ix := New(&bagEmbedder{}, filepath.Join(t.TempDir(), "vs"))
	if _, err := ix.Build(context.Background(), nil); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("Build(nil) error = %v, want ErrEmptyCorpus", err)
	}

	_, err := ix.Build(context.Background(), []corpus.Chunk{chunk("x", "a", "A", "")})
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("Build(all empty) error = %v, want ErrEmptyCorpus", err)
	}
	if ix.Current() != nil {
		t.Error("failed build should not publish a snapshot")
	}
}

func TestBuildSkipsUnembeddable(t *testing.T) {
	tests := []struct {
		name        string
		embedder    *bagEmbedder
		concurrency int
	}{
		{"batch path", &bagEmbedder{}, 1},
		{"per-chunk fallback", &bagEmbedder{failBatch: true, reject: "poison"}, 1},
		{"concurrent batches", &bagEmbedder{}, 4},
		{"concurrent fallback", &bagEmbedder{failBatch: true, reject: "poison"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := []corpus.Chunk{
				chunk("a1_overview", "a1", "Contract Act", "law of contract"),
				chunk("a2_overview", "a2", "Blank", ""),
				chunk("a3_overview", "a3", "Poison", "poison"),
				chunk("a4_overview", "a4", "Penal Code", "offences and punishment"),
			}
			if !tt.embedder.failBatch {
				chunks = append(chunks[:2], chunks[3])
			}

			ix := New(tt.embedder, filepath.Join(t.TempDir(), "vs"), WithBatchSize(1), WithConcurrency(tt.concurrency))
			snap, err := ix.Build(context.Background(), chunks)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			if snap.Len() != 2 || snap.Index.Len() != 2 || len(snap.Metadata) != 2 {
				t.Fatalf("snapshot sizes = %d/%d/%d, want 2", snap.Len(), snap.Index.Len(), len(snap.Metadata))
			}
			if snap.Metadata[0].ChunkID != "a1_overview" || snap.Metadata[1].ChunkID != "a4_overview" {
				t.Errorf("positions out of order: %+v", snap.Metadata)
			}
			if snap.Metadata[1].ChunkType != corpus.ChunkOverview {
				t.Errorf("chunk type not carried into metadata")
			}
			if snap.Contents[1] != "offences and punishment" {
				t.Errorf("content not kept verbatim: %q", snap.Contents[1])
			}
			if ix.Current() != snap {
				t.Error("Build should publish the new snapshot")
			}
		})
	}
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vs")
	emb := &bagEmbedder{}
	chunks := []corpus.Chunk{
		chunk("a1_overview", "a1", "Contract Act", "agreements enforceable by law are contracts"),
		chunk("a2_overview", "a2", "Penal Code", "offences punishment and criminal liability"),
		chunk("a3_overview", "a3", "Evidence Act", "relevancy of facts and evidence in court"),
	}

	built, err := New(emb, dir).Build(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ix := New(emb, dir)
	restored, found, err := ix.Restore()
	if err != nil || !found {
		t.Fatalf("Restore() = found %v, err %v", found, err)
	}
	if ix.Current() != restored {
		t.Error("Restore should publish the snapshot")
	}

	for i := range built.Contents {
		if restored.Contents[i] != built.Contents[i] {
			t.Errorf("content %d differs after restore", i)
		}
		if restored.Metadata[i] != built.Metadata[i] {
			t.Errorf("metadata %d = %+v, want %+v", i, restored.Metadata[i], built.Metadata[i])
		}
	}

	for _, q := range []string{"contract law", "criminal offences", "evidence court", "nothing matches"} {
		qv, _ := emb.Embed(context.Background(), q)
		qv = embedding.Normalize(qv)
		a, _ := built.Index.Search(qv, 3)
		b, _ := restored.Index.Search(qv, 3)
		for i := range a {
			if a[i].Position != b[i].Position {
				t.Errorf("query %q: ranking differs after restore: %v vs %v", q, a, b)
				break
			}
		}
	}
}

func TestRestoreNotFound(t *testing.T) {
	ix := New(&bagEmbedder{}, filepath.Join(t.TempDir(), "missing"))
	snap, found, err := ix.Restore()
	if snap != nil || found || err != nil {
		t.Errorf("Restore() = %v, %v, %v; want nil, false, nil", snap, found, err)
	}
	if err := ix.Persist(); err == nil {
		t.Error("Persist() without an index should fail")
	}
}
