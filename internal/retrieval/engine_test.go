package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/DreamCats/lexrag/internal/corpus"
	"github.com/DreamCats/lexrag/internal/filter"
	"github.com/DreamCats/lexrag/internal/index"
)

type staticSource struct {
	snap *index.Snapshot
}

func (s staticSource) Current() *index.Snapshot { return s.snap }

// tableEmbedder returns fixed vectors for known texts
type tableEmbedder map[string][]float32

func (t tableEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, ok := t[text]
	if !ok {
		return nil, fmt.Errorf("unknown text %q", text)
	}
	return append([]float32(nil), v...), nil
}

type doc struct {
	vec []float32
	md  corpus.Metadata
}

func snapshot(t *testing.T, docs []doc) *index.Snapshot {
	t.Helper()
	vi := index.NewVectorIndex(len(docs[0].vec))
	snap := &index.Snapshot{Index: vi}
	for i, d := range docs {
		if err := vi.Add(d.vec); err != nil {
			t.Fatal(err)
		}
		d.md.ChunkID = fmt.Sprintf("%s_overview", d.md.ActID)
		d.md.ChunkType = corpus.ChunkOverview
		snap.Contents = append(snap.Contents, fmt.Sprintf("content %d", i))
		snap.Metadata = append(snap.Metadata, d.md)
	}
	return snap
}

func threeActs(t *testing.T) *index.Snapshot {
	return snapshot(t, []doc{
		{[]float32{1, 0, 0}, corpus.Metadata{ActID: "a1", ActTitle: "Contract Act", Year: "1872"}},
		{[]float32{0.6, 0.8, 0}, corpus.Metadata{ActID: "a2", ActTitle: "Penal Code", Year: "1860"}},
		{[]float32{0.8, 0.6, 0}, corpus.Metadata{ActID: "a3", ActTitle: "Old Act", Year: "1900", IsRepealed: true}},
	})
}

func TestSearchScenario(t *testing.T) {
	emb := tableEmbedder{"contract": {2, 0, 0}}
	e := NewEngine(staticSource{threeActs(t)}, emb, DefaultOverfetch)

	results, err := e.Search(context.Background(), "contract", 2, &filter.Filter{IsRepealed: filter.Bool(false)})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) > 2 {
		t.Fatalf("got %d results, want at most 2", len(results))
	}
	for _, r := range results {
		if r.Metadata.IsRepealed {
			t.Errorf("repealed act %q returned", r.Metadata.ActTitle)
		}
	}

	if len(results) != 2 || results[0].Metadata.ActTitle != "Contract Act" || results[1].Metadata.ActTitle != "Penal Code" {
		t.Fatalf("results = %+v, want Contract Act then Penal Code", results)
	}
	if results[0].ChunkID != "a1_overview" || results[0].ChunkType != corpus.ChunkOverview {
		t.Errorf("chunk identity = %q/%q", results[0].ChunkID, results[0].ChunkType)
	}
	if results[0].Score < 0.999 {
		t.Errorf("score = %v, want ~1 for normalised identical direction", results[0].Score)
	}
}

func TestSearchOverfetchWindow(t *testing.T) {
	emb := tableEmbedder{"contract": {1, 0, 0}}
	penal := &filter.Filter{Keywords: []string{"penal"}}

	// top_k=1 pulls two candidates, Contract Act and Old Act, and both fail.
	narrow := NewEngine(staticSource{threeActs(t)}, emb, DefaultOverfetch)
	results, err := narrow.Search(context.Background(), "contract", 1, penal)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %+v, want no results inside the 2x window", results)
	}

	wide := NewEngine(staticSource{threeActs(t)}, emb, 3)
	results, err = wide.Search(context.Background(), "contract", 1, penal)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Metadata.ActTitle != "Penal Code" {
		t.Errorf("wider window results = %+v", results)
	}
}

func TestSearchOrderingAndBounds(t *testing.T) {
	docs := make([]doc, 0, 8)
	emb := tableEmbedder{"q": {1, 0}}
	for i := 0; i < 8; i++ {
		x := float32(8-i) / 8
		docs = append(docs, doc{
			vec: []float32{x, 1 - x},
			md:  corpus.Metadata{ActID: fmt.Sprintf("a%d", i), ActTitle: fmt.Sprintf("Act %d", i), Year: fmt.Sprint(1900 + i)},
		})
	}
	// Index stores unit vectors
	for i := range docs {
		docs[i].vec = normalised(docs[i].vec)
	}
	e := NewEngine(staticSource{snapshot(t, docs)}, emb, DefaultOverfetch)

	for _, topK := range []int{1, 3, 5, 20} {
		results, err := e.Search(context.Background(), "q", topK, nil)
		if err != nil {
			t.Fatalf("Search(top_k=%d) error = %v", topK, err)
		}
		want := min(topK, len(docs))
		if len(results) != want {
			t.Errorf("top_k=%d: got %d results, want %d", topK, len(results), want)
		}
		for i := 1; i < len(results); i++ {
			if results[i-1].Score < results[i].Score {
				t.Errorf("top_k=%d: scores not non-increasing at %d: %v < %v", topK, i, results[i-1].Score, results[i].Score)
			}
		}
	}

	f := &filter.Filter{YearRange: &filter.YearRange{From: 1903, To: 1905}}
	results, err := e.Search(context.Background(), "q", 3, f)
	if err != nil {
		t.Fatal(err)
	}
	// Window is the top 6 (years 1900..1905); three of them pass.
	if len(results) != 3 {
		t.Fatalf("filtered search returned %d results, want 3", len(results))
	}
	for _, r := range results {
		if !f.Passes(r.Metadata) {
			t.Errorf("result %q violates filter", r.Metadata.ActTitle)
		}
	}
}

func normalised(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / math.Sqrt(sum))
	}
	return out
}

func TestSearchErrors(t *testing.T) {
	emb := tableEmbedder{"short": {1, 0}, "contract": {1, 0, 0}}

	notReady := NewEngine(staticSource{}, emb, 0)
	if notReady.Ready() {
		t.Error("Ready() = true without a snapshot")
	}
	if _, err := notReady.Search(context.Background(), "contract", 5, nil); !errors.Is(err, ErrIndexNotReady) {
		t.Errorf("error = %v, want ErrIndexNotReady", err)
	}

	e := NewEngine(staticSource{threeActs(t)}, emb, 0)
	if _, err := e.Search(context.Background(), "short", 5, nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("error = %v, want ErrDimensionMismatch", err)
	}
	if _, err := e.Search(context.Background(), "contract", 0, nil); err == nil {
		t.Error("expected error for top_k 0")
	}
	if _, err := e.Search(context.Background(), "unknown", 1, nil); err == nil {
		t.Error("expected embedding error to propagate")
	}
}
