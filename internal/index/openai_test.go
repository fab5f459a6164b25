package index

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/DreamCats/lexrag/internal/config"
	"github.com/DreamCats/lexrag/internal/corpus"
	"github.com/DreamCats/lexrag/internal/embedding"
)

// fakeEmbeddingsAPI answers the OpenAI embeddings endpoint with 4-dim vectors
// and counts requests that carry a dimensions parameter.
type fakeEmbeddingsAPI struct {
	requests       atomic.Int64
	withDimensions atomic.Int64
}

func (f *fakeEmbeddingsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/embeddings") {
		http.NotFound(w, r)
		return
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.requests.Add(1)
	if _, ok := body["dimensions"]; ok {
		f.withDimensions.Add(1)
		http.Error(w, `{"error":{"message":"dimensions not supported by this model"}}`, http.StatusBadRequest)
		return
	}

	var inputs []string
	if err := json.Unmarshal(body["input"], &inputs); err != nil {
		var single string
		if err := json.Unmarshal(body["input"], &single); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		inputs = []string{single}
	}

	var format string
	json.Unmarshal(body["encoding_format"], &format)

	data := make([]map[string]any, len(inputs))
	for i, text := range inputs {
		vec := []float64{float64(len(text)), 1, 0, 0}
		var payload any = vec
		if format == "base64" {
			buf := make([]byte, 4*len(vec))
			for j, x := range vec {
				binary.LittleEndian.PutUint32(buf[4*j:], math.Float32bits(float32(x)))
			}
			payload = base64.StdEncoding.EncodeToString(buf)
		}
		data[i] = map[string]any{
			"object":    "embedding",
			"index":     i,
			"embedding": payload,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  "text-embedding-ada-002",
		"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
	})
}

func TestBuildConcurrentOpenAIWithoutDimensions(t *testing.T) {
	api := &fakeEmbeddingsAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := &config.EmbeddingConfig{
		Provider:  "openai",
		APIKey:    "test-key",
		Model:     "text-embedding-ada-002",
		Endpoint:  srv.URL + "/v1/",
		BatchSize: 1,
	}
	client, err := embedding.NewOpenAIClient(cfg)
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	svc := embedding.NewServiceWithClient(cfg, client)

	var chunks []corpus.Chunk
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("a%d", i)
		chunks = append(chunks, chunk(id+"_overview", id, "Act "+id, strings.Repeat("x", i+1)))
	}

	ix := New(svc, filepath.Join(t.TempDir(), "vs"), WithBatchSize(1), WithConcurrency(4))
	snap, err := ix.Build(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if snap.Len() != len(chunks) {
		t.Errorf("indexed %d chunks, want %d", snap.Len(), len(chunks))
	}
	if n := api.withDimensions.Load(); n != 0 {
		t.Errorf("%d of %d requests sent a dimensions parameter", n, api.requests.Load())
	}
	if got := svc.Dimensions(); got != 4 {
		t.Errorf("Dimensions() = %d, want 4 learned from responses", got)
	}
	for i, md := range snap.Metadata {
		if md.ChunkID != chunks[i].ID {
			t.Fatalf("position %d holds %s, want %s", i, md.ChunkID, chunks[i].ID)
		}
	}
}
