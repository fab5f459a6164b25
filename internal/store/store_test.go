package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DreamCats/lexrag/internal/corpus"
)

func sampleArtifact() *Artifact {
	return &Artifact{
		Vectors: [][]float32{
			{1, 0, 0},
			{0, 0.6, 0.8},
			{-0.5, 0.5, 0.70710677},
		},
		Contents: []string{"Contract Act overview", "Penal Code overview", "Old Act"},
		Metadata: []corpus.Metadata{
			{ChunkID: "a1_overview", ChunkType: corpus.ChunkOverview, ActID: "a1", ActTitle: "Contract Act", Year: "1872"},
			{ChunkID: "a2_overview", ChunkType: corpus.ChunkOverview, ActID: "a2", ActTitle: "Penal Code", Year: "1860"},
			{ChunkID: "a3_section_1", ChunkType: corpus.ChunkSection, ActID: "a3", ActTitle: "Old Act", Year: "1900", IsRepealed: true, SectionTitle: "Short title"},
		},
		Model:     "test-model",
		Dimension: 3,
		BuiltAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vectorstore")
	want := sampleArtifact()

	if err := Save(dir, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, found, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !found {
		t.Fatal("Load() found = false after Save")
	}

	if got.Model != want.Model || got.Dimension != want.Dimension || !got.BuiltAt.Equal(want.BuiltAt) {
		t.Errorf("info = %q/%d/%v, want %q/%d/%v", got.Model, got.Dimension, got.BuiltAt, want.Model, want.Dimension, want.BuiltAt)
	}

	for i := range want.Vectors {
		if got.Contents[i] != want.Contents[i] {
			t.Errorf("content %d = %q, want %q", i, got.Contents[i], want.Contents[i])
		}
		if got.Metadata[i] != want.Metadata[i] {
			t.Errorf("metadata %d = %+v, want %+v", i, got.Metadata[i], want.Metadata[i])
		}
		for j := range want.Vectors[i] {
			if got.Vectors[i][j] != want.Vectors[i][j] {
				t.Errorf("vector %d = %v, want %v", i, got.Vectors[i], want.Vectors[i])
				break
			}
		}
	}
}

func TestSaveReplacesPrevious(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vectorstore")

	if err := Save(dir, sampleArtifact()); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}

	smaller := sampleArtifact()
	smaller.Vectors = smaller.Vectors[:1]
	smaller.Contents = smaller.Contents[:1]
	smaller.Metadata = smaller.Metadata[:1]
	if err := Save(dir, smaller); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, _, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Vectors) != 1 || len(got.Contents) != 1 || len(got.Metadata) != 1 {
		t.Errorf("expected one entry after overwrite, got %d/%d/%d", len(got.Vectors), len(got.Contents), len(got.Metadata))
	}

	entries, err := os.ReadDir(filepath.Dir(dir))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("staging directories left behind: %v", entries)
	}
}

func TestLoadMissing(t *testing.T) {
	got, found, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil || found || got != nil {
		t.Errorf("Load(missing) = %v, %v, %v; want nil, false, nil", got, found, err)
	}
}

func TestLoadIncomplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(dir string) error
	}{
		{
			name:   "missing metadata",
			mutate: func(dir string) error { return os.Remove(filepath.Join(dir, MetadataFile)) },
		},
		{
			name:   "missing vectors",
			mutate: func(dir string) error { return os.Remove(filepath.Join(dir, VectorsFile)) },
		},
		{
			name: "length mismatch",
			mutate: func(dir string) error {
				return os.WriteFile(filepath.Join(dir, ContentsFile), []byte(`["only one"]`), 0644)
			},
		},
		{
			name: "vector rows lost",
			mutate: func(dir string) error {
				db, err := OpenExisting(filepath.Join(dir, VectorsFile))
				if err != nil {
					return err
				}
				defer db.Close()
				_, err = db.sqlDB.Exec("DELETE FROM embeddings WHERE position = 2")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "vectorstore")
			if err := Save(dir, sampleArtifact()); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if err := tt.mutate(dir); err != nil {
				t.Fatal(err)
			}

			_, found, err := Load(dir)
			if !found {
				t.Errorf("found = false for existing directory")
			}
			if !errors.Is(err, ErrIncompleteArtifact) {
				t.Errorf("Load() error = %v, want ErrIncompleteArtifact", err)
			}
		})
	}
}

func TestSaveRejectsMismatch(t *testing.T) {
	a := sampleArtifact()
	a.Contents = a.Contents[:2]
	if err := Save(filepath.Join(t.TempDir(), "vs"), a); !errors.Is(err, ErrIncompleteArtifact) {
		t.Errorf("Save() error = %v, want ErrIncompleteArtifact", err)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := blobToVector(vectorToBlob(in))
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("blob round trip = %v, want %v", out, in)
		}
	}

	if _, err := blobToVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
