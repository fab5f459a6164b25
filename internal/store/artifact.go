package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DreamCats/lexrag/internal/corpus"
)

// Files that together make up one persisted index.
const (
	VectorsFile  = "vectors.db"
	ContentsFile = "contents.json"
	MetadataFile = "metadata.json"
)

// ErrIncompleteArtifact is returned when an artifact directory exists but
// does not hold all three files with matching lengths.
var ErrIncompleteArtifact = errors.New("incomplete index artifact")

// Artifact is the on-disk form of a vector index: vectors, contents and
// metadata share positions.
type Artifact struct {
	Vectors   [][]float32
	Contents  []string
	Metadata  []corpus.Metadata
	Model     string
	Dimension int
	BuiltAt   time.Time
}

func (a *Artifact) check() error {
	if len(a.Vectors) != len(a.Contents) || len(a.Vectors) != len(a.Metadata) {
		return fmt.Errorf("%w: %d vectors, %d contents, %d metadata",
			ErrIncompleteArtifact, len(a.Vectors), len(a.Contents), len(a.Metadata))
	}
	return nil
}

// Save writes the artifact to dir, replacing any previous one.
// Files are written to a sibling temp directory which is then renamed
// into place.
func Save(dir string, a *Artifact) error {
	if err := a.check(); err != nil {
		return err
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := fmt.Sprintf("%s.tmp-%d", dir, time.Now().UnixNano())
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	if err := writeAll(tmp, a); err != nil {
		os.RemoveAll(tmp)
		return err
	}

	old := ""
	if _, err := os.Stat(dir); err == nil {
		old = fmt.Sprintf("%s.old-%d", dir, time.Now().UnixNano())
		if err := os.Rename(dir, old); err != nil {
			os.RemoveAll(tmp)
			return fmt.Errorf("failed to move previous index aside: %w", err)
		}
	}

	if err := os.Rename(tmp, dir); err != nil {
		if old != "" {
			_ = os.Rename(old, dir)
		}
		os.RemoveAll(tmp)
		return fmt.Errorf("failed to install index: %w", err)
	}

	if old != "" {
		os.RemoveAll(old)
	}
	return nil
}

func writeAll(dir string, a *Artifact) error {
	db, err := Open(filepath.Join(dir, VectorsFile))
	if err != nil {
		return err
	}
	err = NewVectorStore(db).ReplaceAll(a.Vectors, IndexInfo{
		Model:     a.Model,
		Dimension: a.Dimension,
		BuiltAt:   a.BuiltAt,
	})
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write vectors: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, ContentsFile), a.Contents); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, MetadataFile), a.Metadata)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Load reads the artifact in dir. found is false, with a nil error, when
// dir does not exist.
func Load(dir string) (a *Artifact, found bool, err error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !info.IsDir() {
		return nil, false, fmt.Errorf("%s is not a directory", dir)
	}

	for _, name := range []string{VectorsFile, ContentsFile, MetadataFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return nil, true, fmt.Errorf("%w: missing %s", ErrIncompleteArtifact, name)
		}
	}

	a = &Artifact{}

	db, err := OpenExisting(filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, true, fmt.Errorf("failed to open vectors: %w", err)
	}
	defer db.Close()

	vs := NewVectorStore(db)
	meta, ok, err := vs.Info()
	if err != nil {
		return nil, true, err
	}
	if !ok {
		return nil, true, fmt.Errorf("%w: no index info", ErrIncompleteArtifact)
	}
	a.Model, a.Dimension, a.BuiltAt = meta.Model, meta.Dimension, meta.BuiltAt

	stored, err := vs.Count()
	if err != nil {
		return nil, true, err
	}
	if stored != meta.Count {
		return nil, true, fmt.Errorf("%w: info says %d vectors, found %d", ErrIncompleteArtifact, meta.Count, stored)
	}
	if a.Vectors, err = vs.LoadAll(); err != nil {
		return nil, true, err
	}

	if err := readJSON(filepath.Join(dir, ContentsFile), &a.Contents); err != nil {
		return nil, true, err
	}
	if err := readJSON(filepath.Join(dir, MetadataFile), &a.Metadata); err != nil {
		return nil, true, err
	}

	if err := a.check(); err != nil {
		return nil, true, err
	}
	return a, true, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
