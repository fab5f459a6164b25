package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Decode reads a UTF-8 JSON array of chunks. Chunks that violate the index
// invariants are logged and dropped; order of the remaining chunks is kept.
func Decode(r io.Reader) ([]Chunk, error) {
	var raw []Chunk
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}

	chunks := make([]Chunk, 0, len(raw))
	for i := range raw {
		c := raw[i]
		if err := c.Validate(); err != nil {
			log.Printf("Warning: skipping chunk %d: %v", i, err)
			continue
		}
		// The parallel metadata array is the only record restored with the
		// index, so it carries the chunk identity too.
		c.Metadata.ChunkID = c.ID
		c.Metadata.ChunkType = c.Type
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// LoadFile reads chunks from a single JSON file
func LoadFile(path string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk file: %w", err)
	}
	defer f.Close()

	chunks, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chunks, nil
}

// LoadGlob reads every file matching a doublestar pattern (for example
// "data/**/*.json") in lexical path order and concatenates their chunks.
// Duplicate chunk ids keep the first occurrence.
func LoadGlob(pattern string) ([]Chunk, error) {
	base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))
	matches, err := doublestar.Glob(os.DirFS(base), rel, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid chunk pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no chunk files match %q", pattern)
	}
	sort.Strings(matches)

	seen := make(map[string]bool)
	var all []Chunk
	for _, m := range matches {
		chunks, err := LoadFile(filepath.Join(base, filepath.FromSlash(m)))
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if seen[c.ID] {
				log.Printf("Warning: duplicate chunk_id %s in %s, keeping first", c.ID, m)
				continue
			}
			seen[c.ID] = true
			all = append(all, c)
		}
		log.Printf("Loaded %d chunks from %s", len(chunks), m)
	}
	return all, nil
}
