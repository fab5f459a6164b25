package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// IndexInfo describes the vectors held in a vectors.db file
type IndexInfo struct {
	Model     string
	Dimension int
	Count     int
	BuiltAt   time.Time
}

// VectorStore reads and writes positional vectors
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a new vector store
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// ReplaceAll stores vectors at positions 0..n-1 together with the info row,
// replacing whatever the file held before.
func (v *VectorStore) ReplaceAll(vectors [][]float32, info IndexInfo) error {
	tx, err := v.db.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM embeddings"); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO embeddings (position, vector, dimension) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, vector := range vectors {
		if len(vector) != info.Dimension {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(vector), info.Dimension)
		}
		if _, err := stmt.Exec(i, vectorToBlob(vector), len(vector)); err != nil {
			return fmt.Errorf("failed to insert vector %d: %w", i, err)
		}
	}

	builtAt := info.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now()
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO index_info (id, model, dimension, count, built_at) VALUES (1, ?, ?, ?, ?)`,
		info.Model, info.Dimension, len(vectors), builtAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to write index info: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Info returns the info row. ok is false when the file has none.
func (v *VectorStore) Info() (info IndexInfo, ok bool, err error) {
	var builtAt any
	err = v.db.sqlDB.QueryRow("SELECT model, dimension, count, built_at FROM index_info WHERE id = 1").
		Scan(&info.Model, &info.Dimension, &info.Count, &builtAt)
	if err == sql.ErrNoRows {
		return IndexInfo{}, false, nil
	}
	if err != nil {
		return IndexInfo{}, false, fmt.Errorf("failed to read index info: %w", err)
	}
	if info.BuiltAt, err = parseTimeValue(builtAt); err != nil {
		return IndexInfo{}, false, err
	}
	return info, true, nil
}

// LoadAll returns every vector in position order.
// Positions must be contiguous from zero.
func (v *VectorStore) LoadAll() ([][]float32, error) {
	rows, err := v.db.sqlDB.Query("SELECT position, vector, dimension FROM embeddings ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var vectors [][]float32
	for rows.Next() {
		var position, dimension int
		var blob []byte
		if err := rows.Scan(&position, &blob, &dimension); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if position != len(vectors) {
			return nil, fmt.Errorf("missing vector at position %d", len(vectors))
		}

		vector, err := blobToVector(blob)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", position, err)
		}
		if len(vector) != dimension {
			return nil, fmt.Errorf("vector %d: dimension mismatch: expected %d, got %d", position, dimension, len(vector))
		}
		vectors = append(vectors, vector)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return vectors, nil
}

// Count returns the number of vectors stored
func (v *VectorStore) Count() (int, error) {
	var count int
	err := v.db.sqlDB.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return count, nil
}

// vectorToBlob converts a float32 slice to a little-endian binary blob
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], math.Float32bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to a float32 slice
func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob size %d is not a multiple of 4", len(blob))
	}

	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vector, nil
}
