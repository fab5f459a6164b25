// Package stats summarises the indexed corpus.
package stats

import (
	"fmt"
	"sort"

	"github.com/DreamCats/lexrag/internal/corpus"
)

// Stats describes the acts and chunks in an index. Acts are counted once
// per act id; year figures only use numeric years.
type Stats struct {
	TotalChunks  int                      `json:"total_chunks"`
	TotalActs    int                      `json:"total_acts"`
	ActiveActs   int                      `json:"active_acts"`
	RepealedActs int                      `json:"repealed_acts"`
	EarliestYear int                      `json:"earliest_year,omitempty"`
	LatestYear   int                      `json:"latest_year,omitempty"`
	ActsByDecade map[string]int           `json:"acts_by_decade"`
	Languages    map[string]int           `json:"language_distribution"`
	ChunkTypes   map[corpus.ChunkType]int `json:"chunk_types"`
}

// Compute builds statistics from index metadata
func Compute(meta []corpus.Metadata) Stats {
	s := Stats{
		TotalChunks:  len(meta),
		ActsByDecade: make(map[string]int),
		Languages:    make(map[string]int),
		ChunkTypes:   make(map[corpus.ChunkType]int),
	}

	seen := make(map[string]bool)
	for _, md := range meta {
		s.ChunkTypes[md.ChunkType]++

		if seen[md.ActID] {
			continue
		}
		seen[md.ActID] = true
		s.TotalActs++

		if md.IsRepealed {
			s.RepealedActs++
		} else {
			s.ActiveActs++
		}

		lang := md.Language
		if lang == "" {
			lang = "unknown"
		}
		s.Languages[lang]++

		year, ok := md.NumericYear()
		if !ok {
			continue
		}
		if s.EarliestYear == 0 || year < s.EarliestYear {
			s.EarliestYear = year
		}
		if year > s.LatestYear {
			s.LatestYear = year
		}
		s.ActsByDecade[Decade(year)]++
	}

	return s
}

// Decade labels a year like "1870s"
func Decade(year int) string {
	return fmt.Sprintf("%ds", year/10*10)
}

// Decades returns the decade labels in chronological order
func (s Stats) Decades() []string {
	out := make([]string, 0, len(s.ActsByDecade))
	for d := range s.ActsByDecade {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// LanguagesByCount returns language names, most common first
func (s Stats) LanguagesByCount() []string {
	out := make([]string, 0, len(s.Languages))
	for l := range s.Languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if s.Languages[out[i]] != s.Languages[out[j]] {
			return s.Languages[out[i]] > s.Languages[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
