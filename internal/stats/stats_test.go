package stats

import (
	"reflect"
	"testing"

	"github.com/DreamCats/lexrag/internal/corpus"
)

func TestCompute(t *testing.T) {
	meta := []corpus.Metadata{
		{ActID: "a1", ChunkType: corpus.ChunkOverview, Year: "1872", Language: "english"},
		{ActID: "a1", ChunkType: corpus.ChunkSection, Year: "1872", Language: "english"},
		{ActID: "a2", ChunkType: corpus.ChunkOverview, Year: "1860", Language: "english"},
		{ActID: "a3", ChunkType: corpus.ChunkOverview, Year: "2001", Language: "bengali", IsRepealed: true},
		{ActID: "a4", ChunkType: corpus.ChunkOverview, Year: "n.d."},
	}

	s := Compute(meta)

	if s.TotalChunks != 5 || s.TotalActs != 4 {
		t.Errorf("totals = %d chunks, %d acts", s.TotalChunks, s.TotalActs)
	}
	if s.ActiveActs != 3 || s.RepealedActs != 1 {
		t.Errorf("active/repealed = %d/%d", s.ActiveActs, s.RepealedActs)
	}
	if s.EarliestYear != 1860 || s.LatestYear != 2001 {
		t.Errorf("years = %d..%d", s.EarliestYear, s.LatestYear)
	}

	wantDecades := map[string]int{"1860s": 1, "1870s": 1, "2000s": 1}
	if !reflect.DeepEqual(s.ActsByDecade, wantDecades) {
		t.Errorf("ActsByDecade = %v", s.ActsByDecade)
	}
	if got := s.Decades(); !reflect.DeepEqual(got, []string{"1860s", "1870s", "2000s"}) {
		t.Errorf("Decades() = %v", got)
	}

	wantLang := map[string]int{"english": 2, "bengali": 1, "unknown": 1}
	if !reflect.DeepEqual(s.Languages, wantLang) {
		t.Errorf("Languages = %v", s.Languages)
	}
	if got := s.LanguagesByCount(); got[0] != "english" {
		t.Errorf("LanguagesByCount() = %v", got)
	}
	if s.ChunkTypes[corpus.ChunkOverview] != 4 || s.ChunkTypes[corpus.ChunkSection] != 1 {
		t.Errorf("ChunkTypes = %v", s.ChunkTypes)
	}
}

func TestDecadeOrdering(t *testing.T) {
	s := Stats{ActsByDecade: map[string]int{"990s": 1, "1990s": 1, "1800s": 1}}
	if got := s.Decades(); !reflect.DeepEqual(got, []string{"990s", "1800s", "1990s"}) {
		t.Errorf("Decades() = %v", got)
	}
	if Decade(1879) != "1870s" {
		t.Errorf("Decade(1879) = %s", Decade(1879))
	}
}
