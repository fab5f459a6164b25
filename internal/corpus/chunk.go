package corpus

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ChunkType distinguishes act overviews from individual sections
type ChunkType string

const (
	ChunkOverview ChunkType = "overview"
	ChunkSection  ChunkType = "section"
)

// Chunk is one retrievable unit of legal text produced by the document processor
type Chunk struct {
	ID       string    `json:"chunk_id"`
	Content  string    `json:"content"`
	Type     ChunkType `json:"chunk_type"`
	Metadata Metadata  `json:"metadata"`
}

// Metadata describes the act a chunk belongs to.
//
// Year keeps the raw act_year string because the source data carries
// non-numeric values; use NumericYear for comparisons.
type Metadata struct {
	ChunkID   string    `json:"chunk_id,omitempty"`
	ChunkType ChunkType `json:"chunk_type,omitempty"`

	ActID           string `json:"act_id"`
	ActTitle        string `json:"act_title"`
	ActTitleBengali string `json:"act_title_bengali,omitempty"`
	ActNumber       string `json:"act_number,omitempty"`
	Year            string `json:"act_year"`
	PublicationDate string `json:"publication_date,omitempty"`
	IsRepealed      bool   `json:"is_repealed"`
	RepealedBy      string `json:"repealed_by,omitempty"`
	Language        string `json:"language_detected"`
	SectionTitle    string `json:"section_title,omitempty"`
	SectionNumber   int    `json:"section_number,omitempty"`
	Chapter         string `json:"chapter,omitempty"`
	URL             string `json:"url,omitempty"`
	TotalSections   int    `json:"total_sections,omitempty"`
}

// NumericYear parses act_year. Any Unicode decimal digits are accepted, so
// Bengali "১৮৭২" is 1872. ok is false when the year is absent or not a plain
// integer, in which case year-range filters must reject the record.
func (m Metadata) NumericYear() (year int, ok bool) {
	s := strings.TrimSpace(m.Year)
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		d, isDigit := digitValue(r)
		if !isDigit {
			return 0, false
		}
		n++
		if n > 9 {
			return 0, false
		}
		year = year*10 + d
	}
	return year, true
}

// digitValue returns the value of a decimal digit in any script.
// Decimal digits are encoded in contiguous runs of ten starting at zero.
func digitValue(r rune) (int, bool) {
	if r >= '0' && r <= '9' {
		return int(r - '0'), true
	}
	if !unicode.IsDigit(r) {
		return 0, false
	}
	start := r
	for unicode.IsDigit(start - 1) {
		start--
	}
	return int(r-start) % 10, true
}

// Section returns the section label, "Overview" when the chunk has none
func (m Metadata) Section() string {
	if m.SectionTitle == "" {
		return "Overview"
	}
	return m.SectionTitle
}

// Title returns the English title, falling back to the Bengali one
func (m Metadata) Title() string {
	if m.ActTitle != "" {
		return m.ActTitle
	}
	if m.ActTitleBengali != "" {
		return m.ActTitleBengali
	}
	return "N/A"
}

// Status renders the repeal flag the way sources are shown to users
func (m Metadata) Status() string {
	if m.IsRepealed {
		return "Repealed"
	}
	return "Active"
}

// UnmarshalJSON accepts the loosely typed values the processor emits:
// act_year as number or string, is_repealed as bool, number or string,
// and counts as numbers or numeric strings.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(key string) string {
		v, ok := raw[key]
		if !ok {
			return ""
		}
		return looseString(v)
	}

	m.ChunkID = str("chunk_id")
	m.ChunkType = ChunkType(str("chunk_type"))
	m.ActID = str("act_id")
	m.ActTitle = str("act_title")
	m.ActTitleBengali = str("act_title_bengali")
	m.ActNumber = str("act_number")
	m.Year = str("act_year")
	m.PublicationDate = str("publication_date")
	m.RepealedBy = str("repealed_by")
	m.Language = str("language_detected")
	m.SectionTitle = str("section_title")
	m.Chapter = str("chapter")
	m.URL = str("url")

	m.IsRepealed = looseBool(raw["is_repealed"])
	m.SectionNumber = looseInt(raw["section_number"])
	m.TotalSections = looseInt(raw["total_sections"])
	return nil
}

func looseString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		// 1872.0 from a float column is still the year 1872
		if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return n.String()
	}
	return ""
}

func looseBool(v json.RawMessage) bool {
	if len(v) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b
	}
	switch strings.ToLower(looseString(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func looseInt(v json.RawMessage) int {
	if len(v) == 0 {
		return 0
	}
	n, err := strconv.Atoi(looseString(v))
	if err != nil {
		return 0
	}
	return n
}

// Validate checks the invariants a chunk must hold before indexing
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("chunk_id is required")
	}
	if c.Metadata.ActID == "" {
		return fmt.Errorf("chunk %s: act_id is required", c.ID)
	}
	switch c.Type {
	case ChunkOverview, ChunkSection:
	default:
		return fmt.Errorf("chunk %s: unknown chunk_type %q", c.ID, c.Type)
	}
	return nil
}
