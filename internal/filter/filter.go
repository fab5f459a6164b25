// Package filter narrows search results by act metadata.
package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DreamCats/lexrag/internal/corpus"
)

// YearRange is an inclusive range of enactment years
type YearRange struct {
	From int
	To   int
}

// MarshalJSON encodes the range as [from, to]
func (r YearRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.From, r.To})
}

// UnmarshalJSON accepts [from, to]
func (r *YearRange) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("year_range: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("year_range must have two elements, got %d", len(pair))
	}
	r.From, r.To = pair[0], pair[1]
	return nil
}

// Filter is a conjunction of optional predicates. A nil field imposes no
// constraint, so the zero Filter matches everything.
type Filter struct {
	YearRange  *YearRange `json:"year_range,omitempty"`
	IsRepealed *bool      `json:"is_repealed,omitempty"`
	Language   *string    `json:"language,omitempty"`
	// Keywords match when any of them occurs in the act title, ignoring case.
	Keywords []string `json:"keywords,omitempty"`
}

// IsEmpty reports whether f imposes no constraint
func (f *Filter) IsEmpty() bool {
	return f == nil || (f.YearRange == nil && f.IsRepealed == nil && f.Language == nil && len(f.Keywords) == 0)
}

// Passes reports whether md satisfies every predicate in f.
// A nil filter passes everything.
func (f *Filter) Passes(md corpus.Metadata) bool {
	if f == nil {
		return true
	}

	if f.YearRange != nil {
		year, ok := md.NumericYear()
		if !ok || year < f.YearRange.From || year > f.YearRange.To {
			return false
		}
	}

	if f.IsRepealed != nil && md.IsRepealed != *f.IsRepealed {
		return false
	}

	if f.Language != nil && md.Language != *f.Language {
		return false
	}

	if len(f.Keywords) > 0 && !titleHasAny(md.ActTitle, f.Keywords) {
		return false
	}

	return true
}

func titleHasAny(title string, keywords []string) bool {
	title = strings.ToLower(title)
	for _, k := range keywords {
		if strings.Contains(title, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// String renders the active predicates, for logs
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "none"
	}
	var parts []string
	if f.YearRange != nil {
		parts = append(parts, fmt.Sprintf("year=%d-%d", f.YearRange.From, f.YearRange.To))
	}
	if f.IsRepealed != nil {
		parts = append(parts, fmt.Sprintf("repealed=%t", *f.IsRepealed))
	}
	if f.Language != nil {
		parts = append(parts, "language="+*f.Language)
	}
	if len(f.Keywords) > 0 {
		parts = append(parts, "keywords="+strings.Join(f.Keywords, "|"))
	}
	return strings.Join(parts, " ")
}

// Bool returns a pointer to b, for building filters
func Bool(b bool) *bool { return &b }

// Str returns a pointer to s, for building filters
func Str(s string) *string { return &s }
