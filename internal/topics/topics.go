// Package topics groups acts into broad legal categories by title.
package topics

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/DreamCats/lexrag/internal/corpus"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Category is a named set of title keywords. An act belongs to a category
// when a word of its title starts with any keyword.
type Category struct {
	Name     string
	Keywords []string
}

var Categories = []Category{
	{"Criminal Law", []string{"criminal", "penal", "police", "crime"}},
	{"Civil Law", []string{"civil", "contract", "property", "family"}},
	{"Commercial Law", []string{"company", "business", "trade", "commercial"}},
	{"Constitutional Law", []string{"constitution", "fundamental", "rights"}},
	{"Administrative Law", []string{"government", "administrative", "public"}},
	{"Tax Law", []string{"tax", "income", "customs", "vat"}},
	{"Labor Law", []string{"labor", "employment", "worker", "industrial"}},
}

// LookupCategory finds a category by name or by its first word, ignoring case
func LookupCategory(name string) (Category, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range Categories {
		full := strings.ToLower(c.Name)
		if name == full || name == strings.Fields(full)[0] {
			return c, true
		}
	}
	return Category{}, false
}

// Act is one statute as listed by the explorer
type Act struct {
	ID       string `json:"act_id"`
	Title    string `json:"title"`
	Number   string `json:"act_number,omitempty"`
	Year     string `json:"year"`
	Repealed bool   `json:"is_repealed"`
	Sections int    `json:"total_sections,omitempty"`
}

// WordCount is a title word and how many acts use it
type WordCount struct {
	Word string `json:"word"`
	Acts int    `json:"acts"`
}

// Explorer answers category questions over an in-memory title index
type Explorer struct {
	index bleve.Index
	acts  map[string]Act
	order map[string]int
}

// NewExplorer indexes one entry per act id, in first-seen order
func NewExplorer(meta []corpus.Metadata) (*Explorer, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create title index: %w", err)
	}

	e := &Explorer{
		index: idx,
		acts:  make(map[string]Act),
		order: make(map[string]int),
	}

	batch := idx.NewBatch()
	for _, md := range meta {
		if _, ok := e.acts[md.ActID]; ok {
			continue
		}
		act := Act{
			ID:       md.ActID,
			Title:    md.Title(),
			Number:   md.ActNumber,
			Year:     md.Year,
			Repealed: md.IsRepealed,
			Sections: md.TotalSections,
		}
		e.order[act.ID] = len(e.acts)
		e.acts[act.ID] = act
		if err := batch.Index(act.ID, map[string]interface{}{"title": md.ActTitle}); err != nil {
			idx.Close()
			return nil, fmt.Errorf("index act %s: %w", act.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return nil, fmt.Errorf("index titles: %w", err)
	}

	return e, nil
}

func buildMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultField = "title"

	docMapping := bleve.NewDocumentMapping()
	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = "standard"
	titleField.Store = false
	titleField.Index = true
	docMapping.AddFieldMappingsAt("title", titleField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Total returns the number of distinct acts
func (e *Explorer) Total() int {
	return len(e.acts)
}

// Count returns how many acts fall in c
func (e *Explorer) Count(c Category) (int, error) {
	_, total, err := e.Acts(c, 0)
	return total, err
}

// Acts lists up to limit acts of category c in corpus order, plus the
// total number that matched. limit <= 0 lists none.
func (e *Explorer) Acts(c Category, limit int) ([]Act, int, error) {
	if len(e.acts) == 0 || len(c.Keywords) == 0 {
		return nil, 0, nil
	}

	disjuncts := make([]query.Query, 0, len(c.Keywords))
	for _, kw := range c.Keywords {
		q := bleve.NewPrefixQuery(strings.ToLower(kw))
		q.SetField("title")
		disjuncts = append(disjuncts, q)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(disjuncts...), len(e.acts), 0, false)
	res, err := e.index.Search(req)
	if err != nil {
		return nil, 0, fmt.Errorf("search %s: %w", c.Name, err)
	}

	acts := make([]Act, 0, len(res.Hits))
	for _, hit := range res.Hits {
		acts = append(acts, e.acts[hit.ID])
	}
	sort.Slice(acts, func(i, j int) bool {
		return e.order[acts[i].ID] < e.order[acts[j].ID]
	})

	total := int(res.Total)
	if limit < len(acts) {
		acts = acts[:max(limit, 0)]
	}
	return acts, total, nil
}

// CommonWords returns the n title words used by the most acts.
// Words shorter than three letters and numbers are left out.
func (e *Explorer) CommonWords(n int) ([]WordCount, error) {
	dict, err := e.index.FieldDict("title")
	if err != nil {
		return nil, fmt.Errorf("read title terms: %w", err)
	}
	defer dict.Close()

	var words []WordCount
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, fmt.Errorf("read title terms: %w", err)
		}
		if entry == nil {
			break
		}
		if len([]rune(entry.Term)) < 3 || isNumber(entry.Term) {
			continue
		}
		words = append(words, WordCount{Word: entry.Term, Acts: int(entry.Count)})
	}

	sort.Slice(words, func(i, j int) bool {
		if words[i].Acts != words[j].Acts {
			return words[i].Acts > words[j].Acts
		}
		return words[i].Word < words[j].Word
	})
	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return words, nil
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Close releases the title index
func (e *Explorer) Close() error {
	return e.index.Close()
}
