package mcpserver

import (
	"github.com/DreamCats/lexrag/internal/chat"
	"github.com/DreamCats/lexrag/internal/filter"
	"github.com/DreamCats/lexrag/internal/prompt"
	"github.com/DreamCats/lexrag/internal/retrieval"
)

// FilterInput is the flattened filter shared by the search and chat tools.
type FilterInput struct {
	YearFrom   *int     `json:"year_from,omitempty" jsonschema:"earliest enactment year (inclusive); requires year_to"`
	YearTo     *int     `json:"year_to,omitempty" jsonschema:"latest enactment year (inclusive); requires year_from"`
	IsRepealed *bool    `json:"is_repealed,omitempty" jsonschema:"only repealed (true) or only active (false) acts"`
	Language   string   `json:"language,omitempty" jsonschema:"detected language, e.g. english or bengali"`
	Keywords   []string `json:"keywords,omitempty" jsonschema:"act title must contain at least one of these words"`
}

func (in *FilterInput) toFilter() *filter.Filter {
	if in == nil {
		return nil
	}
	f := &filter.Filter{
		IsRepealed: in.IsRepealed,
		Keywords:   in.Keywords,
	}
	if in.YearFrom != nil && in.YearTo != nil {
		f.YearRange = &filter.YearRange{From: *in.YearFrom, To: *in.YearTo}
	}
	if in.Language != "" {
		f.Language = filter.Str(in.Language)
	}
	if f.IsEmpty() {
		return nil
	}
	return f
}

// SearchInput defines inputs for the lexrag_search MCP tool.
type SearchInput struct {
	Query   string       `json:"query" jsonschema:"legal question or keywords"`
	TopK    int          `json:"top_k,omitempty" jsonschema:"number of results to return (1-20)"`
	Filters *FilterInput `json:"filters,omitempty" jsonschema:"optional metadata filters"`
}

// SourceItem is a compact representation of a retrieved chunk.
type SourceItem struct {
	ChunkID   string  `json:"chunk_id"`
	ChunkType string  `json:"chunk_type"`
	ActTitle  string  `json:"act_title"`
	Year      string  `json:"year"`
	Section   string  `json:"section"`
	Status    string  `json:"status"`
	Score     float32 `json:"score"`
	Preview   string  `json:"preview"`
}

// SearchOutput is the output for lexrag_search.
type SearchOutput struct {
	Query   string       `json:"query"`
	Filter  string       `json:"filter"`
	Count   int          `json:"count"`
	Results []SourceItem `json:"results"`
}

// HistoryTurn is one prior conversation message.
type HistoryTurn struct {
	Role    string `json:"role" jsonschema:"user or assistant"`
	Content string `json:"content"`
}

// ChatInput defines inputs for the lexrag_chat MCP tool.
type ChatInput struct {
	Query   string        `json:"query" jsonschema:"question to answer from the legal corpus"`
	Mode    string        `json:"mode,omitempty" jsonschema:"general, lawyer, argument, research or simple"`
	TopK    int           `json:"top_k,omitempty" jsonschema:"number of documents to ground the answer on (1-20)"`
	History []HistoryTurn `json:"history,omitempty" jsonschema:"earlier turns of the conversation, oldest first"`
	Filters *FilterInput  `json:"filters,omitempty" jsonschema:"optional metadata filters"`
}

// ChatOutput is the output for lexrag_chat.
type ChatOutput struct {
	Response string       `json:"response"`
	Mode     string       `json:"mode"`
	Failed   bool         `json:"failed"`
	Sources  []SourceItem `json:"sources"`
}

// StatusInput defines inputs for the lexrag_status MCP tool.
type StatusInput struct{}

// StatusOutput reports the state of the loaded index.
type StatusOutput struct {
	Indexed      bool   `json:"indexed"`
	IndexDir     string `json:"index_dir"`
	Chunks       int    `json:"chunks,omitempty"`
	Acts         int    `json:"acts,omitempty"`
	Model        string `json:"model,omitempty"`
	Dimension    int    `json:"dimension,omitempty"`
	BuiltAt      string `json:"built_at,omitempty"`
	IndexAge     string `json:"index_age,omitempty"`
	ArtifactSize string `json:"artifact_size,omitempty"`
	Message      string `json:"message,omitempty"`
}

const previewChars = 400

func mapResults(results []retrieval.Result) []SourceItem {
	items := make([]SourceItem, 0, len(results))
	for _, r := range results {
		items = append(items, SourceItem{
			ChunkID:   r.ChunkID,
			ChunkType: string(r.ChunkType),
			ActTitle:  r.Metadata.Title(),
			Year:      r.Metadata.Year,
			Section:   r.Metadata.Section(),
			Status:    r.Metadata.Status(),
			Score:     r.Score,
			Preview:   prompt.Truncate(r.Content, previewChars),
		})
	}
	return items
}

func mapHistory(turns []HistoryTurn) []chat.Turn {
	out := make([]chat.Turn, 0, len(turns))
	for _, t := range turns {
		role := prompt.RoleUser
		if t.Role == string(prompt.RoleAssistant) {
			role = prompt.RoleAssistant
		}
		out = append(out, chat.Turn{Role: role, Content: t.Content})
	}
	return out
}
