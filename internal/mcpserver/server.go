// Package mcpserver exposes legal search and chat as MCP tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/DreamCats/lexrag/internal/chat"
	"github.com/DreamCats/lexrag/internal/filter"
	"github.com/DreamCats/lexrag/internal/index"
	"github.com/DreamCats/lexrag/internal/prompt"
	"github.com/DreamCats/lexrag/internal/retrieval"
	"github.com/DreamCats/lexrag/internal/stats"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Searcher runs filtered similarity search
type Searcher interface {
	Search(ctx context.Context, query string, topK int, f *filter.Filter) ([]retrieval.Result, error)
}

// SnapshotSource yields the active index
type SnapshotSource interface {
	Current() *index.Snapshot
}

// Options configures tool defaults
type Options struct {
	IndexDir    string
	DefaultTopK int
	MaxTopK     int
	DefaultMode string
}

// Server exposes lexrag search and chat via MCP stdio.
type Server struct {
	source   SnapshotSource
	searcher Searcher
	chat     *chat.Orchestrator
	opts     Options
	version  string
}

// New creates a new MCP server wrapper.
func New(source SnapshotSource, searcher Searcher, orchestrator *chat.Orchestrator, opts Options, version string) *Server {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = chat.DefaultTopK
	}
	if opts.MaxTopK < opts.DefaultTopK {
		opts.MaxTopK = opts.DefaultTopK
	}
	return &Server{
		source:   source,
		searcher: searcher,
		chat:     orchestrator,
		opts:     opts,
		version:  version,
	}
}

// Run starts the MCP stdio server.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer().Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) mcpServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "lexrag",
		Title:   "LexRAG",
		Version: s.version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "lexrag_search",
		Description: `Find the statute chunks most similar to a legal question.

Filters (all optional, combined with AND):
- year_from / year_to: enactment year range, both bounds inclusive
- is_repealed: true for repealed acts only, false for acts in force
- language: detected language of the act (english, bengali, ...)
- keywords: act title must contain at least one keyword (case-insensitive)

Results carry the act title, year, section, status, similarity score and a content preview.`,
	}, s.searchTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "lexrag_chat",
		Description: `Answer a legal question grounded on retrieved statutes.

Modes:
- general: balanced explanation for any audience (default)
- lawyer: technical analysis with precise citations
- argument: arguments, counter-arguments and precedents
- research: chronological and comparative study of the law
- simple: plain-language explanation

Unknown modes fall back to general. Pass earlier turns in history to keep a conversation going.
The tool always answers; failures are reported in the response text with failed=true.`,
	}, s.chatTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "lexrag_status",
		Description: `Check whether the legal index is loaded.

Returns chunk and act counts, the embedding model, build time and age, and the size of the persisted index.`,
	}, s.statusTool)

	return server
}

func (s *Server) topK(requested int) (int, error) {
	switch {
	case requested == 0:
		return s.opts.DefaultTopK, nil
	case requested < 0 || requested > s.opts.MaxTopK:
		return 0, fmt.Errorf("top_k must be between 1 and %d", s.opts.MaxTopK)
	default:
		return requested, nil
	}
}

func (s *Server) searchTool(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}
	topK, err := s.topK(input.TopK)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	f := input.Filters.toFilter()
	results, err := s.searcher.Search(ctx, input.Query, topK, f)
	if err != nil {
		if !errors.Is(err, retrieval.ErrIndexNotReady) {
			log.Printf("Error: mcp search %q: %v", input.Query, err)
		}
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		Query:   input.Query,
		Filter:  f.String(),
		Count:   len(results),
		Results: mapResults(results),
	}, nil
}

func (s *Server) chatTool(ctx context.Context, _ *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, ChatOutput, error) {
	if input.Query == "" {
		return nil, ChatOutput{}, fmt.Errorf("query is required")
	}
	topK, err := s.topK(input.TopK)
	if err != nil {
		return nil, ChatOutput{}, err
	}

	name := input.Mode
	if name == "" {
		name = s.opts.DefaultMode
	}
	mode := prompt.ParseMode(name)

	reply := s.chat.Respond(ctx, chat.Request{
		Query:   input.Query,
		Mode:    mode,
		Filter:  input.Filters.toFilter(),
		History: mapHistory(input.History),
		TopK:    topK,
	})

	return nil, ChatOutput{
		Response: reply.Answer,
		Mode:     mode.String(),
		Failed:   reply.Failed,
		Sources:  mapResults(reply.Sources),
	}, nil
}

func (s *Server) statusTool(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	output := StatusOutput{IndexDir: s.opts.IndexDir}

	snap := s.source.Current()
	if snap == nil {
		output.Message = "Index is not built. Run 'lexrag index' to create it."
		return nil, output, nil
	}

	output.Indexed = true
	output.Chunks = snap.Len()
	output.Acts = stats.Compute(snap.Metadata).TotalActs
	output.Model = snap.Model
	output.Dimension = snap.Index.Dim()
	if !snap.BuiltAt.IsZero() {
		output.BuiltAt = snap.BuiltAt.UTC().Format(time.RFC3339)
		output.IndexAge = formatDuration(time.Since(snap.BuiltAt))
	}

	if s.opts.IndexDir != "" {
		size, err := artifactSize(s.opts.IndexDir)
		if err != nil {
			output.Message = fmt.Sprintf("Index is loaded but the persisted copy is unreadable: %v", err)
			return nil, output, nil
		}
		output.ArtifactSize = formatBytes(size)
	}

	return nil, output, nil
}
