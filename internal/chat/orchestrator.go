// Package chat runs retrieval-augmented conversation turns.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/DreamCats/lexrag/internal/filter"
	"github.com/DreamCats/lexrag/internal/generation"
	"github.com/DreamCats/lexrag/internal/metrics"
	"github.com/DreamCats/lexrag/internal/prompt"
	"github.com/DreamCats/lexrag/internal/retrieval"
	"github.com/DreamCats/lexrag/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultHistoryWindow is how many prior turns are shown to the model
	DefaultHistoryWindow = 10
	// DefaultTopK is used when a request does not set TopK
	DefaultTopK = 5

	emptyReply  = "I apologize, but I couldn't generate a response. Please try rephrasing your question."
	errorPrefix = "I encountered an error while processing your request: "
)

// Searcher finds passages relevant to a query
type Searcher interface {
	Search(ctx context.Context, query string, topK int, f *filter.Filter) ([]retrieval.Result, error)
}

// Turn is one message in a conversation. Assistant turns carry the
// sources their answer was grounded on.
type Turn struct {
	Role    prompt.Role        `json:"role"`
	Content string             `json:"content"`
	Sources []retrieval.Result `json:"sources,omitempty"`
}

// Request is a single chat turn to answer
type Request struct {
	Query   string
	Mode    prompt.Mode
	Filter  *filter.Filter
	History []Turn
	TopK    int
}

// Reply is the outcome of a turn. Failed is set when Answer is an apology
// produced in place of a model answer.
type Reply struct {
	Answer  string             `json:"response"`
	Sources []retrieval.Result `json:"sources"`
	Failed  bool               `json:"failed,omitempty"`
}

// Orchestrator sequences search, prompt rendering and generation
type Orchestrator struct {
	searcher      Searcher
	generator     generation.Generator
	historyWindow int
	contextChars  int
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithHistoryWindow sets how many prior turns reach the prompt
func WithHistoryWindow(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.historyWindow = n
		}
	}
}

// WithContextChars sets the per-source content limit in the prompt
func WithContextChars(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.contextChars = n
		}
	}
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(searcher Searcher, generator generation.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		searcher:      searcher,
		generator:     generator,
		historyWindow: DefaultHistoryWindow,
		contextChars:  prompt.DefaultContextChars,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Respond answers one turn. It always returns a reply: failures in search
// or generation become an apology with no sources.
func (o *Orchestrator) Respond(ctx context.Context, req Request) (reply Reply) {
	ctx, span := tracing.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("chat.mode", req.Mode.String()),
		attribute.Int("chat.history", len(req.History)),
	))
	defer func() {
		span.SetAttributes(
			attribute.Bool("chat.failed", reply.Failed),
			attribute.Int("chat.sources", len(reply.Sources)),
		)
		span.End()
	}()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error: chat turn panicked: %v", r)
			reply = o.failure(req.Mode, fmt.Errorf("%v", r))
		}
	}()

	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	sources, err := o.searcher.Search(ctx, req.Query, topK, req.Filter)
	if err != nil {
		log.Printf("Error: search failed: %v", err)
		return o.failure(req.Mode, err)
	}

	text := prompt.Render(req.Mode, req.Query,
		prompt.BuildContext(sources, o.contextChars),
		o.window(req.History))

	answer, err := o.generator.Generate(ctx, text)
	if err != nil {
		log.Printf("Error: generation failed: %v", err)
		return o.failure(req.Mode, err)
	}

	if strings.TrimSpace(answer) == "" {
		metrics.ChatTurns.WithLabelValues(req.Mode.String(), "empty").Inc()
		return Reply{Answer: emptyReply, Sources: sources}
	}

	metrics.ChatTurns.WithLabelValues(req.Mode.String(), "answered").Inc()
	return Reply{Answer: answer, Sources: sources}
}

func (o *Orchestrator) failure(mode prompt.Mode, err error) Reply {
	metrics.ChatTurns.WithLabelValues(mode.String(), "error").Inc()
	return Reply{
		Answer:  errorPrefix + err.Error(),
		Sources: []retrieval.Result{},
		Failed:  true,
	}
}

// window returns the last historyWindow turns as prompt history
func (o *Orchestrator) window(history []Turn) []prompt.Turn {
	if len(history) > o.historyWindow {
		history = history[len(history)-o.historyWindow:]
	}
	out := make([]prompt.Turn, len(history))
	for i, t := range history {
		out[i] = prompt.Turn{Role: t.Role, Content: t.Content}
	}
	return out
}
