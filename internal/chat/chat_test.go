package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/DreamCats/lexrag/internal/corpus"
	"github.com/DreamCats/lexrag/internal/filter"
	"github.com/DreamCats/lexrag/internal/prompt"
	"github.com/DreamCats/lexrag/internal/retrieval"
)

type stubSearcher struct {
	results []retrieval.Result
	err     error

	gotTopK   int
	gotFilter *filter.Filter
}

func (s *stubSearcher) Search(ctx context.Context, query string, topK int, f *filter.Filter) ([]retrieval.Result, error) {
	s.gotTopK, s.gotFilter = topK, f
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type scriptedGenerator struct {
	answer  string
	err     error
	panicky bool
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, p string) (string, error) {
	g.prompts = append(g.prompts, p)
	if g.panicky {
		panic("nil candidate")
	}
	return g.answer, g.err
}

func (g *scriptedGenerator) Model() string { return "scripted" }

func contractSource() []retrieval.Result {
	return []retrieval.Result{{
		Content:   "All agreements are contracts if made by free consent.",
		Metadata:  corpus.Metadata{ActID: "a1", ActTitle: "Contract Act", Year: "1872"},
		Score:     0.91,
		ChunkID:   "a1_section_10",
		ChunkType: corpus.ChunkSection,
	}}
}

func TestRespondSuccess(t *testing.T) {
	searcher := &stubSearcher{results: contractSource()}
	gen := &scriptedGenerator{answer: "A contract needs free consent."}
	o := NewOrchestrator(searcher, gen)

	f := &filter.Filter{IsRepealed: filter.Bool(false)}
	reply := o.Respond(context.Background(), Request{Query: "What makes a contract?", Mode: prompt.Lawyer, Filter: f})

	if reply.Failed || reply.Answer != "A contract needs free consent." {
		t.Errorf("reply = %+v", reply)
	}
	if len(reply.Sources) != 1 || reply.Sources[0].ChunkID != "a1_section_10" {
		t.Errorf("sources = %+v", reply.Sources)
	}
	if searcher.gotTopK != DefaultTopK || searcher.gotFilter != f {
		t.Errorf("search called with top_k=%d filter=%v", searcher.gotTopK, searcher.gotFilter)
	}

	p := gen.prompts[0]
	for _, want := range []string{"Title: Contract Act", "Current Query: What makes a contract?", "LAWYER MODE:"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestRespondNeverFails(t *testing.T) {
	tests := []struct {
		name     string
		searcher *stubSearcher
		gen      *scriptedGenerator
		wantText string
	}{
		{
			name:     "generation error",
			searcher: &stubSearcher{results: contractSource()},
			gen:      &scriptedGenerator{err: errors.New("openai generate: 429 quota exceeded")},
			wantText: "I encountered an error while processing your request: openai generate: 429 quota exceeded",
		},
		{
			name:     "index not ready",
			searcher: &stubSearcher{err: retrieval.ErrIndexNotReady},
			gen:      &scriptedGenerator{answer: "unused"},
			wantText: "I encountered an error while processing your request: " + retrieval.ErrIndexNotReady.Error(),
		},
		{
			name:     "generator panics",
			searcher: &stubSearcher{results: contractSource()},
			gen:      &scriptedGenerator{panicky: true},
			wantText: "I encountered an error while processing your request: nil candidate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(tt.searcher, tt.gen)
			reply := o.Respond(context.Background(), Request{Query: "q", Mode: prompt.General})

			if !reply.Failed {
				t.Error("Failed = false")
			}
			if reply.Answer != tt.wantText {
				t.Errorf("Answer = %q, want %q", reply.Answer, tt.wantText)
			}
			if reply.Sources == nil || len(reply.Sources) != 0 {
				t.Errorf("Sources = %#v, want empty", reply.Sources)
			}
		})
	}
}

func TestRespondEmptyReply(t *testing.T) {
	o := NewOrchestrator(&stubSearcher{results: contractSource()}, &scriptedGenerator{answer: "  \n"})
	reply := o.Respond(context.Background(), Request{Query: "q"})

	if reply.Answer != emptyReply {
		t.Errorf("Answer = %q", reply.Answer)
	}
	if len(reply.Sources) != 1 {
		t.Errorf("empty reply should keep sources, got %d", len(reply.Sources))
	}
}

func TestRespondNoSources(t *testing.T) {
	gen := &scriptedGenerator{answer: "I could not find that."}
	o := NewOrchestrator(&stubSearcher{results: []retrieval.Result{}}, gen)
	o.Respond(context.Background(), Request{Query: "q", TopK: 3})

	if !strings.Contains(gen.prompts[0], "Available Legal Context:\n"+prompt.NoContext) {
		t.Errorf("prompt lacks the no-context marker:\n%s", gen.prompts[0])
	}
}

func TestRespondHistoryWindow(t *testing.T) {
	var history []Turn
	for i := 0; i < 15; i++ {
		role := prompt.RoleUser
		if i%2 == 1 {
			role = prompt.RoleAssistant
		}
		history = append(history, Turn{Role: role, Content: fmt.Sprintf("turn-%02d", i)})
	}

	gen := &scriptedGenerator{answer: "ok"}
	o := NewOrchestrator(&stubSearcher{}, gen)
	o.Respond(context.Background(), Request{Query: "q", History: history})

	p := gen.prompts[0]
	for i := 0; i < 15; i++ {
		marker := fmt.Sprintf("turn-%02d", i)
		if in := strings.Contains(p, marker); in != (i >= 5) {
			t.Errorf("%s in prompt = %v", marker, in)
		}
	}
	if len(history) != 15 {
		t.Error("caller history must not be truncated")
	}

	gen.prompts = nil
	NewOrchestrator(&stubSearcher{}, gen, WithHistoryWindow(2)).Respond(context.Background(), Request{Query: "q", History: history})
	if strings.Contains(gen.prompts[0], "turn-12") || !strings.Contains(gen.prompts[0], "turn-13") {
		t.Errorf("WithHistoryWindow(2) not applied:\n%s", gen.prompts[0])
	}
}

func TestSessionAsk(t *testing.T) {
	gen := &scriptedGenerator{answer: "first answer"}
	o := NewOrchestrator(&stubSearcher{results: contractSource()}, gen)
	s := NewSession(prompt.Simple)

	if s.ID == "" {
		t.Fatal("session id is empty")
	}

	s.Ask(context.Background(), o, "first question", nil, 5)
	gen.answer = "second answer"
	s.SetMode(prompt.Research)
	reply := s.Ask(context.Background(), o, "second question", nil, 5)

	if reply.Answer != "second answer" {
		t.Errorf("Answer = %q", reply.Answer)
	}

	history := s.History()
	if len(history) != 4 {
		t.Fatalf("history has %d turns, want 4", len(history))
	}
	wantRoles := []prompt.Role{prompt.RoleUser, prompt.RoleAssistant, prompt.RoleUser, prompt.RoleAssistant}
	for i, r := range wantRoles {
		if history[i].Role != r {
			t.Errorf("turn %d role = %s, want %s", i, history[i].Role, r)
		}
	}
	if len(history[1].Sources) != 1 {
		t.Errorf("assistant turn should carry sources")
	}

	second := gen.prompts[1]
	if !strings.Contains(second, "User: first question\nAssistant: first answer") {
		t.Errorf("second prompt lacks prior turns:\n%s", second)
	}
	if strings.Contains(second, "User: second question") {
		t.Errorf("current question should not be repeated in history")
	}
	if !strings.Contains(second, "RESEARCH MODE:") {
		t.Errorf("mode change not applied")
	}

	if len(s.LastSources()) != 1 {
		t.Errorf("LastSources() = %v", s.LastSources())
	}
	s.Clear()
	if len(s.History()) != 0 || s.LastSources() != nil {
		t.Errorf("Clear() left turns behind")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	s := r.Create(prompt.General)

	got, ok := r.Get(s.ID)
	if !ok || got != s {
		t.Fatalf("Get(%q) = %v, %v", s.ID, got, ok)
	}
	if other := r.Create(prompt.General); other.ID == s.ID {
		t.Error("session ids collide")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d", r.Len())
	}

	r.Delete(s.ID)
	if _, ok := r.Get(s.ID); ok {
		t.Error("session still present after Delete")
	}
}
