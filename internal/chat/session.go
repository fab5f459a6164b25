package chat

import (
	"context"
	"sync"
	"time"

	"github.com/DreamCats/lexrag/internal/filter"
	"github.com/DreamCats/lexrag/internal/prompt"
	"github.com/DreamCats/lexrag/internal/retrieval"
	"github.com/google/uuid"
)

// Session is an append-only conversation. The full history is kept; only
// the prompt sees a window of it.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu    sync.Mutex
	mode  prompt.Mode
	turns []Turn
}

// NewSession starts an empty conversation
func NewSession(mode prompt.Mode) *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		mode:      mode,
	}
}

// Mode returns the session's current mode
func (s *Session) Mode() prompt.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode changes the mode used for later turns
func (s *Session) SetMode(m prompt.Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// History returns a copy of every turn so far
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// Clear forgets the conversation
func (s *Session) Clear() {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}

// LastSources returns the sources of the latest assistant turn
func (s *Session) LastSources() []retrieval.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == prompt.RoleAssistant {
			return s.turns[i].Sources
		}
	}
	return nil
}

// Ask answers query in the session's mode and records both the question
// and the reply. Prior turns are passed to the orchestrator as history.
func (s *Session) Ask(ctx context.Context, o *Orchestrator, query string, f *filter.Filter, topK int) Reply {
	s.mu.Lock()
	prior := append([]Turn(nil), s.turns...)
	mode := s.mode
	s.turns = append(s.turns, Turn{Role: prompt.RoleUser, Content: query})
	s.mu.Unlock()

	reply := o.Respond(ctx, Request{
		Query:   query,
		Mode:    mode,
		Filter:  f,
		History: prior,
		TopK:    topK,
	})

	s.mu.Lock()
	s.turns = append(s.turns, Turn{Role: prompt.RoleAssistant, Content: reply.Answer, Sources: reply.Sources})
	s.mu.Unlock()
	return reply
}

// Registry keeps sessions for the HTTP API
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create starts and registers a new session
func (r *Registry) Create(mode prompt.Mode) *Session {
	s := NewSession(mode)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get looks a session up by id
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete removes a session
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
