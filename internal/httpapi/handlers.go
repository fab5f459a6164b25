package httpapi

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/DreamCats/lexrag/internal/chat"
	"github.com/DreamCats/lexrag/internal/filter"
	"github.com/DreamCats/lexrag/internal/prompt"
	"github.com/DreamCats/lexrag/internal/retrieval"
	"github.com/DreamCats/lexrag/internal/stats"
	"github.com/gin-gonic/gin"
)

// SearchRequest is the body of POST /v1/search
type SearchRequest struct {
	Query   string         `json:"query" binding:"required"`
	TopK    int            `json:"top_k"`
	Filters *filter.Filter `json:"filters"`
}

// ChatRequest is the body of POST /v1/chat. When SessionID is set the
// session's own history is used and History is ignored.
type ChatRequest struct {
	Query     string         `json:"query" binding:"required"`
	Mode      string         `json:"mode"`
	Filters   *filter.Filter `json:"filters"`
	History   []chat.Turn    `json:"conversation_history"`
	TopK      int            `json:"top_k"`
	SessionID string         `json:"session_id"`
}

// ChatResponse is the reply to POST /v1/chat
type ChatResponse struct {
	chat.Reply
	Mode      string `json:"mode"`
	SessionID string `json:"session_id,omitempty"`
}

func (r *Router) health(c *gin.Context) {
	snap := r.source.Current()
	resp := gin.H{"status": "ok", "index_ready": snap != nil, "sessions": r.sessions.Len()}
	if snap != nil {
		resp["chunks"] = snap.Len()
		resp["model"] = snap.Model
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) ready(c *gin.Context) {
	if r.source.Current() == nil {
		abort(c, http.StatusServiceUnavailable, "INDEX_NOT_READY", retrieval.ErrIndexNotReady.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (r *Router) topK(requested int) (int, error) {
	switch {
	case requested == 0:
		return r.opts.DefaultTopK, nil
	case requested < 0 || requested > r.opts.MaxTopK:
		return 0, fmt.Errorf("top_k must be between 1 and %d", r.opts.MaxTopK)
	default:
		return requested, nil
	}
}

func (r *Router) search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	topK, err := r.topK(req.TopK)
	if err != nil {
		abort(c, http.StatusBadRequest, "INVALID_TOP_K", err.Error())
		return
	}

	results, err := r.searcher.Search(c.Request.Context(), req.Query, topK, req.Filters)
	if err != nil {
		if errors.Is(err, retrieval.ErrIndexNotReady) {
			abort(c, http.StatusServiceUnavailable, "INDEX_NOT_READY", err.Error())
			return
		}
		log.Printf("Error: search %q: %v", req.Query, err)
		abort(c, http.StatusInternalServerError, "SEARCH_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   req.Query,
		"count":   len(results),
		"results": results,
	})
}

func (r *Router) mode(name string) prompt.Mode {
	if name == "" {
		name = r.opts.DefaultMode
	}
	return prompt.ParseMode(name)
}

func (r *Router) chatTurn(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	topK, err := r.topK(req.TopK)
	if err != nil {
		abort(c, http.StatusBadRequest, "INVALID_TOP_K", err.Error())
		return
	}

	if req.SessionID != "" {
		session, ok := r.sessions.Get(req.SessionID)
		if !ok {
			abort(c, http.StatusNotFound, "SESSION_NOT_FOUND", "no session "+req.SessionID)
			return
		}
		if req.Mode != "" {
			session.SetMode(prompt.ParseMode(req.Mode))
		}
		reply := session.Ask(c.Request.Context(), r.chat, req.Query, req.Filters, topK)
		c.JSON(http.StatusOK, ChatResponse{Reply: reply, Mode: session.Mode().String(), SessionID: session.ID})
		return
	}

	mode := r.mode(req.Mode)
	reply := r.chat.Respond(c.Request.Context(), chat.Request{
		Query:   req.Query,
		Mode:    mode,
		Filter:  req.Filters,
		History: req.History,
		TopK:    topK,
	})
	c.JSON(http.StatusOK, ChatResponse{Reply: reply, Mode: mode.String()})
}

func (r *Router) stats(c *gin.Context) {
	snap := r.source.Current()
	if snap == nil {
		abort(c, http.StatusServiceUnavailable, "INDEX_NOT_READY", retrieval.ErrIndexNotReady.Error())
		return
	}
	c.JSON(http.StatusOK, stats.Compute(snap.Metadata))
}

type createSessionRequest struct {
	Mode string `json:"mode"`
}

func (r *Router) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}

	s := r.sessions.Create(r.mode(req.Mode))
	c.JSON(http.StatusCreated, gin.H{
		"session_id": s.ID,
		"mode":       s.Mode().String(),
		"created_at": s.CreatedAt,
	})
}

func (r *Router) getSession(c *gin.Context) {
	s, ok := r.sessions.Get(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, "SESSION_NOT_FOUND", "no session "+c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"mode":       s.Mode().String(),
		"history":    s.History(),
	})
}

func (r *Router) deleteSession(c *gin.Context) {
	if _, ok := r.sessions.Get(c.Param("id")); !ok {
		abort(c, http.StatusNotFound, "SESSION_NOT_FOUND", "no session "+c.Param("id"))
		return
	}
	r.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}
