// Package httpapi exposes search and chat over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/DreamCats/lexrag/internal/chat"
	"github.com/DreamCats/lexrag/internal/filter"
	"github.com/DreamCats/lexrag/internal/index"
	"github.com/DreamCats/lexrag/internal/retrieval"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Searcher runs filtered similarity search
type Searcher interface {
	Search(ctx context.Context, query string, topK int, f *filter.Filter) ([]retrieval.Result, error)
}

// SnapshotSource yields the active index
type SnapshotSource interface {
	Current() *index.Snapshot
}

// Options configures the router
type Options struct {
	DefaultTopK int
	MaxTopK     int
	DefaultMode string
	MetricsPath string
	CORSOrigins []string
}

// Router wires handlers onto a gin engine
type Router struct {
	engine *gin.Engine
	opts   Options

	source   SnapshotSource
	searcher Searcher
	chat     *chat.Orchestrator
	sessions *chat.Registry
}

// New creates the router with all routes registered
func New(source SnapshotSource, searcher Searcher, orchestrator *chat.Orchestrator, opts Options) *Router {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = chat.DefaultTopK
	}
	if opts.MaxTopK < opts.DefaultTopK {
		opts.MaxTopK = opts.DefaultTopK
	}

	r := &Router{
		engine:   gin.New(),
		opts:     opts,
		source:   source,
		searcher: searcher,
		chat:     orchestrator,
		sessions: chat.NewRegistry(),
	}

	r.engine.Use(gin.Recovery())
	r.engine.Use(CORS(opts.CORSOrigins))
	r.engine.Use(Trace(), TraceID())
	r.engine.Use(Metrics())
	r.setupRoutes()
	return r
}

// Engine returns the gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.health)
	r.engine.GET("/ready", r.ready)

	if r.opts.MetricsPath != "" {
		r.engine.GET(r.opts.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.engine.Group("/v1")
	{
		v1.POST("/search", r.search)
		v1.POST("/chat", r.chatTurn)
		v1.GET("/stats", r.stats)

		v1.POST("/sessions", r.createSession)
		v1.GET("/sessions/:id", r.getSession)
		v1.DELETE("/sessions/:id", r.deleteSession)
	}
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (r *Router) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func abort(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
