package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/DreamCats/lexrag/cmd/lexrag/internal"
	"github.com/DreamCats/lexrag/internal/config"
	"github.com/DreamCats/lexrag/internal/httpapi"
	"github.com/DreamCats/lexrag/internal/tracing"
	"github.com/gin-gonic/gin"
)

// handleServe implements the HTTP API subcommand
func handleServe(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.Server.Addr, "Listen address")
	debug := fs.Bool("debug", false, "Run gin in debug mode")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    lexrag serve [options]

DESCRIPTION:
    Serve the index over HTTP:
      GET    /health, /ready
      POST   /v1/search
      POST   /v1/chat
      GET    /v1/stats
      POST   /v1/sessions
      GET    /v1/sessions/:id
      DELETE /v1/sessions/:id
      GET    %s (Prometheus)

    The server starts even without an index; search and stats answer 503
    and chat replies with an apology until 'lexrag index' has been run.

OPTIONS:
`, cfg.Server.MetricsPath)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.Init(ctx, tracing.Config{
		Enabled:    cfg.Tracing.Enabled,
		Endpoint:   cfg.Tracing.Endpoint,
		SampleRate: cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Warning: tracing shutdown: %v", err)
		}
	}()

	rt, err := internal.NewRuntime(ctx, cfg, true)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer rt.Close()
	found, err := rt.Restore()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if !found {
		log.Printf("Warning: serving without an index. Run `lexrag index` to build one.")
	}

	router := httpapi.New(rt.Indexer, rt.Engine, rt.Chat, httpapi.Options{
		DefaultTopK: cfg.Search.DefaultTopK,
		MaxTopK:     cfg.Search.MaxTopK,
		DefaultMode: cfg.Chat.DefaultMode,
		MetricsPath: cfg.Server.MetricsPath,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err := router.Serve(ctx, *addr); err != nil {
		log.Printf("Error: HTTP server failed: %v", err)
		os.Exit(1)
	}
}
