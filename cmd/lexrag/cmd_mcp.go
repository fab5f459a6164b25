package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/DreamCats/lexrag/cmd/lexrag/internal"
	"github.com/DreamCats/lexrag/internal/config"
	"github.com/DreamCats/lexrag/internal/mcpserver"
	"github.com/DreamCats/lexrag/internal/tracing"
)

// handleMCP implements the MCP stdio server subcommand
func handleMCP(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    lexrag mcp

DESCRIPTION:
    Run an MCP stdio server exposing:
      - lexrag_search
      - lexrag_chat
      - lexrag_status
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	ctx := context.Background()
	shutdown, err := tracing.Init(ctx, tracing.Config{
		Enabled:    cfg.Tracing.Enabled,
		Endpoint:   cfg.Tracing.Endpoint,
		SampleRate: cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer shutdown(context.Background())

	rt, err := internal.NewRuntime(ctx, cfg, true)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer rt.Close()
	if _, err := rt.Restore(); err != nil {
		log.Fatalf("%v", err)
	}

	server := mcpserver.New(rt.Indexer, rt.Engine, rt.Chat, mcpserver.Options{
		IndexDir:    cfg.Index.Dir,
		DefaultTopK: cfg.Search.DefaultTopK,
		MaxTopK:     cfg.Search.MaxTopK,
		DefaultMode: cfg.Chat.DefaultMode,
	}, internal.Version)
	if err := server.Run(ctx); err != nil {
		log.Printf("Error: MCP server failed: %v", err)
		os.Exit(1)
	}
}
