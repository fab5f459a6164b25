package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/DreamCats/lexrag/cmd/lexrag/internal"
	"github.com/DreamCats/lexrag/internal/config"
	"github.com/DreamCats/lexrag/internal/corpus"
	"github.com/DreamCats/lexrag/internal/index"
	"github.com/DreamCats/lexrag/internal/progress"
	"github.com/DreamCats/lexrag/internal/stats"
)

// handleIndex implements the index subcommand
func handleIndex(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	var patterns internal.StringList
	fs.Var(&patterns, "chunks", "Glob of chunk JSON files, ** allowed (repeatable; default from config)")
	batchSize := fs.Int("batch", 0, "Chunks per embedding request (default from config)")
	verbose := fs.Bool("v", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    lexrag index [options]

DESCRIPTION:
    Build the vector index for a legal corpus.
    This will:
      1. Load chunk files (overview and section chunks with act metadata)
      2. Embed every chunk, skipping chunks the model rejects
      3. Replace the active index
      4. Persist vectors.db, contents.json and metadata.json

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Index the chunk files configured in index.chunks
    lexrag index

    # Index every JSON file below data/
    lexrag index -chunks "data/**/*.json"

    # Several sources
    lexrag index -chunks acts/english/*.json -chunks acts/bengali/*.json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	if *verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	if len(patterns) == 0 {
		patterns = internal.StringList{cfg.Index.Chunks}
	}
	if *batchSize > 0 {
		cfg.Embedding.BatchSize = *batchSize
	}

	chunks, err := loadChunks(patterns)
	if err != nil {
		log.Fatalf("Failed to load chunks: %v", err)
	}
	fmt.Printf("🏗️  Building index from %d chunks into: %s\n\n", len(chunks), cfg.Index.Dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar := progress.NewBar(progress.Enabled(), "Embedding chunks")
	rt, err := internal.NewRuntime(ctx, cfg, false, index.WithProgress(bar))
	if err != nil {
		log.Fatalf("Failed to create indexer: %v", err)
	}
	defer rt.Close()

	startTime := time.Now()
	snap, err := rt.Indexer.Build(ctx, chunks)
	if err != nil {
		if snap == nil {
			if errors.Is(err, index.ErrEmptyCorpus) {
				log.Fatalf("Indexing failed: %v (check embedding.api_key and the chunk files)", err)
			}
			log.Fatalf("Indexing failed: %v", err)
		}
		log.Printf("Error: index built but could not be saved: %v", err)
	}
	duration := time.Since(startTime)

	s := stats.Compute(snap.Metadata)

	fmt.Println()
	if err == nil {
		fmt.Println("✅ Indexing completed successfully!")
	} else {
		fmt.Println("⚠️  Indexing completed but the index was not saved")
	}
	fmt.Printf("\n⏱️  Duration: %v\n", duration.Round(time.Millisecond))
	fmt.Println("\n📊 Statistics:")
	fmt.Printf("   Chunks:     %6d\n", snap.Len())
	fmt.Printf("   Skipped:    %6d\n", len(chunks)-snap.Len())
	fmt.Printf("   Acts:       %6d\n", s.TotalActs)
	fmt.Printf("   Dimension:  %6d\n", snap.Index.Dim())
	fmt.Printf("   Model:      %s\n", snap.Model)

	if err != nil {
		os.Exit(1)
	}
}

// loadChunks reads every pattern and drops chunk ids already seen
func loadChunks(patterns []string) ([]corpus.Chunk, error) {
	var all []corpus.Chunk
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		chunks, err := corpus.LoadGlob(pattern)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			all = append(all, c)
		}
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no valid chunks in %v", patterns)
	}
	return all, nil
}
