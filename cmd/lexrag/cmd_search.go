package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/DreamCats/lexrag/cmd/lexrag/internal"
	"github.com/DreamCats/lexrag/internal/config"
	"github.com/DreamCats/lexrag/internal/prompt"
	"github.com/DreamCats/lexrag/internal/retrieval"
)

const previewChars = 400

// handleSearch implements the search subcommand
func handleSearch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	var topK int
	var jsonOutput bool
	var ff filterFlags

	fs.IntVar(&topK, "k", cfg.Search.DefaultTopK, "Number of results to return")
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	ff.register(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    lexrag search [options] "<query>"

DESCRIPTION:
    Find the chunks most similar to a query, optionally restricted by
    enactment year, repeal status, language or act title keywords.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    lexrag search "punishment for theft"
    lexrag search "land registration" -k 10 -repealed false
    lexrag search "tax" -keyword income -keyword customs -json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: search query is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	query := strings.Join(fs.Args(), " ")

	if topK < 1 || topK > cfg.Search.MaxTopK {
		log.Fatalf("-k must be between 1 and %d", cfg.Search.MaxTopK)
	}
	f, err := ff.build()
	if err != nil {
		log.Fatalf("Invalid filter: %v", err)
	}

	ctx := context.Background()
	rt, err := internal.NewRuntime(ctx, cfg, false)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer rt.Close()
	mustRestore(rt)

	results, err := rt.Engine.Search(ctx, query, topK, f)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"query":   query,
			"filters": f,
			"count":   len(results),
			"results": results,
		})
		return
	}
	printSources(results, query)
}

// mustRestore loads the persisted index or exits with a hint
func mustRestore(rt *internal.Runtime) {
	found, err := rt.Restore()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "No index found at %s. Run `lexrag index` first.\n", rt.Indexer.Dir())
		os.Exit(1)
	}
}

// printSources prints retrieved chunks as human-readable text
func printSources(results []retrieval.Result, query string) {
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	if query != "" {
		fmt.Printf("Found %d result(s) for: %s\n\n", len(results), query)
	}

	for i, r := range results {
		md := r.Metadata
		year := md.Year
		if year == "" {
			year = "N/A"
		}
		fmt.Printf("%d. %s (%s)\n", i+1, md.Title(), year)
		fmt.Printf("   Section: %s\n", md.Section())
		fmt.Printf("   Status:  %s\n", md.Status())
		fmt.Printf("   Score:   %.3f\n", r.Score)
		fmt.Printf("   %s\n\n", prompt.Truncate(strings.TrimSpace(r.Content), previewChars))
	}
}

// outputJSON writes v as indented JSON to stdout
func outputJSON(v interface{}) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal output: %v", err)
	}
	fmt.Println(string(jsonData))
}
