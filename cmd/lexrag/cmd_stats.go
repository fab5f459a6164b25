package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/DreamCats/lexrag/cmd/lexrag/internal"
	"github.com/DreamCats/lexrag/internal/config"
	"github.com/DreamCats/lexrag/internal/stats"
)

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var jsonOutput bool
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    lexrag stats [options]

DESCRIPTION:
    Show statistics about the indexed acts: totals, repeal status,
    year span, acts per decade and language distribution.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Show human-readable statistics
    lexrag stats

    # JSON output
    lexrag stats -json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	rt, err := internal.NewRuntime(context.Background(), cfg, false)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer rt.Close()
	mustRestore(rt)

	s := stats.Compute(rt.Indexer.Current().Metadata)

	if jsonOutput {
		outputJSON(s)
		return
	}

	fmt.Println("📊 Corpus Statistics")
	fmt.Println()
	fmt.Printf("Chunks:        %6d\n", s.TotalChunks)
	fmt.Printf("Acts:          %6d\n", s.TotalActs)
	fmt.Printf("  Active:      %6d\n", s.ActiveActs)
	fmt.Printf("  Repealed:    %6d\n", s.RepealedActs)
	if s.EarliestYear > 0 {
		fmt.Printf("Years:         %d - %d\n", s.EarliestYear, s.LatestYear)
	}

	if decades := s.Decades(); len(decades) > 0 {
		fmt.Println("\nActs by decade:")
		for _, d := range decades {
			fmt.Printf("  %-6s %5d\n", d, s.ActsByDecade[d])
		}
	}

	fmt.Println("\nLanguages:")
	for _, lang := range s.LanguagesByCount() {
		fmt.Printf("  %-10s %5d\n", lang, s.Languages[lang])
	}
}
