package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/DreamCats/lexrag/cmd/lexrag/internal"
	"github.com/DreamCats/lexrag/internal/config"
	"github.com/DreamCats/lexrag/internal/topics"
)

// handleTopics implements the topics subcommand
func handleTopics(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("topics", flag.ExitOnError)
	var category string
	var limit, words int
	var jsonOutput bool
	fs.StringVar(&category, "category", "", "List the acts of one category (e.g. criminal, \"Tax Law\")")
	fs.IntVar(&limit, "limit", 10, "Acts to list for -category")
	fs.IntVar(&words, "words", 20, "Most common title words to show")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    lexrag topics [options]

DESCRIPTION:
    Group the indexed acts into legal categories by title keywords and
    show the words that appear in the most act titles.

    Categories: %s

OPTIONS:
`, categoryNames())
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    lexrag topics
    lexrag topics -category criminal -limit 25
    lexrag topics -words 50 -json
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

	explorer, err := topics.NewExplorer(rt.Indexer.Current().Metadata)
	if err != nil {
		log.Fatalf("Failed to build topics index: %v", err)
	}
	defer explorer.Close()

	if category != "" {
		listCategory(explorer, category, limit, jsonOutput)
		return
	}

	type categoryCount struct {
		Category string `json:"category"`
		Acts     int    `json:"acts"`
	}
	counts := make([]categoryCount, 0, len(topics.Categories))
	for _, c := range topics.Categories {
		n, err := explorer.Count(c)
		if err != nil {
			log.Fatalf("Failed to count %s: %v", c.Name, err)
		}
		counts = append(counts, categoryCount{c.Name, n})
	}

	common, err := explorer.CommonWords(words)
	if err != nil {
		log.Fatalf("Failed to read title words: %v", err)
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"total_acts":   explorer.Total(),
			"categories":   counts,
			"common_words": common,
		})
		return
	}

	fmt.Printf("🗂️  Legal Categories (%d acts)\n\n", explorer.Total())
	for _, c := range counts {
		fmt.Printf("  %-15s %5d\n", c.Category, c.Acts)
	}

	if len(common) > 0 {
		fmt.Println("\nMost common title words:")
		for _, w := range common {
			fmt.Printf("  %-15s %5d\n", w.Word, w.Acts)
		}
	}
}

func listCategory(explorer *topics.Explorer, name string, limit int, jsonOutput bool) {
	c, ok := topics.LookupCategory(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown category %q. Choose from: %s\n", name, categoryNames())
		os.Exit(1)
	}

	acts, total, err := explorer.Acts(c, limit)
	if err != nil {
		log.Fatalf("Failed to list %s: %v", c.Name, err)
	}

	if jsonOutput {
		outputJSON(map[string]interface{}{
			"category": c.Name,
			"keywords": c.Keywords,
			"total":    total,
			"acts":     acts,
		})
		return
	}

	fmt.Printf("🗂️  %s: %d act(s) matching %s\n\n", c.Name, total, strings.Join(c.Keywords, ", "))
	for _, a := range acts {
		status := "Active"
		if a.Repealed {
			status = "Repealed"
		}
		year := a.Year
		if year == "" {
			year = "N/A"
		}
		fmt.Printf("  • %s (%s) · %s\n", a.Title, year, status)
	}
	if total > len(acts) {
		fmt.Printf("\n  ... and %d more (use -limit)\n", total-len(acts))
	}
}

func categoryNames() string {
	names := make([]string, 0, len(topics.Categories))
	for _, c := range topics.Categories {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}
