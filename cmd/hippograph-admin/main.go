// Command hippograph-admin runs maintenance and inspection operations
// against a local HippoGraph store without any transport layer in front
// of it.
//
// Usage:
//
//	hippograph-admin -db ./data add "some note to remember" [-category note]
//	hippograph-admin -db ./data search "what did I say about go?"
//	hippograph-admin -db ./data stats
//	hippograph-admin -db ./data run-sleep [-deep] [-dry-run]
//	hippograph-admin -db ./data search-stats [-window 24h]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hippograph/core/pkg/config"
	"github.com/hippograph/core/pkg/hippograph"
	"github.com/hippograph/core/pkg/retriever"
)

func main() {
	dbPath := flag.String("db", "./hippograph-data", "path to the store directory")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	db, err := hippograph.Open(*dbPath, config.Default(), hippograph.Dependencies{})
	if err != nil {
		log.Fatalf("open %s: %v", *dbPath, err)
	}
	defer db.Close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		runAdd(db, rest)
	case "search":
		runSearch(db, rest)
	case "stats":
		runStats(db)
	case "run-sleep":
		runSleep(db, rest)
	case "search-stats":
		runSearchStats(db, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hippograph-admin -db <path> <add|search|stats|run-sleep|search-stats> [args]")
}

func runAdd(db *hippograph.DB, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	category := fs.String("category", "note", "category for the new node")
	force := fs.Bool("force", false, "bypass duplicate blocking")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("add requires exactly one content argument")
	}

	res, err := db.Add(context.Background(), hippograph.AddRequest{
		Content:  fs.Arg(0),
		Category: *category,
		Force:    *force,
	})
	if err != nil {
		log.Fatalf("add: %v", err)
	}

	fmt.Printf("id=%s\n", res.ID)
	if res.DuplicateWarning != nil {
		fmt.Printf("warning: similar to %s (similarity %.4f)\n", res.DuplicateWarning.ExistingID, res.DuplicateWarning.Similarity)
	}
}

func runSearch(db *hippograph.DB, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("limit", 5, "max results")
	category := fs.String("category", "", "filter by category")
	fs.Parse(args)

	if fs.NArg() != 1 {
		log.Fatal("search requires exactly one query argument")
	}

	results, err := db.Search(context.Background(), retriever.Query{
		Text:       fs.Arg(0),
		MaxResults: *limit,
		Filters:    retriever.Filters{Category: *category},
	})
	if err != nil {
		log.Fatalf("search: %v", err)
	}

	for i, r := range results {
		fmt.Printf("%d. [%s] score=%.4f %s\n", i+1, r.NodeID, r.Score, r.ContentPreview)
	}
}

func runStats(db *hippograph.DB) {
	stats, err := db.Stats()
	if err != nil {
		log.Fatalf("stats: %v", err)
	}

	fmt.Printf("nodes=%d edges=%d entities=%d communities=%d\n", stats.Nodes, stats.Edges, stats.Entities, stats.Communities)
	for category, count := range stats.Categories {
		fmt.Printf("  category %s: %d\n", category, count)
	}
	for _, p := range stats.TopPageRank {
		fmt.Printf("  pagerank %s: %.4f\n", p.NodeID, p.PageRank)
	}
}

func runSleep(db *hippograph.DB, args []string) {
	fs := flag.NewFlagSet("run-sleep", flag.ExitOnError)
	deep := fs.Bool("deep", false, "run a deep-sleep cycle instead of light")
	dryRun := fs.Bool("dry-run", false, "report planned changes without applying them")
	fs.Parse(args)

	mode := hippograph.SleepModeLight
	if *deep {
		mode = hippograph.SleepModeDeep
	}

	res, err := db.RunSleep(context.Background(), hippograph.RunSleepRequest{Mode: mode, DryRun: *dryRun})
	if err != nil {
		log.Fatalf("run-sleep: %v", err)
	}

	if res.Restored {
		fmt.Println("a step failed; the graph was restored to its pre-cycle snapshot")
		return
	}
	for _, step := range res.Steps {
		fmt.Printf("%-22s changes=%d\n", step.Name, step.Changes)
	}
}

func runSearchStats(db *hippograph.DB, args []string) {
	fs := flag.NewFlagSet("search-stats", flag.ExitOnError)
	window := fs.Duration("window", 24*time.Hour, "lookback window")
	fs.Parse(args)

	stats, err := db.SearchStats(*window)
	if err != nil {
		log.Fatalf("search-stats: %v", err)
	}

	fmt.Printf("total=%d zero_results=%d p50=%.1fms p95=%.1fms p99=%.1fms max=%.1fms\n",
		stats.TotalSearches, stats.ZeroResults, stats.LatencyP50Ms, stats.LatencyP95Ms, stats.LatencyP99Ms, stats.LatencyMaxMs)
	for _, q := range stats.RecentZero {
		fmt.Printf("  zero-result query: %q\n", q)
	}
}
