// Command searchprobe runs a query against the local content cache and
// prints the scored candidates. Useful for tuning similarity floors
// without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"watchdeck/config"
	"watchdeck/internal/database"
	"watchdeck/models"
	"watchdeck/services/discovery"
	"watchdeck/services/store"
)

func main() {
	var (
		configPath = flag.String("config", "data/settings.json", "path to settings.json")
		kind       = flag.String("kind", "", "restrict to MOVIE or SERIES")
		floor      = flag.Float64("floor", 0, "similarity floor override (0 = config value)")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: searchprobe [flags] <query>")
		os.Exit(2)
	}
	query := flag.Arg(0)

	settings, err := config.NewManager(*configPath).Load()
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}

	db, err := database.Open(settings.Database.Path)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	minSimilarity := settings.Search.MinSimilarity
	if *floor > 0 {
		minSimilarity = *floor
	}

	parsed := discovery.Parse(query)
	fmt.Printf("query: text=%q year=%d genres=%v floor=%.2f\n\n", parsed.Text, parsed.Year, parsed.Genres, minSimilarity)

	candidates, err := store.NewService(db).SearchTrigram(
		context.Background(), parsed, models.ContentKind(*kind), settings.Search.PageSize, minSimilarity)
	if err != nil {
		log.Fatalf("search: %v", err)
	}

	if len(candidates) == 0 {
		fmt.Println("no local matches")
		return
	}
	for _, c := range candidates {
		fmt.Printf("%.3f  %-6s %-4d %s\n", c.Similarity, c.Kind, c.Year, c.Title)
	}
}
