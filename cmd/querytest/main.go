package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/rickgao/ledgerwatch/internal/api"
	"github.com/rickgao/ledgerwatch/internal/model"
)

// querytest issues one event query against a live ledger endpoint and
// prints the page, for manual smoke testing.
func main() {
	baseURL := flag.String("url", "http://localhost:9650/api/v1", "ledger API base URL")
	apiKey := flag.String("key", "", "bearer API key (optional)")
	eventType := flag.String("type", "", "event type filter")
	emitter := flag.String("emitter", "", "emitter filter")
	limit := flag.Int("limit", 10, "page size")
	flag.Parse()

	client := api.NewClient(*baseURL, *apiKey, api.WithTimeout(30*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	filter := model.Filter{EventType: *eventType, Emitter: *emitter}
	fmt.Printf("=== Querying %s (filter %q, limit %d) ===\n", *baseURL, filter.Key(), *limit)

	events, err := client.QueryEvents(ctx, filter, *limit)
	if err != nil {
		log.Fatalf("QueryEvents failed: %v", err)
	}

	fmt.Printf("Fetched %d events\n", len(events))
	for i, ev := range events {
		fmt.Printf("  %d. %s type=%s ts=%d\n", i+1, ev.ID, ev.Type, ev.TimestampMs)
	}
}
