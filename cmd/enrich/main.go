package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/callsight/callsight/app/repository"
	"github.com/callsight/callsight/internal/pkg/calendly"
	"github.com/callsight/callsight/internal/pkg/database"
	"github.com/callsight/callsight/internal/pkg/enrichment"
	"github.com/callsight/callsight/internal/pkg/env"
	"github.com/callsight/callsight/internal/pkg/fireflies"
	"github.com/callsight/callsight/internal/pkg/lifecycle"
	"github.com/callsight/callsight/internal/pkg/slack"
	"github.com/callsight/callsight/internal/pkg/statistics"
	"github.com/callsight/callsight/internal/pkg/stripe"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	database.SetupDatabase()
	repos := repository.GetGlobalRepositories()
	ctx := context.Background()

	switch command {
	case "sync-slack":
		maxPages := argInt(2, slack.DefaultMaxPages)
		cfg := slack.NewConfigFromEnv()
		ingestor := slack.NewIngestor(cfg, slack.NewClient(cfg), repos.Event)
		report, err := ingestor.SyncEvents(ctx, maxPages)
		if err != nil {
			log.Fatalf("slack sync failed: %v", err)
		}
		printJSON(report)

	case "sync-calls":
		days := argInt(2, 30)
		since := time.Now().UTC().AddDate(0, 0, -days)
		syncer := fireflies.NewSyncer(fireflies.NewClient(fireflies.NewConfigFromEnv()), repos.Call)
		report, err := syncer.SyncCalls(ctx, since, "")
		if err != nil {
			log.Fatalf("call sync failed: %v", err)
		}
		printJSON(report)

	case "run":
		limit := argInt(2, 0)
		pipeline := enrichment.NewPipeline(buildOrchestrator(repos), nil, repos.Call)
		report, err := pipeline.Run(ctx, enrichment.RunOptions{Limit: limit})
		if err != nil {
			log.Fatalf("pipeline run failed: %v", err)
		}
		printJSON(report)

	case "mrr":
		mrr, err := statistics.ComputeMRR(ctx, stripe.NewClient(stripe.NewConfigFromEnv()))
		if err != nil {
			log.Fatalf("mrr computation failed: %v", err)
		}
		fmt.Printf("monthly recurring revenue: %.2f\n", mrr)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func buildOrchestrator(repos *repository.Repositories) *enrichment.Orchestrator {
	return enrichment.NewOrchestrator(
		lifecycle.NewResolver(repos.Event),
		calendly.NewMatcher(calendly.NewClient(calendly.NewConfigFromEnv())),
		stripe.NewMatcher(stripe.NewClient(stripe.NewConfigFromEnv())),
		repos.Call,
		enrichment.NewIdentityConfigFromEnv(),
	)
}

func argInt(pos, fallback int) int {
	if len(os.Args) <= pos {
		return fallback
	}
	n, err := strconv.Atoi(os.Args[pos])
	if err != nil {
		log.Fatalf("expected a number, got %q", os.Args[pos])
	}
	return n
}

func printJSON(v interface{}) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode report: %v", err)
	}
	fmt.Println(string(encoded))
}

func printUsage() {
	fmt.Println("Usage: enrich <command> [arg]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  sync-slack [max_pages]  Import lifecycle events from the chat-ops channels")
	fmt.Println("  sync-calls [days]       Import recorded calls from the lookback window")
	fmt.Println("  run [limit]             Enrich every call without a stored record")
	fmt.Println("  mrr                     Compute monthly recurring revenue from billing")
}
