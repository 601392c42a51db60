package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/callsight/callsight/app/controllers"
	"github.com/callsight/callsight/app/repository"
	"github.com/callsight/callsight/internal/pkg/cache"
	"github.com/callsight/callsight/internal/pkg/calendly"
	"github.com/callsight/callsight/internal/pkg/database"
	"github.com/callsight/callsight/internal/pkg/enrichment"
	"github.com/callsight/callsight/internal/pkg/env"
	"github.com/callsight/callsight/internal/pkg/fireflies"
	"github.com/callsight/callsight/internal/pkg/lifecycle"
	"github.com/callsight/callsight/internal/pkg/router"
	"github.com/callsight/callsight/internal/pkg/slack"
	"github.com/callsight/callsight/internal/pkg/stripe"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	controllers.Initialize(buildServices())

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20, // 1 MiB, JSON API only
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

// buildServices wires the upstream adapters, the matchers and the pipeline
// onto the global repositories.
func buildServices() controllers.Services {
	repos := repository.GetGlobalRepositories()

	slackCfg := slack.NewConfigFromEnv()
	ingestor := slack.NewIngestor(slackCfg, slack.NewClient(slackCfg), repos.Event)

	calendlyClient := calendly.NewClient(calendly.NewConfigFromEnv())
	stripeClient := stripe.NewClient(stripe.NewConfigFromEnv())
	firefliesClient := fireflies.NewClient(fireflies.NewConfigFromEnv())

	orchestrator := enrichment.NewOrchestrator(
		lifecycle.NewResolver(repos.Event),
		calendly.NewMatcher(calendlyClient),
		stripe.NewMatcher(stripeClient),
		repos.Call,
		enrichment.NewIdentityConfigFromEnv(),
	)

	return controllers.Services{
		Pipeline:    enrichment.NewPipeline(orchestrator, ingestor, repos.Call),
		CallSync:    fireflies.NewSyncer(firefliesClient, repos.Call),
		EventSync:   ingestor,
		Enricher:    orchestrator,
		Transcripts: firefliesClient,
		Billing:     stripeClient,
		Events:      repos.Event,
		Calls:       repos.Call,
	}
}
