package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/callsight/callsight/app/controllers"
	"github.com/callsight/callsight/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})
	api.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	v1 := api.Group("/v1")
	apiKey := middleware.APIKeyAuthMiddleware()

	v1.Post("/sync/slack", apiKey, controllers.HandleSyncSlackEvents)
	v1.Post("/sync/calls", apiKey, controllers.HandleSyncCalls)

	v1.Post("/enrichment/run", apiKey, controllers.HandleRunPipeline)
	v1.Post("/calls/:id/enrich", apiKey, controllers.HandleEnrichCall)
	v1.Get("/calls/:id/enrichment", controllers.HandleGetCallEnrichment)
	v1.Get("/calls/:id/transcript", controllers.HandleGetCallTranscript)

	v1.Get("/events", controllers.HandleListEvents)
	v1.Delete("/events", apiKey, controllers.HandlePurgeEvents)

	v1.Get("/stats", controllers.HandleGetStatistics)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
