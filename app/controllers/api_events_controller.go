package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/callsight/callsight/internal/pkg/statistics"
)

// HandleListEvents returns the ingested lifecycle events for one email.
func HandleListEvents(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "email query parameter is required"})
	}

	events, err := services.Events.ListByEmail(email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load events"})
	}
	return c.JSON(fiber.Map{"email": email, "count": len(events), "events": events})
}

// HandlePurgeEvents deletes every stored event for one email. This is the
// only write path that removes events.
func HandlePurgeEvents(c *fiber.Ctx) error {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "email query parameter is required"})
	}

	deleted, err := services.Events.DeleteByEmail(email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to purge events"})
	}
	return c.JSON(fiber.Map{"email": email, "deleted": deleted})
}

// HandleGetStatistics returns the dashboard summary including the cached
// monthly recurring revenue.
func HandleGetStatistics(c *fiber.Ctx) error {
	data := statistics.GetStatisticsData(c.Context(), services.Billing)
	return c.JSON(data)
}
