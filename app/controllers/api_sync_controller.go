package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/callsight/callsight/internal/pkg/slack"
)

const defaultCallSyncDays = 30

// HandleSyncSlackEvents re-imports lifecycle events from the chat-ops
// channels. The max_pages query bounds pagination per channel.
func HandleSyncSlackEvents(c *fiber.Ctx) error {
	maxPages := c.QueryInt("max_pages", slack.DefaultMaxPages)
	if maxPages < 0 || maxPages > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "max_pages must be between 0 and 100"})
	}

	report, err := services.EventSync.SyncEvents(c.Context(), maxPages)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_error", "message": err.Error()})
	}
	return c.JSON(report)
}

// HandleSyncCalls imports recorded calls from the transcription platform.
// Accepts days (lookback window) and host (filter) query parameters.
func HandleSyncCalls(c *fiber.Ctx) error {
	days := c.QueryInt("days", defaultCallSyncDays)
	if days < 0 || days > 365 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "days must be between 0 and 365"})
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	report, err := services.CallSync.SyncCalls(c.Context(), since, c.Query("host"))
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_error", "message": err.Error()})
	}
	return c.JSON(report)
}
