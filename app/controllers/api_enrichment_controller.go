package controllers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/callsight/callsight/internal/pkg/enrichment"
)

// HandleRunPipeline starts one batch enrichment run and returns its report.
func HandleRunPipeline(c *fiber.Ctx) error {
	opts := enrichment.RunOptions{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&opts); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid request body"})
		}
	}
	if err := opts.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": err.Error()})
	}

	report, err := services.Pipeline.Run(c.Context(), opts)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}
	return c.JSON(report)
}

// HandleEnrichCall enriches a single call by ID, overwriting any stored
// record.
func HandleEnrichCall(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid call id"})
	}

	call, err := services.Calls.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Call not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load call"})
	}
	if call == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Call not found"})
	}

	record, err := services.Enricher.EnrichCall(c.Context(), call)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}
	return c.JSON(record)
}

// HandleGetCallTranscript fetches the full transcript for a call live from
// the transcription platform.
func HandleGetCallTranscript(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid call id"})
	}

	call, err := services.Calls.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Call not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load call"})
	}
	if call == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Call not found"})
	}

	transcript, err := services.Transcripts.TranscriptDetail(c.Context(), call.ExternalID)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_error", "message": err.Error()})
	}
	return c.JSON(transcript)
}

// HandleGetCallEnrichment returns the stored enrichment record for a call.
func HandleGetCallEnrichment(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid call id"})
	}

	call, err := services.Calls.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Call not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load call"})
	}
	if call == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Call not found"})
	}
	if call.EnrichmentJSON == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Call has no enrichment record yet"})
	}

	return c.JSON(fiber.Map{
		"call_id":     call.ID,
		"external_id": call.ExternalID,
		"enriched_at": call.EnrichedAt,
		"record":      json.RawMessage(call.EnrichmentJSON),
	})
}
