package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/inktoons/inktoons/internal/pkg/statistics"
)

// HandleAdminStats returns the aggregated economy numbers.
func HandleAdminStats(c *fiber.Ctx) error {
	stats, err := statistics.GetEconomyStats()
	if err != nil {
		log.Errorf("economy stats failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load statistics")
	}
	return c.JSON(stats)
}
