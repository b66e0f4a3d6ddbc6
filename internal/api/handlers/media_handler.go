package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/harsh-kumar-singhh/linkmate/internal/service"
)

// MediaHandler exposes the user's uploaded asset library.
type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(service service.MediaService) *MediaHandler {
	return &MediaHandler{s: service}
}

func (h *MediaHandler) ListAssets(c *fiber.Ctx) error {
	userID := GetUserID(c)

	assets, err := h.s.ListAssets(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list assets",
		})
	}

	return c.Status(fiber.StatusOK).JSON(assets)
}

func (h *MediaHandler) RemoveAsset(c *fiber.Ctx) error {
	userID := GetUserID(c)
	assetID := c.QueryInt("id", 0)

	if err := h.s.RemoveAsset(c.Context(), userID, int64(assetID)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to remove asset",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
