package handlers

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/harsh-kumar-singhh/linkmate/configs"
	"github.com/harsh-kumar-singhh/linkmate/internal/service"
)

// PublishHandler exposes the two trigger surfaces of the publish
// orchestrator: the external cron endpoint and the per-user heartbeat. Both
// run the same pass; they differ only in scope and authorization.
type PublishHandler struct {
	publisher service.PublisherService
	linkedin  service.LinkedInService
	cfg       config.Config
}

func NewPublishHandler(cfg config.Config, publisher service.PublisherService, linkedin service.LinkedInService) *PublishHandler {
	return &PublishHandler{publisher: publisher, linkedin: linkedin, cfg: cfg}
}

// CronPublish is invoked by the external scheduler and processes due posts
// across all users. The secret is accepted from either the Authorization
// header or X-Cron-Secret, whichever the caller can set.
func (h *PublishHandler) CronPublish(c *fiber.Ctx) error {
	if h.cfg.CronSecret == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "cron secret is not configured",
		})
	}

	bearerOK := subtle.ConstantTimeCompare([]byte(c.Get("Authorization")), []byte("Bearer "+h.cfg.CronSecret)) == 1
	headerOK := subtle.ConstantTimeCompare([]byte(c.Get("X-Cron-Secret")), []byte(h.cfg.CronSecret)) == 1
	if !bearerOK && !headerOK {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	summary, err := h.publisher.PublishDue(c.Context(), 0)
	if err != nil {
		// Report the failure with a 200 so the external scheduler does not
		// retry immediately; the next tick picks up whatever is still due,
		// and a duplicate publish is worse than a late one.
		slog.Error(err.Error())
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

// Heartbeat is invoked opportunistically by an active client session and
// processes only that user's due posts, covering the gaps between cron ticks.
func (h *PublishHandler) Heartbeat(c *fiber.Ctx) error {
	userID := GetUserID(c)

	_, linked, err := h.linkedin.AccountInfo(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to check LinkedIn account",
		})
	}
	if !linked {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "No LinkedIn account connected",
		})
	}

	summary, err := h.publisher.PublishDue(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to process due posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

// AttemptHistory returns the publish audit trail for one of the user's posts.
func (h *PublishHandler) AttemptHistory(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	attempts, err := h.publisher.AttemptHistory(c.Context(), userID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get publish history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(attempts)
}
