package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/harsh-kumar-singhh/linkmate/configs"
	"github.com/harsh-kumar-singhh/linkmate/internal/service"
	"github.com/harsh-kumar-singhh/linkmate/pkg/utils"
)

// PlatformHandler manages the LinkedIn account link lifecycle.
type PlatformHandler struct {
	li  service.LinkedInService
	cfg config.Config
}

func NewPlatformHandler(cfg config.Config, li service.LinkedInService) *PlatformHandler {
	return &PlatformHandler{li: li, cfg: cfg}
}

func (h *PlatformHandler) ConnectLinkedIn(c *fiber.Ctx) error {
	state, err := utils.GenerateRandomKey(16)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		HTTPOnly: true,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
	})

	return c.Redirect(h.li.AuthorizeURL(state))
}

func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	userID := GetUserID(c)
	code := c.Query("code")
	state := c.Query("state")

	if state == "" || state != c.Cookies(oauthStateCookie) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid state",
		})
	}

	if err := h.li.Callback(c.Context(), code, userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to connect LinkedIn account",
		})
	}

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) AccountInfo(c *fiber.Ctx) error {
	userID := GetUserID(c)

	account, linked, err := h.li.AccountInfo(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to get account info",
		})
	}
	if !linked {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"linked": false,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"linked":  true,
		"account": account,
	})
}

func (h *PlatformHandler) DisconnectLinkedIn(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if err := h.li.Disconnect(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
