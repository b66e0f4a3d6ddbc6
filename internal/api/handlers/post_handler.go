package handlers

import (
	"log/slog"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/harsh-kumar-singhh/linkmate/internal/models"
	"github.com/harsh-kumar-singhh/linkmate/internal/queue"
	"github.com/harsh-kumar-singhh/linkmate/internal/service"
	"github.com/harsh-kumar-singhh/linkmate/internal/transfer"
	"github.com/hibiken/asynq"
)

type PostHandler struct {
	s           service.PostService
	AsynqClient *asynq.Client
}

func NewPostHandler(service service.PostService, asynqClient *asynq.Client) *PostHandler {
	return &PostHandler{s: service, AsynqClient: asynqClient}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var image *multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		if files := form.File["image"]; len(files) > 0 {
			image = files[0]
		}
	}

	pc := transfer.PostCreation{
		Content:      c.FormValue("content"),
		ScheduledFor: c.FormValue("scheduled_for"),
		Status:       c.FormValue("status"),
	}

	postID, delay, err := h.s.CreatePost(c.Context(), userID, &pc, image)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if pc.Status == models.PostStatusScheduled {
		err = queue.EnqueuePublishCheck(h.AsynqClient, queue.PublishCheckPayload{UserID: userID, PostID: postID}, delay)
		if err != nil {
			// The post is stored; the cron and heartbeat passes will still
			// pick it up without the precision task.
			slog.Error(err.Error())
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":      postID,
		"message": "Post saved successfully",
	})
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	pu := transfer.PostUpdate{
		Content:      c.FormValue("content"),
		ScheduledFor: c.FormValue("scheduled_for"),
		Status:       c.FormValue("status"),
	}

	delay, err := h.s.UpdatePost(c.Context(), userID, int64(postID), &pu)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if pu.Status == models.PostStatusScheduled {
		err = queue.EnqueuePublishCheck(h.AsynqClient, queue.PublishCheckPayload{UserID: userID, PostID: int64(postID)}, delay)
		if err != nil {
			slog.Error(err.Error())
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post updated successfully",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), userID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// ListNotifications returns posts whose automated state change the client has
// not toasted yet.
func (h *PostHandler) ListNotifications(c *fiber.Ctx) error {
	userID := GetUserID(c)

	posts, err := h.s.ListUnnotified(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list notifications",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) AcknowledgeNotifications(c *fiber.Ctx) error {
	userID := GetUserID(c)

	err := h.s.AcknowledgeNotifications(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to acknowledge notifications",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
