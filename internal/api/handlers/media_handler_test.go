package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/harsh-kumar-singhh/linkmate/internal/models"
)

type fakeMedia struct {
	assets      []*models.MediaAsset
	removedID   int64
	removedUser int64
}

func (f *fakeMedia) UploadImage(ctx context.Context, userID int64, file *multipart.FileHeader) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeMedia) ListAssets(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	return f.assets, nil
}

func (f *fakeMedia) RemoveAsset(ctx context.Context, userID, assetID int64) error {
	f.removedUser = userID
	f.removedID = assetID
	return nil
}

func mediaApp(m *fakeMedia) *fiber.App {
	app := fiber.New()
	h := NewMediaHandler(m)
	app.Get("/api/assets", func(c *fiber.Ctx) error {
		c.Locals("user_id", "7")
		return h.ListAssets(c)
	})
	app.Post("/api/assets/remove", func(c *fiber.Ctx) error {
		c.Locals("user_id", "7")
		return h.RemoveAsset(c)
	})
	return app
}

func TestListAssets(t *testing.T) {
	m := &fakeMedia{assets: []*models.MediaAsset{{ID: 1, UserID: 7, FileName: "abc"}}}
	app := mediaApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/assets", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRemoveAssetScopedToSessionUser(t *testing.T) {
	m := &fakeMedia{}
	app := mediaApp(m)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/assets/remove?id=5", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if m.removedUser != 7 || m.removedID != 5 {
		t.Errorf("removed user=%d id=%d, want user=7 id=5", m.removedUser, m.removedID)
	}
}
