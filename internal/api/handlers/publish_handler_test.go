package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	config "github.com/harsh-kumar-singhh/linkmate/configs"
	"github.com/harsh-kumar-singhh/linkmate/internal/models"
	"github.com/harsh-kumar-singhh/linkmate/internal/transfer"
)

type fakePublisher struct {
	summary   *transfer.PublishRunSummary
	err       error
	calls     int
	gotUserID int64

	attempts      []*models.PublishAttempt
	historyUserID int64
	historyPostID int64
}

func (f *fakePublisher) PublishDue(ctx context.Context, userID int64) (*transfer.PublishRunSummary, error) {
	f.calls++
	f.gotUserID = userID
	return f.summary, f.err
}

func (f *fakePublisher) AttemptHistory(ctx context.Context, userID, postID int64) ([]*models.PublishAttempt, error) {
	f.historyUserID = userID
	f.historyPostID = postID
	return f.attempts, nil
}

type fakeLinkedIn struct {
	linked bool
}

func (f *fakeLinkedIn) AuthorizeURL(state string) string { return "" }

func (f *fakeLinkedIn) Callback(ctx context.Context, code string, userID int64) error { return nil }

func (f *fakeLinkedIn) RefreshToken(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	return nil
}

func (f *fakeLinkedIn) Publish(ctx context.Context, acc *models.LinkedInAccount, post *models.Post) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeLinkedIn) AccountInfo(ctx context.Context, userID int64) (*models.LinkedInAccount, bool, error) {
	if !f.linked {
		return nil, false, nil
	}
	return &models.LinkedInAccount{UserID: userID}, true, nil
}

func (f *fakeLinkedIn) Disconnect(ctx context.Context, userID int64) error { return nil }

func cronApp(cfg config.Config, pub *fakePublisher) *fiber.App {
	app := fiber.New()
	h := NewPublishHandler(cfg, pub, &fakeLinkedIn{linked: true})
	app.Post("/cron/publish-due", h.CronPublish)
	return app
}

func heartbeatApp(pub *fakePublisher, li *fakeLinkedIn) *fiber.App {
	app := fiber.New()
	h := NewPublishHandler(config.Config{CronSecret: "s3cret"}, pub, li)
	app.Post("/api/posts/heartbeat", func(c *fiber.Ctx) error {
		c.Locals("user_id", "7")
		return h.Heartbeat(c)
	})
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return body
}

func TestCronPublishWithoutConfiguredSecret(t *testing.T) {
	pub := &fakePublisher{}
	app := cronApp(config.Config{}, pub)

	req := httptest.NewRequest(http.MethodPost, "/cron/publish-due", nil)
	req.Header.Set("Authorization", "Bearer anything")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if pub.calls != 0 {
		t.Error("publisher must not run without a configured secret")
	}
}

func TestCronPublishRejectsBadSecret(t *testing.T) {
	pub := &fakePublisher{}
	app := cronApp(config.Config{CronSecret: "s3cret"}, pub)

	for _, set := range []func(*http.Request){
		func(r *http.Request) {},
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer wrong") },
		func(r *http.Request) { r.Header.Set("X-Cron-Secret", "wrong") },
	} {
		req := httptest.NewRequest(http.MethodPost, "/cron/publish-due", nil)
		set(req)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	}
	if pub.calls != 0 {
		t.Errorf("publisher ran %d times for unauthorized requests", pub.calls)
	}
}

func TestCronPublishAcceptsEitherHeaderConvention(t *testing.T) {
	for _, set := range []func(*http.Request){
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer s3cret") },
		func(r *http.Request) { r.Header.Set("X-Cron-Secret", "s3cret") },
	} {
		pub := &fakePublisher{summary: &transfer.PublishRunSummary{Total: 2, Published: 2}}
		app := cronApp(config.Config{CronSecret: "s3cret"}, pub)

		req := httptest.NewRequest(http.MethodPost, "/cron/publish-due", nil)
		set(req)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		if pub.calls != 1 {
			t.Fatalf("publisher calls = %d, want 1", pub.calls)
		}
		if pub.gotUserID != 0 {
			t.Errorf("cron surface must scan all users, got scope %d", pub.gotUserID)
		}

		body := decodeBody(t, resp)
		if body["total"] != float64(2) || body["published"] != float64(2) {
			t.Errorf("unexpected summary body: %v", body)
		}
	}
}

func TestCronPublishSoftFailsOnInternalError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("store unreachable")}
	app := cronApp(config.Config{CronSecret: "s3cret"}, pub)

	req := httptest.NewRequest(http.MethodPost, "/cron/publish-due", nil)
	req.Header.Set("X-Cron-Secret", "s3cret")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	// A non-error status keeps the external scheduler from retry-storming.
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["error"] == nil {
		t.Errorf("expected an error payload, got %v", body)
	}
}

func TestHeartbeatNeutralWithoutLinkedAccount(t *testing.T) {
	pub := &fakePublisher{}
	app := heartbeatApp(pub, &fakeLinkedIn{linked: false})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/posts/heartbeat", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if pub.calls != 0 {
		t.Error("publisher must not run without a linked account")
	}
}

func TestHeartbeatScopedToSessionUser(t *testing.T) {
	pub := &fakePublisher{summary: &transfer.PublishRunSummary{Total: 1, Published: 1}}
	app := heartbeatApp(pub, &fakeLinkedIn{linked: true})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/posts/heartbeat", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if pub.gotUserID != 7 {
		t.Errorf("scope = %d, want the session user 7", pub.gotUserID)
	}
}

func TestAttemptHistoryUsesSessionScope(t *testing.T) {
	pub := &fakePublisher{attempts: []*models.PublishAttempt{
		{PostID: 3, Outcome: models.AttemptOutcomeFailed, ErrorMessage: "rate limited"},
	}}
	app := fiber.New()
	h := NewPublishHandler(config.Config{}, pub, &fakeLinkedIn{linked: true})
	app.Get("/api/posts/history", func(c *fiber.Ctx) error {
		c.Locals("user_id", "7")
		return h.AttemptHistory(c)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/history?id=3", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if pub.historyUserID != 7 || pub.historyPostID != 3 {
		t.Errorf("history queried for user=%d post=%d", pub.historyUserID, pub.historyPostID)
	}
}

func TestHeartbeatReportsInternalError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("store unreachable")}
	app := heartbeatApp(pub, &fakeLinkedIn{linked: true})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/posts/heartbeat", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}
