package queue

import (
	"github.com/harsh-kumar-singhh/linkmate/internal/service"
)

// Queue handles the precision publish-check tasks enqueued when a post is
// scheduled. The handler runs the same orchestrator the cron and heartbeat
// surfaces run; the idempotency guard makes the overlap harmless.
type Queue struct {
	publisher service.PublisherService
}

func NewQueue(publisher service.PublisherService) *Queue {
	return &Queue{
		publisher: publisher,
	}
}

const TaskTypePublishCheck = "publish:check"

type PublishCheckPayload struct {
	UserID int64 `json:"user_id"`
	PostID int64 `json:"post_id"`
}
