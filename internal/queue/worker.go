package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

// HandlePublishCheckTask fires when a post's scheduled time arrives and runs a
// publish pass scoped to the post's owner. The post itself may already have
// been handled by a cron or heartbeat run; the orchestrator's guard then
// records a skip and the task is done.
func (q *Queue) HandlePublishCheckTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	_, err := q.publisher.PublishDue(ctx, payload.UserID)
	return err
}
