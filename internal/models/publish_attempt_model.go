package models

import "time"

// PublishAttempt is an audit row written for every outcome the publish
// orchestrator records, including skips.
type PublishAttempt struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	Outcome      string    `db:"outcome" json:"outcome"` // published, failed, skipped
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	AttemptOutcomePublished = "published"
	AttemptOutcomeFailed    = "failed"
	AttemptOutcomeSkipped   = "skipped"
)
