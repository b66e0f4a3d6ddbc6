package models

import "time"

type Post struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	Content        string     `db:"content" json:"content"`
	ImageURL       string     `db:"image_url" json:"image_url,omitempty"`
	Status         string     `db:"status" json:"status"` // draft, scheduled, published, failed
	ScheduledFor   *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at,omitempty"`
	LinkedInPostID string     `db:"linkedin_post_id" json:"linkedin_post_id,omitempty"`
	FailureReason  string     `db:"failure_reason" json:"failure_reason,omitempty"`
	Notified       bool       `db:"notified" json:"notified"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
