package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/harsh-kumar-singhh/linkmate/internal/models"
	"github.com/harsh-kumar-singhh/linkmate/internal/repository"
	"github.com/harsh-kumar-singhh/linkmate/internal/transfer"
)

// MaxContentLength is LinkedIn's character limit for a post body.
const MaxContentLength = 3000

const scheduledTimeLayout = "2006-01-02T15:04"

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, image *multipart.FileHeader) (int64, time.Duration, error)
	UpdatePost(ctx context.Context, userID, postID int64, pu *transfer.PostUpdate) (time.Duration, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
	ListUnnotified(ctx context.Context, userID int64) ([]*models.Post, error)
	AcknowledgeNotifications(ctx context.Context, userID int64) error
}

type postService struct {
	pr    repository.PostRepository
	media MediaService
}

func NewPostService(pr repository.PostRepository, media MediaService) PostService {
	return &postService{
		pr:    pr,
		media: media,
	}
}

// CreatePost stores a new draft or scheduled post. The returned duration is
// the delay until the scheduled time, for enqueueing a publish check; it is 0
// for drafts and for posts already due.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, image *multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if err := validateContent(pc.Content); err != nil {
		slog.Info(err.Error())
		return 0, 0, err
	}

	status := pc.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if status != models.PostStatusDraft && status != models.PostStatusScheduled {
		err := fmt.Errorf("invalid post status: %s", status)
		slog.Info(err.Error())
		return 0, 0, err
	}

	post := models.Post{
		UserID:  userID,
		Content: pc.Content,
		Status:  status,
	}

	if status == models.PostStatusScheduled {
		scheduledFor, err := parseScheduledTime(pc.ScheduledFor)
		if err != nil {
			slog.Info(err.Error())
			return 0, 0, err
		}
		post.ScheduledFor = &scheduledFor
	}

	if image != nil {
		imageURL, err := s.media.UploadImage(ctx, userID, image)
		if err != nil {
			return 0, 0, fmt.Errorf("error uploading image: %w", err)
		}
		post.ImageURL = imageURL
	}

	postID, err := s.pr.Create(ctx, nil, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	return postID, delayUntil(post.ScheduledFor), nil
}

// UpdatePost edits a post the owner may still change: drafts, scheduled posts
// and failed posts. Rescheduling a failed post puts it back in front of the
// scheduler with a fresh time and a cleared failure reason.
func (s *postService) UpdatePost(ctx context.Context, userID, postID int64, pu *transfer.PostUpdate) (time.Duration, error) {
	if pu == nil {
		err := errors.New("post update data is nil")
		slog.Error(err.Error())
		return 0, err
	}

	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return 0, err
	}

	switch post.Status {
	case models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed:
	default:
		err = fmt.Errorf("post in status %s cannot be edited", post.Status)
		slog.Info(err.Error())
		return 0, err
	}

	if pu.Content != "" {
		if err := validateContent(pu.Content); err != nil {
			slog.Info(err.Error())
			return 0, err
		}
		post.Content = pu.Content
	}

	if pu.Status != "" {
		if pu.Status != models.PostStatusDraft && pu.Status != models.PostStatusScheduled {
			err = fmt.Errorf("invalid post status: %s", pu.Status)
			slog.Info(err.Error())
			return 0, err
		}
		post.Status = pu.Status
	}

	if post.Status == models.PostStatusScheduled {
		if pu.ScheduledFor != "" {
			scheduledFor, err := parseScheduledTime(pu.ScheduledFor)
			if err != nil {
				slog.Info(err.Error())
				return 0, err
			}
			post.ScheduledFor = &scheduledFor
		}
		if post.ScheduledFor == nil {
			err = errors.New("scheduled post needs a scheduled time")
			slog.Info(err.Error())
			return 0, err
		}
		post.FailureReason = ""
	}

	if err := s.pr.Update(ctx, post); err != nil {
		return 0, fmt.Errorf("error updating post: %w", err)
	}

	if post.Status != models.PostStatusScheduled {
		return 0, nil
	}
	return delayUntil(post.ScheduledFor), nil
}

func (s *postService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	if userID == 0 {
		err := errors.New("user is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	if postID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return nil, errors.New("error getting post info")
	}
	return post, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	return s.ownedPost(ctx, userID, postID)
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if _, err := s.ownedPost(ctx, userID, postID); err != nil {
		return err
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post")
	}
	return nil
}

// ListUnnotified returns posts whose automated state change the client has
// not acknowledged yet.
func (s *postService) ListUnnotified(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListUnnotified(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications")
	}
	return posts, nil
}

func (s *postService) AcknowledgeNotifications(ctx context.Context, userID int64) error {
	if err := s.pr.MarkNotified(ctx, userID); err != nil {
		return fmt.Errorf("error acknowledging notifications")
	}
	return nil
}

func validateContent(content string) error {
	if content == "" {
		return errors.New("content cannot be empty")
	}
	if len([]rune(content)) > MaxContentLength {
		return fmt.Errorf("content exceeds the %d character limit", MaxContentLength)
	}
	return nil
}

// parseScheduledTime parses the client's local-less timestamp and truncates it
// to minute granularity, so due-time comparisons and display stay stable.
func parseScheduledTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("scheduled time is required")
	}
	scheduledFor, err := time.Parse(scheduledTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid scheduled time format: %w", err)
	}
	return scheduledFor.UTC().Truncate(time.Minute), nil
}

func delayUntil(scheduledFor *time.Time) time.Duration {
	if scheduledFor == nil {
		return 0
	}
	delay := time.Until(*scheduledFor)
	if delay < 0 {
		delay = 0
	}
	return delay
}
