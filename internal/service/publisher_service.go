package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harsh-kumar-singhh/linkmate/internal/models"
	"github.com/harsh-kumar-singhh/linkmate/internal/repository"
	"github.com/harsh-kumar-singhh/linkmate/internal/transfer"
)

// Failure reasons stored on posts the orchestrator gives up on. They are
// shown to the owner, who has to reschedule manually; there is no automatic
// retry.
const (
	ReasonNoLinkedAccount = "LinkedIn account is not connected"
	ReasonPublishTimeout  = "publishing timed out"
)

const defaultPublishTimeout = 30 * time.Second

// PublishAdapter is the boundary to the external network. An implementation
// must return the external post id on success and a user-presentable error on
// failure; the orchestrator treats every failure as terminal for the run.
type PublishAdapter interface {
	Publish(ctx context.Context, acc *models.LinkedInAccount, post *models.Post) (string, error)
}

// PublisherService drives due posts through guard, precondition, adapter and
// state transition. All trigger surfaces (cron, heartbeat, queue) share it.
// AttemptHistory exposes the audit trail the runs leave behind.
type PublisherService interface {
	PublishDue(ctx context.Context, userID int64) (*transfer.PublishRunSummary, error)
	AttemptHistory(ctx context.Context, userID, postID int64) ([]*models.PublishAttempt, error)
}

type publisherService struct {
	pr      repository.PostRepository
	ar      repository.LinkedInAccountRepository
	ph      repository.PublishAttemptRepository
	adapter PublishAdapter
	timeout time.Duration
}

func NewPublisherService(
	pr repository.PostRepository,
	ar repository.LinkedInAccountRepository,
	ph repository.PublishAttemptRepository,
	adapter PublishAdapter) PublisherService {
	return &publisherService{
		pr:      pr,
		ar:      ar,
		ph:      ph,
		adapter: adapter,
		timeout: defaultPublishTimeout,
	}
}

// PublishDue scans for due posts and processes them sequentially, earliest
// first. userID of 0 runs over all users (scheduled-job scope); a non-zero
// userID restricts the pass to that owner (heartbeat scope). One post's
// failure never aborts the rest of the batch.
func (s *publisherService) PublishDue(ctx context.Context, userID int64) (*transfer.PublishRunSummary, error) {
	now := time.Now().UTC()

	due, err := s.pr.ListDue(ctx, now, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error scanning due posts: %w", err)
	}

	summary := &transfer.PublishRunSummary{
		Total:    len(due),
		Outcomes: make([]transfer.PostOutcome, 0, len(due)),
	}

	for _, post := range due {
		outcome := s.publishOne(ctx, post)

		switch outcome.Status {
		case models.AttemptOutcomePublished:
			summary.Published++
		case models.AttemptOutcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)

		s.recordAttempt(ctx, post, outcome)
	}

	slog.Info(fmt.Sprintf("publish run: total=%d published=%d failed=%d skipped=%d",
		summary.Total, summary.Published, summary.Failed, summary.Skipped))

	return summary, nil
}

func (s *publisherService) publishOne(ctx context.Context, post *models.Post) transfer.PostOutcome {
	outcome := transfer.PostOutcome{PostID: post.ID}

	// Idempotency guard: between the scan and this point a concurrent run
	// may already have handled the post. Re-read the status and only act on
	// a post that is still scheduled.
	status, err := s.pr.GetStatus(ctx, post.ID)
	if err != nil {
		outcome.Status = models.AttemptOutcomeSkipped
		outcome.Error = err.Error()
		return outcome
	}
	if status != models.PostStatusScheduled {
		outcome.Status = models.AttemptOutcomeSkipped
		return outcome
	}

	// Precondition: the owner must have a linked account with a credential.
	// Missing credentials fail the post without touching the adapter.
	acc, ok, err := s.ar.GetByUserID(ctx, post.UserID)
	if err != nil {
		outcome.Status = models.AttemptOutcomeSkipped
		outcome.Error = err.Error()
		return outcome
	}
	if !ok || acc.AccessToken == "" {
		return s.fail(ctx, post, ReasonNoLinkedAccount)
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	externalID, err := s.adapter.Publish(publishCtx, acc, post)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonPublishTimeout
		}
		return s.fail(ctx, post, reason)
	}

	updated, err := s.pr.MarkPublished(ctx, post.ID, time.Now().UTC(), externalID)
	if err != nil {
		outcome.Status = models.AttemptOutcomeSkipped
		outcome.Error = err.Error()
		return outcome
	}
	if !updated {
		// Lost the conditional write; a concurrent run finished first.
		outcome.Status = models.AttemptOutcomeSkipped
		return outcome
	}

	outcome.Status = models.AttemptOutcomePublished
	return outcome
}

func (s *publisherService) fail(ctx context.Context, post *models.Post, reason string) transfer.PostOutcome {
	outcome := transfer.PostOutcome{PostID: post.ID, Status: models.AttemptOutcomeFailed, Error: reason}

	updated, err := s.pr.MarkFailed(ctx, post.ID, reason)
	if err != nil {
		outcome.Status = models.AttemptOutcomeSkipped
		outcome.Error = err.Error()
		return outcome
	}
	if !updated {
		outcome.Status = models.AttemptOutcomeSkipped
		outcome.Error = ""
	}
	return outcome
}

// AttemptHistory returns the recorded outcomes for one of the owner's posts,
// newest first.
func (s *publisherService) AttemptHistory(ctx context.Context, userID, postID int64) ([]*models.PublishAttempt, error) {
	owned, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	return s.ph.ListByPostID(ctx, postID)
}

// recordAttempt writes the audit row for an outcome. Best effort: a history
// write failure must not disturb the run.
func (s *publisherService) recordAttempt(ctx context.Context, post *models.Post, outcome transfer.PostOutcome) {
	attempt := models.PublishAttempt{
		UserID:       post.UserID,
		PostID:       post.ID,
		Outcome:      outcome.Status,
		ErrorMessage: outcome.Error,
	}
	if _, err := s.ph.Create(ctx, &attempt); err != nil {
		slog.Info(err.Error())
	}
}
