package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harsh-kumar-singhh/linkmate/internal/models"
)

type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[int64]*models.Post
	nextID int64

	statusErr error
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	r := &fakePostRepo{posts: make(map[int64]*models.Post)}
	for _, p := range posts {
		r.posts[p.ID] = p
		if p.ID > r.nextID {
			r.nextID = p.ID
		}
	}
	return r
}

func (r *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := *post
	stored.ID = r.nextID
	r.posts[stored.ID] = &stored
	return stored.ID, nil
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[id], nil
}

func (r *fakePostRepo) GetStatus(ctx context.Context, id int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statusErr != nil {
		return "", r.statusErr
	}
	post, ok := r.posts[id]
	if !ok {
		return "", nil
	}
	return post.Status, nil
}

func (r *fakePostRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return nil, errors.New("not implemented")
}

func (r *fakePostRepo) ListDue(ctx context.Context, now time.Time, userID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*models.Post
	for _, post := range r.posts {
		if post.Status != models.PostStatusScheduled {
			continue
		}
		if post.ScheduledFor == nil || post.ScheduledFor.After(now) {
			continue
		}
		if userID != 0 && post.UserID != userID {
			continue
		}
		due = append(due, post)
	}
	for i := range due {
		for j := i + 1; j < len(due); j++ {
			if due[j].ScheduledFor.Before(*due[i].ScheduledFor) {
				due[i], due[j] = due[j], due[i]
			}
		}
	}
	return due, nil
}

func (r *fakePostRepo) ListUnnotified(ctx context.Context, userID int64) ([]*models.Post, error) {
	return nil, errors.New("not implemented")
}

func (r *fakePostRepo) Update(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *post
	r.posts[stored.ID] = &stored
	return nil
}

func (r *fakePostRepo) MarkPublished(ctx context.Context, id int64, publishedAt time.Time, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.Status != models.PostStatusScheduled {
		return false, nil
	}
	post.Status = models.PostStatusPublished
	post.PublishedAt = &publishedAt
	post.LinkedInPostID = externalID
	post.FailureReason = ""
	post.Notified = false
	return true, nil
}

func (r *fakePostRepo) MarkFailed(ctx context.Context, id int64, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.Status != models.PostStatusScheduled {
		return false, nil
	}
	post.Status = models.PostStatusFailed
	post.FailureReason = reason
	post.Notified = false
	return true, nil
}

func (r *fakePostRepo) MarkNotified(ctx context.Context, userID int64) error { return nil }

func (r *fakePostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[postID]
	return ok && post.UserID == userID, nil
}

func (r *fakePostRepo) Remove(ctx context.Context, id int64) error { return nil }

type fakeAccountRepo struct {
	accounts map[int64]*models.LinkedInAccount
}

func (r *fakeAccountRepo) Upsert(ctx context.Context, la *models.LinkedInAccount) (int64, error) {
	return 0, nil
}

func (r *fakeAccountRepo) GetByUserID(ctx context.Context, userID int64) (*models.LinkedInAccount, bool, error) {
	acc, ok := r.accounts[userID]
	return acc, ok, nil
}

func (r *fakeAccountRepo) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.LinkedInAccount, error) {
	return nil, nil
}

func (r *fakeAccountRepo) SetToken(ctx context.Context, userID int64, oldAccessToken string, la *models.LinkedInAccount) error {
	return nil
}

func (r *fakeAccountRepo) Remove(ctx context.Context, userID int64) error { return nil }

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []*models.PublishAttempt
}

func (r *fakeAttemptRepo) Create(ctx context.Context, pa *models.PublishAttempt) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, pa)
	return int64(len(r.attempts)), nil
}

func (r *fakeAttemptRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var attempts []*models.PublishAttempt
	for _, a := range r.attempts {
		if a.PostID == postID {
			attempts = append(attempts, a)
		}
	}
	return attempts, nil
}

type fakeAdapter struct {
	mu      sync.Mutex
	calls   []int64
	publish func(ctx context.Context, acc *models.LinkedInAccount, post *models.Post) (string, error)
}

func (a *fakeAdapter) Publish(ctx context.Context, acc *models.LinkedInAccount, post *models.Post) (string, error) {
	a.mu.Lock()
	a.calls = append(a.calls, post.ID)
	a.mu.Unlock()
	if a.publish == nil {
		return "urn:li:share:1", nil
	}
	return a.publish(ctx, acc, post)
}

func scheduledPost(id, userID int64, scheduledFor time.Time) *models.Post {
	return &models.Post{
		ID:           id,
		UserID:       userID,
		Content:      "hello network",
		Status:       models.PostStatusScheduled,
		ScheduledFor: &scheduledFor,
	}
}

func linkedAccount(userID int64) *models.LinkedInAccount {
	return &models.LinkedInAccount{
		ID:          userID,
		UserID:      userID,
		MemberURN:   "urn:li:person:abc",
		AccessToken: "encrypted-token",
	}
}

func newTestPublisher(pr *fakePostRepo, ar *fakeAccountRepo, ph *fakeAttemptRepo, adapter *fakeAdapter) *publisherService {
	return NewPublisherService(pr, ar, ph, adapter).(*publisherService)
}

func TestPublishDueHappyPath(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	pr := newFakePostRepo(scheduledPost(1, 7, past))
	ar := &fakeAccountRepo{accounts: map[int64]*models.LinkedInAccount{7: linkedAccount(7)}}
	ph := &fakeAttemptRepo{}
	adapter := &fakeAdapter{publish: func(ctx context.Context, acc *models.LinkedInAccount, post *models.Post) (string, error) {
		return "urn:li:share:123", nil
	}}

	summary, err := newTestPublisher(pr, ar, ph, adapter).PublishDue(context.Background(), 0)
	if err != nil {
		t.Fatalf("PublishDue: %v", err)
	}

	if summary.Total != 1 || summary.Published != 1 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	post := pr.posts[1]
	if post.Status != models.PostStatusPublished {
		t.Errorf("status = %s, want published", post.Status)
	}
	if post.PublishedAt == nil {
		t.Error("publishedAt not set")
	}
	if post.LinkedInPostID != "urn:li:share:123" {
		t.Errorf("external id = %q", post.LinkedInPostID)
	}
	if post.Notified {
		t.Error("notified should be false after automated publish")
	}
	if post.FailureReason != "" {
		t.Errorf("failure reason = %q, want empty", post.FailureReason)
	}
	if len(ph.attempts) != 1 || ph.attempts[0].Outcome != models.AttemptOutcomePublished {
		t.Errorf("attempt history not recorded: %+v", ph.attempts)
	}
}

func TestPublishDueMissingAccount(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	pr := newFakePostRepo(scheduledPost(1, 7, past))
	ar := &fakeAccountRepo{accounts: map[int64]*models.LinkedInAccount{}}
	adapter := &fakeAdapter{}

	summary, err := newTestPublisher(pr, ar, &fakeAttemptRepo{}, adapter).PublishDue(context.Background(), 0)
	if err != nil {
		t.Fatalf("PublishDue: %v", err)
	}

	if summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := pr.posts[1].Status; got != models.PostStatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if got := pr.posts[1].FailureReason; got != ReasonNoLinkedAccount {
		t.Errorf("failure reason = %q, want %q", got, ReasonNoLinkedAccount)
	}
	if len(adapter.calls) != 0 {
		t.Errorf("adapter was called %d times, want 0", len(adapter.calls))
	}
}

func TestPublishDueEmptyCredential(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	pr := newFakePostRepo(scheduledPost(1, 7, past))
	acc := linkedAccount(7)
	acc.AccessToken = ""
	ar := &fakeAccountRepo{accounts: map[int64]*models.LinkedInAccount{7: acc}}
	adapter := &fakeAdapter{}

	_, err := newTestPublisher(pr, ar, &fakeAttemptRepo{}, adapter).PublishDue(context.Background(), 0)
	if err != nil {
		t.Fatalf("PublishDue: %v", err)
	}

	if got := pr.posts[1].FailureReason; got != ReasonNoLinkedAccount {
		t.Errorf("failure reason = %q, want %q", got, ReasonNoLinkedAccount)
	}
	if len(adapter.calls) != 0 {
		t.Errorf("adapter was called %d times, want 0", len(adapter.calls))
	}
}

func TestPublishDuePartialFailureIsolation(t *testing.T) {
	now := time.Now().UTC()
	pr := newFakePostRepo(
		scheduledPost(1, 7, now.Add(-3*time.Minute)),
		scheduledPost(2, 7, now.Add(-2*time.Minute)),
		scheduledPost(3, 7, now.Add(-time.Minute)),
	)
	ar := &fakeAccountRepo{accounts: map[int64]*models.LinkedInAccount{7: linkedAccount(7)}}
	adapter := &fakeAdapter{publish: func(ctx context.Context, acc *models.LinkedInAccount, post *models.Post) (string, error) {
		if post.ID == 2 {
			return "", errors.New("rate limited")
		}
		return "urn:li:share:ok", nil
	}}

	summary, err := newTestPublisher(pr, ar, &fakeAttemptRepo{}, adapter).PublishDue(context.Background(), 0)
	if err != nil {
		t.Fatalf("PublishDue: %v", err)
	}

	if summary.Total != 3 || summary.Published != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(summary.Outcomes))
	}
	if got := pr.posts[2].Status; got != models.PostStatusFailed {
		t.Errorf("post 2 status = %s, want failed", got)
	}
	if got := pr.posts[2].FailureReason; got != "rate limited" {
		t.Errorf("post 2 failure reason = %q", got)
	}
	for _, id := range []int64{1, 3} {
		if got := pr.posts[id].Status; got != models.PostStatusPublished {
			t.Errorf("post %d status = %s, want published", id, got)
		}
	}
	// Candidate order is earliest-due first, one at a time.
	if adapter.calls[0] != 1 || adapter.calls[1] != 2 || adapter.calls[2] != 3 {
		t.Errorf("adapter call order = %v", adapter.calls)
	}
}

func TestPublishDueAdapterTimeout(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	pr := newFakePostRepo(scheduledPost(1, 7, past))
	ar := &fakeAccountRepo{accounts: map[int64]*models.LinkedInAccount{7: linkedAccount(7)}}
	adapter := &fakeAdapter{publish: func(ctx context.Context, acc *models.LinkedInAccount, post *models.Post) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	svc := newTestPublisher(pr, ar, &fakeAttemptRepo{}, adapter)
	svc.timeout = 20 * time.Millisecond

	summary, err := svc.PublishDue(context.Background(), 0)
	if err != nil {
		t.Fatalf("PublishDue: %v", err)
	}

	if summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	post := pr.posts[1]
	if post.Status != models.PostStatusFailed {
		t.Fatalf("status = %s, want failed (post must not stay scheduled)", post.Status)
	}
	if post.FailureReason != ReasonPublishTimeout {
		t.Errorf("failure reason = %q, want %q", post.FailureReason, ReasonPublishTimeout)
	}
}

func TestPublishDueGuardSkipsHandledPost(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	post := scheduledPost(1, 7, past)
	pr := newFakePostRepo(post)
	ar := &fakeAccountRepo{accounts: map[int64]*models.LinkedInAccount{7: linkedAccount(7)}}
	adapter := &fakeAdapter{}

	svc := newTestPublisher(pr, ar, &fakeAttemptRepo{}, adapter)

	// Scan, then flip the post before the guard re-reads it, the way a
	// concurrent run would.
	due, err := pr.ListDue(context.Background(), time.Now().UTC(), 0)
	if err != nil || len(due) != 1 {
		t.Fatalf("scan: %v (%d due)", err, len(due))
	}
	publishedAt := time.Now().UTC()
	if ok, _ := pr.MarkPublished(context.Background(), 1, publishedAt, "urn:li:share:first"); !ok {
		t.Fatal("setup publish failed")
	}

	outcome := svc.publishOne(context.Background(), due[0])
	if outcome.Status != models.AttemptOutcomeSkipped {
		t.Fatalf("outcome = %+v, want skipped", outcome)
	}
	if len(adapter.calls) != 0 {
		t.Errorf("adapter was called for an already handled post")
	}
	if pr.posts[1].LinkedInPostID != "urn:li:share:first" {
		t.Errorf("concurrent winner's state was overwritten")
	}
}

func TestPublishDueLostConditionalWrite(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	pr := newFakePostRepo(scheduledPost(1, 7, past))
	ar := &fakeAccountRepo{accounts: map[int64]*models.LinkedInAccount{7: linkedAccount(7)}}

	// Both guards pass, then a concurrent run wins the conditional write
	// while our adapter call is in flight.
	adapter := &fakeAdapter{publish: func(ctx context.Context, acc *models.LinkedInAccount, post *models.Post) (string, error) {
		publishedAt := time.Now().UTC()
		pr.MarkPublished(context.Background(), post.ID, publishedAt, "urn:li:share:winner")
		return "urn:li:share:loser", nil
	}}

	summary, err := newTestPublisher(pr, ar, &fakeAttemptRepo{}, adapter).PublishDue(context.Background(), 0)
	if err != nil {
		t.Fatalf("PublishDue: %v", err)
	}

	if summary.Skipped != 1 || summary.Published != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if pr.posts[1].LinkedInPostID != "urn:li:share:winner" {
		t.Errorf("winner's external id was overwritten: %q", pr.posts[1].LinkedInPostID)
	}
}

func TestPublishDueScopedToUser(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	pr := newFakePostRepo(
		scheduledPost(1, 7, past),
		scheduledPost(2, 8, past),
	)
	ar := &fakeAccountRepo{accounts: map[int64]*models.LinkedInAccount{
		7: linkedAccount(7),
		8: linkedAccount(8),
	}}
	adapter := &fakeAdapter{}

	summary, err := newTestPublisher(pr, ar, &fakeAttemptRepo{}, adapter).PublishDue(context.Background(), 7)
	if err != nil {
		t.Fatalf("PublishDue: %v", err)
	}

	if summary.Total != 1 {
		t.Fatalf("total = %d, want 1", summary.Total)
	}
	if got := pr.posts[2].Status; got != models.PostStatusScheduled {
		t.Errorf("other user's post was touched: %s", got)
	}
}

func TestAttemptHistoryScopedToOwner(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	pr := newFakePostRepo(scheduledPost(1, 7, past))
	ar := &fakeAccountRepo{accounts: map[int64]*models.LinkedInAccount{7: linkedAccount(7)}}
	ph := &fakeAttemptRepo{}
	svc := newTestPublisher(pr, ar, ph, &fakeAdapter{})

	if _, err := svc.PublishDue(context.Background(), 0); err != nil {
		t.Fatalf("PublishDue: %v", err)
	}

	attempts, err := svc.AttemptHistory(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("AttemptHistory: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Outcome != models.AttemptOutcomePublished {
		t.Errorf("unexpected history: %+v", attempts)
	}

	if _, err := svc.AttemptHistory(context.Background(), 8, 1); err == nil {
		t.Error("another user's history must not be readable")
	}
}

func TestPublishDueFutureNotCandidate(t *testing.T) {
	pr := newFakePostRepo(scheduledPost(1, 7, time.Now().UTC().Add(time.Minute)))
	ar := &fakeAccountRepo{accounts: map[int64]*models.LinkedInAccount{7: linkedAccount(7)}}
	adapter := &fakeAdapter{}

	summary, err := newTestPublisher(pr, ar, &fakeAttemptRepo{}, adapter).PublishDue(context.Background(), 0)
	if err != nil {
		t.Fatalf("PublishDue: %v", err)
	}
	if summary.Total != 0 {
		t.Fatalf("total = %d, want 0", summary.Total)
	}
	if got := pr.posts[1].Status; got != models.PostStatusScheduled {
		t.Errorf("future post status = %s, want scheduled", got)
	}
}
