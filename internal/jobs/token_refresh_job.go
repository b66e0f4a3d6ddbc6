package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harsh-kumar-singhh/linkmate/internal/models"
	"github.com/harsh-kumar-singhh/linkmate/internal/repository"
	"github.com/harsh-kumar-singhh/linkmate/internal/service"
)

// TokenRefreshJob sweeps LinkedIn accounts whose access tokens are about to
// expire and refreshes them, so scheduled publishes don't fail on stale
// credentials.
type TokenRefreshJob struct {
	sr repository.LinkedInAccountRepository
	li service.LinkedInService
}

func NewTokenRefreshJob(
	sr repository.LinkedInAccountRepository,
	li service.LinkedInService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr: sr,
		li: li,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.sr.ListExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.LinkedInAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.li.RefreshToken(ctx, acc.UserID, acc.AccessToken, acc.RefreshToken); err != nil {
				slog.Info("Unable to refresh LinkedIn token")
			}
		}(acc)
	}

	wg.Wait()
}
