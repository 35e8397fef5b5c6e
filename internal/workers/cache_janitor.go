package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matchfit/matchfit/internal/services"
)

// CacheJanitor periodically evicts cache rows past the retention window.
// Reads already filter by freshness, so the janitor only reclaims space.
type CacheJanitor struct {
	Cache    services.MatchCacheService
	Interval time.Duration
	MaxAge   time.Duration
	Logger   *logrus.Logger
}

func (j *CacheJanitor) Start(ctx context.Context) {
	if j.Interval <= 0 {
		j.Interval = time.Hour
	}
	if j.MaxAge <= 0 {
		j.MaxAge = services.OverviewFreshness
	}
	if j.Logger == nil {
		j.Logger = logrus.New()
	}

	go func() {
		ticker := time.NewTicker(j.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Cache.PurgeOlderThan(ctx, j.MaxAge)
			}
		}
	}()
}
