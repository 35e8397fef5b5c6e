package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matchfit/matchfit/internal/cache"
	"github.com/matchfit/matchfit/internal/models"
	pgrepo "github.com/matchfit/matchfit/internal/repositories/postgres"
)

const (
	// OverviewFreshness is how long a cached overview is eligible for reuse.
	OverviewFreshness = 7 * 24 * time.Hour
	// MatchFreshness is the reuse window for cached match scores.
	MatchFreshness = 24 * time.Hour

	overviewHotKeyPrefix = "overview:"
)

// MatchCacheService is the content-addressed cache over both namespaces.
// Every operation is best effort: storage failures degrade to a miss (reads)
// or a dropped write, logged and never surfaced to callers. The system stays
// correct with the cache fully unavailable, just slower.
type MatchCacheService interface {
	GetOverview(ctx context.Context, profileHash string) (string, bool)
	PutOverview(ctx context.Context, profileHash string, profile models.IntakeProfile, overview string)
	GetMatches(ctx context.Context, overviewHash string, expertIDs []int) (map[int]models.MatchResult, bool)
	PutMatch(ctx context.Context, overviewHash string, m models.MatchResult)
	PutMatches(ctx context.Context, overviewHash string, ms []models.MatchResult)
	Invalidate(ctx context.Context, overviewHash string)
	PurgeOlderThan(ctx context.Context, age time.Duration)
}

type matchCacheService struct {
	overviews pgrepo.OverviewCacheRepository
	matches   pgrepo.MatchCacheRepository
	hot       cache.Cache // optional redis layer in front of the overview table
	log       *logrus.Logger
}

func NewMatchCacheService(overviews pgrepo.OverviewCacheRepository, matches pgrepo.MatchCacheRepository, hot cache.Cache, log *logrus.Logger) MatchCacheService {
	if log == nil {
		log = logrus.New()
	}
	return &matchCacheService{overviews: overviews, matches: matches, hot: hot, log: log}
}

func (s *matchCacheService) GetOverview(ctx context.Context, profileHash string) (string, bool) {
	if s.hot != nil {
		var text string
		if hit, err := s.hot.GetJSON(ctx, overviewHotKeyPrefix+profileHash, &text); err == nil && hit && text != "" {
			s.touchAsync(profileHash)
			return text, true
		}
	}

	e, err := s.overviews.GetFresh(ctx, profileHash, OverviewFreshness)
	if err != nil {
		s.log.WithError(err).WithField("profile_hash", profileHash).Debug("overview cache miss")
		return "", false
	}

	s.touchAsync(profileHash)
	s.backfillHot(profileHash, e.Overview)
	return e.Overview, true
}

func (s *matchCacheService) PutOverview(ctx context.Context, profileHash string, profile models.IntakeProfile, overview string) {
	payload, err := json.Marshal(profile)
	if err != nil {
		s.log.WithError(err).Warn("failed to marshal profile for overview cache")
		payload = nil
	}

	now := time.Now().UTC()
	entry := &models.OverviewCacheEntry{
		ProfileHash:    profileHash,
		ClientData:     payload,
		Overview:       overview,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if err := s.overviews.Upsert(ctx, entry); err != nil {
		s.log.WithError(err).WithField("profile_hash", profileHash).Warn("failed to cache overview")
		return
	}
	s.backfillHot(profileHash, overview)
}

// GetMatches returns absent unless a fresh entry exists for every requested
// expert. Partial coverage is a full miss so a stale, incomplete match set is
// never served as complete.
func (s *matchCacheService) GetMatches(ctx context.Context, overviewHash string, expertIDs []int) (map[int]models.MatchResult, bool) {
	if len(expertIDs) == 0 {
		return nil, false
	}

	entries, err := s.matches.ListFresh(ctx, overviewHash, expertIDs, MatchFreshness)
	if err != nil {
		s.log.WithError(err).WithField("overview_hash", overviewHash).Warn("match cache read failed")
		return nil, false
	}
	if len(entries) < len(expertIDs) {
		if len(entries) > 0 {
			s.log.WithFields(logrus.Fields{
				"overview_hash": overviewHash,
				"found":         len(entries),
				"requested":     len(expertIDs),
			}).Debug("partial match cache hit treated as miss")
		}
		return nil, false
	}

	out := make(map[int]models.MatchResult, len(entries))
	for _, e := range entries {
		out[e.ExpertID] = models.MatchResult{
			ExpertID:   e.ExpertID,
			MatchScore: e.MatchScore,
			Reason1:    e.Reason1,
			Reason2:    e.Reason2,
		}
	}
	return out, true
}

func (s *matchCacheService) PutMatch(ctx context.Context, overviewHash string, m models.MatchResult) {
	entry := toCacheEntry(overviewHash, m, time.Now().UTC())
	if err := s.matches.Upsert(ctx, &entry); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"overview_hash": overviewHash,
			"expert_id":     m.ExpertID,
		}).Warn("failed to cache match")
	}
}

func (s *matchCacheService) PutMatches(ctx context.Context, overviewHash string, ms []models.MatchResult) {
	if len(ms) == 0 {
		return
	}
	now := time.Now().UTC()
	entries := make([]models.MatchCacheEntry, 0, len(ms))
	for _, m := range ms {
		entries = append(entries, toCacheEntry(overviewHash, m, now))
	}
	if err := s.matches.UpsertBatch(ctx, entries); err != nil {
		s.log.WithError(err).WithField("overview_hash", overviewHash).Warn("failed to cache match batch")
	}
}

func (s *matchCacheService) Invalidate(ctx context.Context, overviewHash string) {
	if err := s.matches.DeleteByHash(ctx, overviewHash); err != nil {
		s.log.WithError(err).WithField("overview_hash", overviewHash).Warn("failed to invalidate match cache")
	}
}

func (s *matchCacheService) PurgeOlderThan(ctx context.Context, age time.Duration) {
	cutoff := time.Now().UTC().Add(-age)

	if n, err := s.overviews.DeleteOlderThan(ctx, cutoff); err != nil {
		s.log.WithError(err).Warn("overview cache purge failed")
	} else if n > 0 {
		s.log.WithField("purged", n).Info("purged overview cache entries")
	}

	if n, err := s.matches.DeleteOlderThan(ctx, cutoff); err != nil {
		s.log.WithError(err).Warn("match cache purge failed")
	} else if n > 0 {
		s.log.WithField("purged", n).Info("purged match cache entries")
	}
}

// touchAsync bumps hit bookkeeping off the caller's critical path.
func (s *matchCacheService) touchAsync(profileHash string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.overviews.Touch(ctx, profileHash, time.Now().UTC()); err != nil {
			s.log.WithError(err).Debug("overview cache touch failed")
		}
	}()
}

func (s *matchCacheService) backfillHot(profileHash, overview string) {
	if s.hot == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.hot.SetJSON(ctx, overviewHotKeyPrefix+profileHash, overview, OverviewFreshness); err != nil {
			s.log.WithError(err).Debug("overview hot cache write failed")
		}
	}()
}

func toCacheEntry(overviewHash string, m models.MatchResult, at time.Time) models.MatchCacheEntry {
	return models.MatchCacheEntry{
		OverviewHash: overviewHash,
		ExpertID:     m.ExpertID,
		MatchScore:   m.MatchScore,
		Reason1:      m.Reason1,
		Reason2:      m.Reason2,
		CreatedAt:    at,
	}
}
