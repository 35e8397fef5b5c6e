package postgres

import (
	"context"
	"time"

	"github.com/matchfit/matchfit/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MatchCacheRepository interface {
	ListFresh(ctx context.Context, overviewHash string, expertIDs []int, window time.Duration) ([]models.MatchCacheEntry, error)
	Upsert(ctx context.Context, e *models.MatchCacheEntry) error
	UpsertBatch(ctx context.Context, entries []models.MatchCacheEntry) error
	DeleteByHash(ctx context.Context, overviewHash string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type matchCacheRepo struct {
	db *gorm.DB
}

func NewMatchCacheRepo(db *gorm.DB) MatchCacheRepository {
	return &matchCacheRepo{db: db}
}

func (r *matchCacheRepo) ListFresh(ctx context.Context, overviewHash string, expertIDs []int, window time.Duration) ([]models.MatchCacheEntry, error) {
	var out []models.MatchCacheEntry
	err := r.db.WithContext(ctx).
		Where("overview_hash = ?", overviewHash).
		Where("expert_id IN ?", expertIDs).
		Where("created_at >= ?", time.Now().UTC().Add(-window)).
		Find(&out).Error
	return out, err
}

var matchConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "overview_hash"}, {Name: "expert_id"}},
	DoUpdates: clause.AssignmentColumns([]string{"match_score", "reason_1", "reason_2", "created_at"}),
}

func (r *matchCacheRepo) Upsert(ctx context.Context, e *models.MatchCacheEntry) error {
	return r.db.WithContext(ctx).Clauses(matchConflict).Create(e).Error
}

func (r *matchCacheRepo) UpsertBatch(ctx context.Context, entries []models.MatchCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(matchConflict).Create(&entries).Error
}

func (r *matchCacheRepo) DeleteByHash(ctx context.Context, overviewHash string) error {
	return r.db.WithContext(ctx).
		Where("overview_hash = ?", overviewHash).
		Delete(&models.MatchCacheEntry{}).Error
}

func (r *matchCacheRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.MatchCacheEntry{})
	return res.RowsAffected, res.Error
}
