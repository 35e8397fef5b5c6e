package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/matchfit/matchfit/internal/models"
	"github.com/matchfit/matchfit/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OverviewCacheRepository interface {
	GetFresh(ctx context.Context, profileHash string, window time.Duration) (*models.OverviewCacheEntry, error)
	Upsert(ctx context.Context, e *models.OverviewCacheEntry) error
	Touch(ctx context.Context, profileHash string, at time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type overviewCacheRepo struct {
	db *gorm.DB
}

func NewOverviewCacheRepo(db *gorm.DB) OverviewCacheRepository {
	return &overviewCacheRepo{db: db}
}

func (r *overviewCacheRepo) GetFresh(ctx context.Context, profileHash string, window time.Duration) (*models.OverviewCacheEntry, error) {
	var e models.OverviewCacheEntry
	err := r.db.WithContext(ctx).
		Where("profile_hash = ?", profileHash).
		Where("created_at >= ?", time.Now().UTC().Add(-window)).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &e, err
}

func (r *overviewCacheRepo) Upsert(ctx context.Context, e *models.OverviewCacheEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"client_data", "overview", "created_at", "last_accessed_at"}),
		}).
		Create(e).Error
}

func (r *overviewCacheRepo) Touch(ctx context.Context, profileHash string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OverviewCacheEntry{}).
		Where("profile_hash = ?", profileHash).
		Updates(map[string]any{
			"hit_count":        gorm.Expr("hit_count + 1"),
			"last_accessed_at": at,
		}).Error
}

func (r *overviewCacheRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.OverviewCacheEntry{})
	return res.RowsAffected, res.Error
}
