package postgres

import (
	"context"
	"errors"

	"github.com/matchfit/matchfit/internal/models"
	"github.com/matchfit/matchfit/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClientProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.ClientProfile, error)
	Upsert(ctx context.Context, p *models.ClientProfile) error
}

type clientProfileRepo struct {
	db *gorm.DB
}

func NewClientProfileRepo(db *gorm.DB) ClientProfileRepository {
	return &clientProfileRepo{db: db}
}

func (r *clientProfileRepo) GetByID(ctx context.Context, id string) (*models.ClientProfile, error) {
	var p models.ClientProfile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *clientProfileRepo) Upsert(ctx context.Context, p *models.ClientProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"training_experience", "goals", "sessions_per_week", "chronic_diseases", "injuries", "weight_goal", "demographics", "overview", "updated_at"}),
		}).
		Create(p).Error
}
