package postgres

import (
	"context"

	"github.com/matchfit/matchfit/internal/models"
	"gorm.io/gorm"
)

// ExpertRepository is read-only; the roster is seeded and managed outside
// this service.
type ExpertRepository interface {
	ListAll(ctx context.Context) ([]models.Expert, error)
}

type expertRepo struct {
	db *gorm.DB
}

func NewExpertRepo(db *gorm.DB) ExpertRepository {
	return &expertRepo{db: db}
}

func (r *expertRepo) ListAll(ctx context.Context) ([]models.Expert, error) {
	var out []models.Expert
	err := r.db.WithContext(ctx).
		Order("id").
		Find(&out).Error
	return out, err
}
