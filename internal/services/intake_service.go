package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/matchfit/matchfit/internal/models"
	pgrepo "github.com/matchfit/matchfit/internal/repositories/postgres"
	"github.com/matchfit/matchfit/internal/utils"
)

// IntakeService persists client intake profiles. The generated overview is
// stored alongside the raw answers so a later matching run can reuse it
// without another model call.
type IntakeService interface {
	Submit(ctx context.Context, p *models.ClientProfile) (*models.ClientProfile, error)
	Get(ctx context.Context, id string) (*models.ClientProfile, error)
	AttachOverview(ctx context.Context, id, overview string) error
}

type intakeService struct {
	profiles pgrepo.ClientProfileRepository
}

func NewIntakeService(profiles pgrepo.ClientProfileRepository) IntakeService {
	return &intakeService{profiles: profiles}
}

func (s *intakeService) Submit(ctx context.Context, p *models.ClientProfile) (*models.ClientProfile, error) {
	const op = "IntakeService.Submit"

	if err := ValidateIntake(p.Intake()); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if p.Goals == nil {
		p.Goals = pq.StringArray{}
	}
	if p.ChronicDiseases == nil {
		p.ChronicDiseases = pq.StringArray{}
	}
	if p.Injuries == nil {
		p.Injuries = pq.StringArray{}
	}

	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save client profile", err)
	}
	return p, nil
}

func (s *intakeService) Get(ctx context.Context, id string) (*models.ClientProfile, error) {
	const op = "IntakeService.Get"

	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "client profile not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load client profile", err)
	}
	return p, nil
}

func (s *intakeService) AttachOverview(ctx context.Context, id, overview string) error {
	const op = "IntakeService.AttachOverview"

	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Overview = overview
	p.UpdatedAt = time.Now().UTC()
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update client profile", err)
	}
	return nil
}
