package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matchfit/matchfit/internal/cachekey"
	"github.com/matchfit/matchfit/internal/models"
	"github.com/matchfit/matchfit/internal/providers/llm"
	"github.com/matchfit/matchfit/internal/utils"
)

const (
	overviewSystemPrompt = "You are a healthcare matching assistant. Generate concise, professional client profiles for matching with healthcare providers and fitness trainers."

	overviewTimeout       = 60 * time.Second
	overviewStreamTimeout = 90 * time.Second
)

// ErrStreamAborted is returned when the consumer stops pulling tokens before
// the stream completes. No cache write happens for an aborted stream.
var ErrStreamAborted = errors.New("overview stream aborted by consumer")

type OverviewResult struct {
	Overview string
	Cached   bool
}

type OverviewService interface {
	Generate(ctx context.Context, profile models.IntakeProfile) (OverviewResult, error)
	// GenerateStream feeds tokens to onToken as they arrive and returns the
	// accumulated text. onToken returning false abandons the stream.
	GenerateStream(ctx context.Context, profile models.IntakeProfile, onToken func(token string) bool) (OverviewResult, error)
}

type overviewService struct {
	provider llm.Provider
	cache    MatchCacheService
	log      *logrus.Logger
}

func NewOverviewService(provider llm.Provider, cache MatchCacheService, log *logrus.Logger) OverviewService {
	if log == nil {
		log = logrus.New()
	}
	return &overviewService{provider: provider, cache: cache, log: log}
}

func ValidateIntake(p models.IntakeProfile) error {
	const op = "OverviewService.ValidateIntake"

	switch {
	case strings.TrimSpace(p.TrainingExperience) == "":
		return utils.E(utils.CodeInvalidArgument, op, "training_experience is required", nil)
	case len(p.Goals) == 0:
		return utils.E(utils.CodeInvalidArgument, op, "goals must not be empty", nil)
	case strings.TrimSpace(p.SessionsPerWeek) == "":
		return utils.E(utils.CodeInvalidArgument, op, "sessions_per_week is required", nil)
	case strings.TrimSpace(p.WeightGoal) == "":
		return utils.E(utils.CodeInvalidArgument, op, "weight_goal is required", nil)
	}
	return nil
}

func joinOrNone(vs []string) string {
	if len(vs) == 0 {
		return "None"
	}
	return strings.Join(vs, ", ")
}

func buildOverviewPrompt(p models.IntakeProfile) string {
	return fmt.Sprintf(`Generate a concise professional client profile (100-150 words) based on the following information:

Training Experience: %s
Goals: %s
Sessions Per Week: %s
Chronic Diseases: %s
Injuries: %s
Weight Goal: %s

Create a clear, professional summary that highlights the client's fitness level, primary goals, any health considerations, and training capacity. Focus on what would be relevant for matching with healthcare professionals.`,
		p.TrainingExperience,
		strings.Join(p.Goals, ", "),
		p.SessionsPerWeek,
		joinOrNone(p.ChronicDiseases),
		joinOrNone(p.Injuries),
		p.WeightGoal,
	)
}

func overviewRequest(p models.IntakeProfile) llm.Request {
	return llm.Request{
		System:      overviewSystemPrompt,
		User:        buildOverviewPrompt(p),
		Temperature: 0.7,
		MaxTokens:   250,
	}
}

func (s *overviewService) Generate(ctx context.Context, profile models.IntakeProfile) (OverviewResult, error) {
	if err := ValidateIntake(profile); err != nil {
		return OverviewResult{}, err
	}

	key := cachekey.DeriveProfileKey(profile)
	if cached, ok := s.cache.GetOverview(ctx, key); ok {
		return OverviewResult{Overview: cached, Cached: true}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, overviewTimeout)
	defer cancel()

	text, err := s.provider.Complete(callCtx, overviewRequest(profile))
	if err != nil {
		return OverviewResult{}, err
	}

	s.cache.PutOverview(ctx, key, profile, text)
	return OverviewResult{Overview: text, Cached: false}, nil
}

func (s *overviewService) GenerateStream(ctx context.Context, profile models.IntakeProfile, onToken func(token string) bool) (OverviewResult, error) {
	if err := ValidateIntake(profile); err != nil {
		return OverviewResult{}, err
	}

	key := cachekey.DeriveProfileKey(profile)
	if cached, ok := s.cache.GetOverview(ctx, key); ok {
		return OverviewResult{Overview: cached, Cached: true}, nil
	}

	streamCtx, cancel := context.WithTimeout(ctx, overviewStreamTimeout)
	defer cancel()

	chunks, errs := s.provider.Stream(streamCtx, overviewRequest(profile))

	var full strings.Builder
	for chunk := range chunks {
		full.WriteString(chunk)
		if onToken != nil && !onToken(chunk) {
			// Consumer is gone; cancel so the provider closes its upstream
			// connection instead of generating into the void.
			cancel()
			drain(chunks)
			return OverviewResult{}, ErrStreamAborted
		}
	}

	if err := <-errs; err != nil {
		return OverviewResult{}, err
	}
	if errors.Is(streamCtx.Err(), context.DeadlineExceeded) {
		return OverviewResult{}, utils.E(utils.CodeTimeout, "OverviewService.GenerateStream", "overview stream timed out", streamCtx.Err())
	}
	if streamCtx.Err() != nil {
		return OverviewResult{}, ErrStreamAborted
	}

	text := strings.TrimSpace(full.String())
	if text == "" {
		return OverviewResult{}, utils.E(utils.CodeBadResponse, "OverviewService.GenerateStream", "empty response from model", nil)
	}

	s.cache.PutOverview(ctx, key, profile, text)
	return OverviewResult{Overview: text, Cached: false}, nil
}

func drain(ch <-chan string) {
	for range ch {
	}
}
