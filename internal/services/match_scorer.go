package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matchfit/matchfit/internal/models"
	"github.com/matchfit/matchfit/internal/providers/llm"
	"github.com/matchfit/matchfit/internal/utils"
)

const (
	scorerSystemPrompt = "You are a fitness matchmaking expert. Respond only with valid JSON."

	scoreTimeout = 60 * time.Second
)

// MatchScorer wraps the per-expert LLM calls. The score-only phase is the
// cheap call; reasons are generated separately for results that will actually
// be shown. A response with a missing or out-of-range score is a parse
// failure, never silently clamped here; the orchestrator owns the
// degraded-mode fallback.
type MatchScorer interface {
	ScoreOnly(ctx context.Context, overview string, expert models.Expert) (models.MatchResult, error)
	ReasonsOnly(ctx context.Context, overview string, expert models.Expert, score float64) (models.MatchResult, error)
	ScoreAndReasons(ctx context.Context, overview string, expert models.Expert) (models.MatchResult, error)
}

type matchScorer struct {
	provider llm.Provider
}

func NewMatchScorer(provider llm.Provider) MatchScorer {
	return &matchScorer{provider: provider}
}

func expertProfileBlock(e models.Expert) string {
	return fmt.Sprintf(`Specialization: %s
Experience: %d years
Certifications: %s
Overview: %s`, e.Specialization, e.YearsOfExperience, e.Certifications, e.Overview)
}

func (s *matchScorer) complete(ctx context.Context, user string, maxTokens int) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, scoreTimeout)
	defer cancel()

	return s.provider.Complete(callCtx, llm.Request{
		System:      scorerSystemPrompt,
		User:        user,
		Temperature: 0.3,
		MaxTokens:   maxTokens,
		JSONMode:    true,
	})
}

func (s *matchScorer) ScoreOnly(ctx context.Context, overview string, expert models.Expert) (models.MatchResult, error) {
	const op = "MatchScorer.ScoreOnly"

	prompt := fmt.Sprintf(`Rate the compatibility between a client and a fitness expert on a scale of 0-100.

Client Profile:
%s

Expert Profile:
%s

Return only a JSON object with the match score:
{
  "match_score": <number between 0-100>
}`, overview, expertProfileBlock(expert))

	raw, err := s.complete(ctx, prompt, 50)
	if err != nil {
		return models.MatchResult{}, err
	}

	var parsed struct {
		MatchScore *float64 `json:"match_score"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.MatchResult{}, utils.E(utils.CodeBadResponse, op, "malformed score response", err)
	}
	if err := checkScore(op, parsed.MatchScore); err != nil {
		return models.MatchResult{}, err
	}

	return models.MatchResult{ExpertID: expert.ID, MatchScore: *parsed.MatchScore}, nil
}

func (s *matchScorer) ReasonsOnly(ctx context.Context, overview string, expert models.Expert, score float64) (models.MatchResult, error) {
	const op = "MatchScorer.ReasonsOnly"

	prompt := fmt.Sprintf(`This client and expert have a %.0f%% compatibility match. Provide exactly two brief reasons (one sentence each) why they would be a good match.

Client Profile:
%s

Expert Profile:
%s

Return your response in this exact JSON format:
{
  "reason_1": "<first reason>",
  "reason_2": "<second reason>"
}`, score, overview, expertProfileBlock(expert))

	raw, err := s.complete(ctx, prompt, 250)
	if err != nil {
		return models.MatchResult{}, err
	}

	var parsed struct {
		Reason1 string `json:"reason_1"`
		Reason2 string `json:"reason_2"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.MatchResult{}, utils.E(utils.CodeBadResponse, op, "malformed reasons response", err)
	}
	if parsed.Reason1 == "" || parsed.Reason2 == "" {
		return models.MatchResult{}, utils.E(utils.CodeBadResponse, op, "missing reasons in response", nil)
	}

	return models.MatchResult{
		ExpertID:   expert.ID,
		MatchScore: score,
		Reason1:    parsed.Reason1,
		Reason2:    parsed.Reason2,
	}, nil
}

func (s *matchScorer) ScoreAndReasons(ctx context.Context, overview string, expert models.Expert) (models.MatchResult, error) {
	const op = "MatchScorer.ScoreAndReasons"

	prompt := fmt.Sprintf(`Analyze the compatibility between a client and a fitness expert.

Client Profile:
%s

Expert Profile:
%s

Rate their compatibility on a scale of 0-100 and provide exactly two brief reasons (one sentence each) why they would be a good match.

Return your response in this exact JSON format:
{
  "match_score": <number between 0-100>,
  "reason_1": "<first reason>",
  "reason_2": "<second reason>"
}`, overview, expertProfileBlock(expert))

	raw, err := s.complete(ctx, prompt, 300)
	if err != nil {
		return models.MatchResult{}, err
	}

	var parsed struct {
		MatchScore *float64 `json:"match_score"`
		Reason1    string   `json:"reason_1"`
		Reason2    string   `json:"reason_2"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.MatchResult{}, utils.E(utils.CodeBadResponse, op, "malformed match response", err)
	}
	if err := checkScore(op, parsed.MatchScore); err != nil {
		return models.MatchResult{}, err
	}

	return models.MatchResult{
		ExpertID:   expert.ID,
		MatchScore: *parsed.MatchScore,
		Reason1:    parsed.Reason1,
		Reason2:    parsed.Reason2,
	}, nil
}

func checkScore(op string, score *float64) error {
	if score == nil {
		return utils.E(utils.CodeBadResponse, op, "missing match_score in response", nil)
	}
	if *score < 0 || *score > 100 {
		return utils.E(utils.CodeBadResponse, op, fmt.Sprintf("match_score %v out of range", *score), nil)
	}
	return nil
}
