package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchfit/matchfit/internal/models"
	"github.com/matchfit/matchfit/internal/providers/llm"
	"github.com/matchfit/matchfit/internal/utils"
)

var testExpert = models.Expert{
	ID:                7,
	Name:              "Sam",
	Specialization:    "rehab",
	Certifications:    "DPT",
	YearsOfExperience: 9,
	Overview:          "physio-led strength coaching",
}

const testOverview = "An intermediate client recovering from a knee injury."

func TestMatchScorer_ScoreOnly(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(llm.Request) (string, error) {
			return `{"match_score": 87}`, nil
		},
	}
	scorer := NewMatchScorer(provider)

	m, err := scorer.ScoreOnly(context.Background(), testOverview, testExpert)
	require.NoError(t, err)
	assert.Equal(t, 7, m.ExpertID)
	assert.Equal(t, 87.0, m.MatchScore)
	assert.True(t, provider.lastRequest.JSONMode)
}

func TestMatchScorer_ScoreOnlyRejectsBadResponses(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `not json at all`},
		{"missing score", `{}`},
		{"score above range", `{"match_score": 150}`},
		{"score below range", `{"match_score": -5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{
				completeFn: func(llm.Request) (string, error) { return tt.raw, nil },
			}
			scorer := NewMatchScorer(provider)

			_, err := scorer.ScoreOnly(context.Background(), testOverview, testExpert)
			require.Error(t, err)
			assert.True(t, utils.IsCode(err, utils.CodeBadResponse))
			assert.True(t, utils.IsRetryable(err))
		})
	}
}

func TestMatchScorer_ReasonsOnly(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(llm.Request) (string, error) {
			return `{"reason_1": "Rehab specialization fits the knee injury.", "reason_2": "Nearly a decade of experience."}`, nil
		},
	}
	scorer := NewMatchScorer(provider)

	m, err := scorer.ReasonsOnly(context.Background(), testOverview, testExpert, 87)
	require.NoError(t, err)
	assert.Equal(t, 87.0, m.MatchScore)
	assert.Equal(t, "Rehab specialization fits the knee injury.", m.Reason1)
	assert.Equal(t, "Nearly a decade of experience.", m.Reason2)
}

func TestMatchScorer_ReasonsOnlyRequiresBothReasons(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(llm.Request) (string, error) {
			return `{"reason_1": "only one reason"}`, nil
		},
	}
	scorer := NewMatchScorer(provider)

	_, err := scorer.ReasonsOnly(context.Background(), testOverview, testExpert, 50)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeBadResponse))
}

func TestMatchScorer_ScoreAndReasons(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(llm.Request) (string, error) {
			return `{"match_score": 72, "reason_1": "a", "reason_2": "b"}`, nil
		},
	}
	scorer := NewMatchScorer(provider)

	m, err := scorer.ScoreAndReasons(context.Background(), testOverview, testExpert)
	require.NoError(t, err)
	assert.Equal(t, 72.0, m.MatchScore)
	assert.Equal(t, "a", m.Reason1)
	assert.Equal(t, "b", m.Reason2)
}

func TestMatchScorer_PropagatesProviderErrors(t *testing.T) {
	provider := &fakeProvider{
		completeFn: func(llm.Request) (string, error) {
			return "", utils.E(utils.CodeQuotaExceeded, "test", "quota exhausted", nil)
		},
	}
	scorer := NewMatchScorer(provider)

	_, err := scorer.ScoreOnly(context.Background(), testOverview, testExpert)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeQuotaExceeded))
	assert.False(t, utils.IsRetryable(err))
}
