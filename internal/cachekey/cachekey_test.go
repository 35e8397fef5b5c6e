package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matchfit/matchfit/internal/models"
)

func baseProfile() models.IntakeProfile {
	return models.IntakeProfile{
		TrainingExperience: "Intermediate",
		Goals:              []string{"Weight Loss", "Muscle Gain"},
		SessionsPerWeek:    "3",
		ChronicDiseases:    []string{"Asthma"},
		Injuries:           []string{"Knee"},
		WeightGoal:         "Lose 5kg",
	}
}

func TestDeriveProfileKey_Deterministic(t *testing.T) {
	a := DeriveProfileKey(baseProfile())
	b := DeriveProfileKey(baseProfile())
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestDeriveProfileKey_SetOrderIndependent(t *testing.T) {
	p := baseProfile()
	q := baseProfile()
	q.Goals = []string{"Muscle Gain", "Weight Loss"}

	assert.Equal(t, DeriveProfileKey(p), DeriveProfileKey(q))
}

func TestDeriveProfileKey_CaseAndWhitespaceInsensitive(t *testing.T) {
	p := baseProfile()
	q := baseProfile()
	q.TrainingExperience = "  INTERMEDIATE "
	q.Goals = []string{" weight loss", "MUSCLE GAIN "}
	q.WeightGoal = "LOSE 5KG"

	assert.Equal(t, DeriveProfileKey(p), DeriveProfileKey(q))
}

func TestDeriveProfileKey_DistinguishesProfiles(t *testing.T) {
	p := baseProfile()

	q := baseProfile()
	q.SessionsPerWeek = "5"
	assert.NotEqual(t, DeriveProfileKey(p), DeriveProfileKey(q))

	r := baseProfile()
	r.Goals = append(r.Goals, "Endurance")
	assert.NotEqual(t, DeriveProfileKey(p), DeriveProfileKey(r))
}

func TestDeriveProfileKey_EmptyVsNilSets(t *testing.T) {
	p := baseProfile()
	p.Injuries = nil
	q := baseProfile()
	q.Injuries = []string{}

	assert.Equal(t, DeriveProfileKey(p), DeriveProfileKey(q))
}

func TestOverviewHash_TrimsSurroundingWhitespace(t *testing.T) {
	a := OverviewHash("A motivated intermediate client.")
	b := OverviewHash("  A motivated intermediate client.\n")
	c := OverviewHash("A different client entirely.")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
