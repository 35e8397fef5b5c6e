// Package cachekey derives the content-addressed keys used by the overview and
// match caches. Keys must be stable across field ordering, casing, and
// incidental whitespace so that logically identical intakes hit the same cache
// row.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/matchfit/matchfit/internal/models"
)

// canonicalProfile fixes the serialization order. Struct field order is what
// makes json.Marshal deterministic here.
type canonicalProfile struct {
	TrainingExperience string   `json:"training_experience"`
	Goals              []string `json:"goals"`
	SessionsPerWeek    string   `json:"sessions_per_week"`
	ChronicDiseases    []string `json:"chronic_diseases"`
	Injuries           []string `json:"injuries"`
	WeightGoal         string   `json:"weight_goal"`
}

func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	sort.Strings(out)
	return out
}

// DeriveProfileKey returns the SHA-256 hex digest of the canonicalized intake.
// Pure; no I/O.
func DeriveProfileKey(p models.IntakeProfile) string {
	canon := canonicalProfile{
		TrainingExperience: strings.ToLower(strings.TrimSpace(p.TrainingExperience)),
		Goals:              normalizeSet(p.Goals),
		SessionsPerWeek:    strings.ToLower(strings.TrimSpace(p.SessionsPerWeek)),
		ChronicDiseases:    normalizeSet(p.ChronicDiseases),
		Injuries:           normalizeSet(p.Injuries),
		WeightGoal:         strings.ToLower(strings.TrimSpace(p.WeightGoal)),
	}

	b, _ := json.Marshal(canon)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// OverviewHash keys the match cache by overview content, independent of which
// profile produced the text.
func OverviewHash(overview string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(overview)))
	return hex.EncodeToString(sum[:])
}
