package models

import (
	"time"

	"gorm.io/datatypes"
)

// MatchResult is the transient, in-memory outcome of scoring one expert
// against a client overview. Persistence of final match sets is not this
// core's responsibility; only the cache rows below are written.
type MatchResult struct {
	ExpertID   int     `json:"expert_id"`
	MatchScore float64 `json:"match_score"`
	Reason1    string  `json:"reason_1"`
	Reason2    string  `json:"reason_2"`

	Expert *Expert `json:"expert,omitempty"`
}

// OverviewCacheEntry maps a profile hash to the generated overview text.
type OverviewCacheEntry struct {
	ProfileHash    string         `gorm:"column:profile_hash;type:text;primaryKey" json:"profile_hash"`
	ClientData     datatypes.JSON `gorm:"column:client_data;type:jsonb" json:"client_data"`
	Overview       string         `gorm:"column:overview;type:text" json:"overview"`
	HitCount       int64          `gorm:"column:hit_count" json:"hit_count"`
	CreatedAt      time.Time      `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	LastAccessedAt time.Time      `gorm:"column:last_accessed_at;type:timestamptz" json:"last_accessed_at"`
}

func (OverviewCacheEntry) TableName() string { return "overview_cache" }

// MatchCacheEntry is unique per (overview_hash, expert_id); upserts are
// last-write-wins.
type MatchCacheEntry struct {
	OverviewHash string    `gorm:"column:overview_hash;type:text;primaryKey" json:"overview_hash"`
	ExpertID     int       `gorm:"column:expert_id;primaryKey" json:"expert_id"`
	MatchScore   float64   `gorm:"column:match_score" json:"match_score"`
	Reason1      string    `gorm:"column:reason_1;type:text" json:"reason_1"`
	Reason2      string    `gorm:"column:reason_2;type:text" json:"reason_2"`
	CreatedAt    time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (MatchCacheEntry) TableName() string { return "match_cache" }
