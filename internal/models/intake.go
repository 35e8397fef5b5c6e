package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// IntakeProfile is the normalized intake payload used for overview generation
// and cache-key derivation. Set-valued fields are order-independent.
type IntakeProfile struct {
	TrainingExperience string   `json:"training_experience" binding:"required"`
	Goals              []string `json:"goals" binding:"required"`
	SessionsPerWeek    string   `json:"sessions_per_week" binding:"required"`
	ChronicDiseases    []string `json:"chronic_diseases"`
	Injuries           []string `json:"injuries"`
	WeightGoal         string   `json:"weight_goal" binding:"required"`
}

// ClientProfile is the persisted intake row. A resubmission updates the row
// with a fresh timestamp rather than mutating fields in place elsewhere.
type ClientProfile struct {
	ID                 string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID             string         `gorm:"column:user_id;type:uuid" json:"user_id,omitempty"`
	TrainingExperience string         `gorm:"column:training_experience;type:text" json:"training_experience"`
	Goals              pq.StringArray `gorm:"column:goals;type:text[]" json:"goals"`
	SessionsPerWeek    string         `gorm:"column:sessions_per_week;type:text" json:"sessions_per_week"`
	ChronicDiseases    pq.StringArray `gorm:"column:chronic_diseases;type:text[]" json:"chronic_diseases"`
	Injuries           pq.StringArray `gorm:"column:injuries;type:text[]" json:"injuries"`
	WeightGoal         string         `gorm:"column:weight_goal;type:text" json:"weight_goal"`

	// JSONB (age, gender, living area, budget, availability, cooperation)
	Demographics datatypes.JSON `gorm:"column:demographics;type:jsonb" json:"demographics,omitempty"`

	Overview  string    `gorm:"column:overview;type:text" json:"overview,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (ClientProfile) TableName() string { return "client_profiles" }

// Intake returns the normalized projection used for key derivation and
// prompting.
func (p *ClientProfile) Intake() IntakeProfile {
	return IntakeProfile{
		TrainingExperience: p.TrainingExperience,
		Goals:              p.Goals,
		SessionsPerWeek:    p.SessionsPerWeek,
		ChronicDiseases:    p.ChronicDiseases,
		Injuries:           p.Injuries,
		WeightGoal:         p.WeightGoal,
	}
}
