package models

// Expert is a read-only roster record. The roster is owned externally and is
// immutable for the lifetime of a matching run.
type Expert struct {
	ID                int     `gorm:"column:id;primaryKey" json:"id"`
	Name              string  `gorm:"column:name;type:text" json:"name"`
	Specialization    string  `gorm:"column:specialization;type:text" json:"specialization"`
	Certifications    string  `gorm:"column:certifications;type:text" json:"certifications"`
	YearsOfExperience int     `gorm:"column:years_of_experience" json:"years_of_experience"`
	Overview          string  `gorm:"column:overview;type:text" json:"overview"`
	Rating            float64 `gorm:"column:rating" json:"rating"`
	MonthlyBudget     string  `gorm:"column:monthly_budget;type:text" json:"monthly_budget"`
	Availability      string  `gorm:"column:availability;type:text" json:"availability"`
	Cooperation       string  `gorm:"column:cooperation;type:text" json:"cooperation"`
}

func (Expert) TableName() string { return "experts" }
