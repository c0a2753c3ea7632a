package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instructor is a driving instructor offering lessons.
type Instructor struct {
	ID              string               `db:"id" json:"id"`
	FullName        string               `db:"full_name" json:"fullName"`
	Email           string               `db:"email" json:"email"`
	Phone           string               `db:"phone" json:"phone"`
	LicenseCategory string               `db:"license_category" json:"licenseCategory"`
	HourlyRate      decimal.Decimal      `db:"hourly_rate" json:"hourlyRate"`
	Timezone        string               `db:"timezone" json:"timezone"`
	Rating          float64              `db:"rating" json:"rating"`
	TotalLessons    int                  `db:"total_lessons" json:"totalLessons"`
	Active          bool                 `db:"active" json:"active"`
	Availability    []AvailabilityWindow `db:"-" json:"availability"`
	CreatedAt       time.Time            `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time            `db:"updated_at" json:"updatedAt"`
}

// InstructorFilter narrows instructor listings.
type InstructorFilter struct {
	Active          *bool
	LicenseCategory string
}
