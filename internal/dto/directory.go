package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

// CreateInstructorRequest registers an instructor with a weekly availability template.
type CreateInstructorRequest struct {
	FullName        string                      `json:"fullName" validate:"required,min=3,max=120"`
	Email           string                      `json:"email" validate:"required,email"`
	Phone           string                      `json:"phone" validate:"omitempty,max=32"`
	LicenseCategory string                      `json:"licenseCategory" validate:"omitempty,max=8"`
	HourlyRate      decimal.Decimal             `json:"hourlyRate"`
	Timezone        string                      `json:"timezone" validate:"omitempty,max=64"`
	Availability    []models.AvailabilityWindow `json:"availability" validate:"required,min=1"`
}

// CreateStudentRequest registers a student.
type CreateStudentRequest struct {
	FullName string `json:"fullName" validate:"required,min=3,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}
