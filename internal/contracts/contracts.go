// Package contracts declares the cross-module gateways. The booking module reaches instructor
// and student data only through these interfaces and holds their ids as opaque strings.
package contracts

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

// ErrUnknownInstructor is returned by GetInstructorInfo when no instructor has the id.
var ErrUnknownInstructor = errors.New("contracts: unknown instructor")

// InstructorInfo is the booking-relevant projection of an instructor.
type InstructorInfo struct {
	ID           string
	HourlyRate   decimal.Decimal
	Timezone     string
	Availability []models.AvailabilityWindow
	Active       bool
}

// Location resolves the instructor's IANA zone, falling back to UTC for unknown names.
func (i *InstructorInfo) Location() *time.Location {
	if i == nil || i.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(i.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InstructorDirectory is implemented by the instructor module.
type InstructorDirectory interface {
	GetInstructorInfo(ctx context.Context, instructorID string) (*InstructorInfo, error)
	IncrementInstructorLessonCount(ctx context.Context, instructorID string, delta int) error
}

// StudentDirectory is implemented by the student module.
type StudentDirectory interface {
	StudentExists(ctx context.Context, studentID string) (bool, error)
}
