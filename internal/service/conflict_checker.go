package service

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

// maxLessonSpan bounds how long an existing lesson can be. Lessons cannot cross local
// midnight, so none lasts a full day.
const maxLessonSpan = 24 * time.Hour

// ConflictChecker finds blocking appointments that overlap a requested range.
type ConflictChecker struct {
	repo AppointmentRepository
}

// NewConflictChecker constructs a ConflictChecker over the appointment store.
func NewConflictChecker(repo AppointmentRepository) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// FindConflict returns the earliest blocking appointment of the instructor overlapping
// [start, start+duration), or nil. excludeID skips one appointment, e.g. the one being moved.
func (c *ConflictChecker) FindConflict(ctx context.Context, instructorID string, start time.Time, durationMinutes int, excludeID string) (*models.Appointment, error) {
	end := models.AppointmentEnd(start, durationMinutes)
	from := start.Add(-maxLessonSpan)
	candidates, err := c.repo.List(ctx, models.AppointmentFilter{
		InstructorID: instructorID,
		Statuses:     models.BlockingStatuses,
		From:         &from,
		To:           &end,
	})
	if err != nil {
		return nil, fmt.Errorf("list blocking appointments: %w", err)
	}

	for i := range candidates {
		existing := &candidates[i]
		if existing.ID == excludeID && excludeID != "" {
			continue
		}
		if existing.Overlaps(start, end) {
			return existing, nil
		}
	}
	return nil, nil
}
