package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AppointmentStatus enumerates the lifecycle states of a lesson booking.
type AppointmentStatus string

const (
	AppointmentPending    AppointmentStatus = "PENDING"
	AppointmentConfirmed  AppointmentStatus = "CONFIRMED"
	AppointmentInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentCompleted  AppointmentStatus = "COMPLETED"
	AppointmentCancelled  AppointmentStatus = "CANCELLED"
	AppointmentNoShow     AppointmentStatus = "NO_SHOW"
)

// AllAppointmentStatuses lists every status in lifecycle order.
var AllAppointmentStatuses = []AppointmentStatus{
	AppointmentPending,
	AppointmentConfirmed,
	AppointmentInProgress,
	AppointmentCompleted,
	AppointmentCancelled,
	AppointmentNoShow,
}

// BlockingStatuses are the statuses that occupy an instructor's time.
var BlockingStatuses = []AppointmentStatus{
	AppointmentPending,
	AppointmentConfirmed,
	AppointmentInProgress,
}

// ParseAppointmentStatus accepts any casing as well as "InProgress"/"NoShow" spellings.
func ParseAppointmentStatus(raw string) (AppointmentStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	switch normalized {
	case "INPROGRESS":
		normalized = string(AppointmentInProgress)
	case "NOSHOW":
		normalized = string(AppointmentNoShow)
	}
	for _, status := range AllAppointmentStatuses {
		if string(status) == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown appointment status %q", raw)
}

// Blocking reports whether an appointment in this status prevents overlapping bookings.
func (s AppointmentStatus) Blocking() bool {
	for _, status := range BlockingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled || s == AppointmentNoShow
}

// Appointment is a booked lesson between an instructor and a student.
// InstructorID and StudentID are opaque references owned by other modules.
type Appointment struct {
	ID                 string            `db:"id"`
	InstructorID       string            `db:"instructor_id"`
	StudentID          string            `db:"student_id"`
	StartTime          time.Time         `db:"start_time"`
	EndTime            time.Time         `db:"end_time"`
	DurationMinutes    int               `db:"duration_minutes"`
	Status             AppointmentStatus `db:"status"`
	Price              decimal.Decimal   `db:"price"`
	Notes              *string           `db:"notes"`
	MeetingAddress     *string           `db:"meeting_address"`
	Latitude           *float64          `db:"latitude"`
	Longitude          *float64          `db:"longitude"`
	CancellationReason *string           `db:"cancellation_reason"`
	ConfirmedAt        *time.Time        `db:"confirmed_at"`
	StartedAt          *time.Time        `db:"started_at"`
	CompletedAt        *time.Time        `db:"completed_at"`
	CancelledAt        *time.Time        `db:"cancelled_at"`
	NoShowAt           *time.Time        `db:"no_show_at"`
	Version            int               `db:"version"`
	CreatedAt          time.Time         `db:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at"`
}

// AppointmentEnd computes the exclusive end of a booking.
func AppointmentEnd(start time.Time, durationMinutes int) time.Time {
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}

// End returns the exclusive end of the appointment.
func (a *Appointment) End() time.Time {
	return AppointmentEnd(a.StartTime, a.DurationMinutes)
}

// Overlaps reports whether the appointment intersects the half-open range [start, end).
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && start.Before(a.End())
}

// AppointmentFilter narrows appointment listings. Empty fields do not filter.
// From is inclusive and To exclusive, both compared against StartTime.
type AppointmentFilter struct {
	InstructorID string
	StudentID    string
	Statuses     []AppointmentStatus
	From         *time.Time
	To           *time.Time
}

// Matches applies the filter to a single appointment.
func (f AppointmentFilter) Matches(a *Appointment) bool {
	if f.InstructorID != "" && a.InstructorID != f.InstructorID {
		return false
	}
	if f.StudentID != "" && a.StudentID != f.StudentID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, status := range f.Statuses {
			if a.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && a.StartTime.Before(*f.From) {
		return false
	}
	if f.To != nil && !a.StartTime.Before(*f.To) {
		return false
	}
	return true
}

// StatusStrings converts the status filter for storage drivers.
func (f AppointmentFilter) StatusStrings() []string {
	out := make([]string, 0, len(f.Statuses))
	for _, status := range f.Statuses {
		out = append(out, string(status))
	}
	return out
}

// SlotConflictError is returned when a requested range overlaps a blocking appointment.
type SlotConflictError struct {
	AppointmentID string    `json:"appointmentId"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
}

// Error implements the error interface.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("slot overlaps appointment %s (%s - %s)", e.AppointmentID,
		e.StartTime.Format(time.RFC3339), e.EndTime.Format(time.RFC3339))
}

// TransitionError is returned for a status change the lifecycle does not allow.
type TransitionError struct {
	From AppointmentStatus `json:"from"`
	To   AppointmentStatus `json:"to"`
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("cannot move appointment from %s to %s", e.From, e.To)
}

// OutOfAvailabilityError describes a request outside the instructor's windows.
// Windows lists the instructor's windows for the requested local weekday as alternatives.
type OutOfAvailabilityError struct {
	InstructorID string               `json:"instructorId"`
	Timezone     string               `json:"timezone"`
	DayOfWeek    time.Weekday         `json:"dayOfWeek"`
	Windows      []AvailabilityWindow `json:"windows"`
}

// Error implements the error interface.
func (e *OutOfAvailabilityError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("instructor %s is not available at the requested time (%s)", e.InstructorID, e.DayOfWeek)
}
