package dto

import (
	"time"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

// CreateAppointmentRequest is the payload for booking a lesson.
type CreateAppointmentRequest struct {
	InstructorID    string    `json:"instructorId" validate:"required,max=64"`
	StudentID       string    `json:"studentId" validate:"required,max=64"`
	StartTime       time.Time `json:"startTime" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"omitempty,min=1,max=1440"`
	Notes           *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
	MeetingAddress  *string   `json:"meetingAddress,omitempty" validate:"omitempty,max=500"`
	Latitude        *float64  `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude       *float64  `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
}

// TransitionAppointmentRequest moves an appointment to a new status.
type TransitionAppointmentRequest struct {
	Status             string `json:"status" validate:"required"`
	CancellationReason string `json:"cancellationReason,omitempty" validate:"omitempty,max=500"`
}

// AppointmentView is the API representation of an appointment.
type AppointmentView struct {
	ID                 string     `json:"id"`
	InstructorID       string     `json:"instructorId"`
	StudentID          string     `json:"studentId"`
	StartTime          time.Time  `json:"startTime"`
	EndTime            time.Time  `json:"endTime"`
	DurationMinutes    int        `json:"durationMinutes"`
	Status             string     `json:"status"`
	Price              string     `json:"price"`
	Notes              *string    `json:"notes,omitempty"`
	MeetingAddress     *string    `json:"meetingAddress,omitempty"`
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	ConfirmedAt        *time.Time `json:"confirmedAt,omitempty"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	NoShowAt           *time.Time `json:"noShowAt,omitempty"`
}

// NewAppointmentView maps the stored appointment to its API shape.
func NewAppointmentView(a *models.Appointment) AppointmentView {
	return AppointmentView{
		ID:                 a.ID,
		InstructorID:       a.InstructorID,
		StudentID:          a.StudentID,
		StartTime:          a.StartTime.UTC(),
		EndTime:            a.End().UTC(),
		DurationMinutes:    a.DurationMinutes,
		Status:             string(a.Status),
		Price:              a.Price.StringFixed(2),
		Notes:              a.Notes,
		MeetingAddress:     a.MeetingAddress,
		Latitude:           a.Latitude,
		Longitude:          a.Longitude,
		CancellationReason: a.CancellationReason,
		CreatedAt:          a.CreatedAt.UTC(),
		ConfirmedAt:        a.ConfirmedAt,
		StartedAt:          a.StartedAt,
		CompletedAt:        a.CompletedAt,
		CancelledAt:        a.CancelledAt,
		NoShowAt:           a.NoShowAt,
	}
}

// NewAppointmentViews maps a slice of appointments.
func NewAppointmentViews(items []models.Appointment) []AppointmentView {
	views := make([]AppointmentView, 0, len(items))
	for i := range items {
		views = append(views, NewAppointmentView(&items[i]))
	}
	return views
}

// TransitionResult reports the outcome of a status change.
type TransitionResult struct {
	Appointment AppointmentView `json:"appointment"`
	Message     string          `json:"message"`
}

// AppointmentQuery narrows per-instructor and per-student listings.
type AppointmentQuery struct {
	Statuses []models.AppointmentStatus
	From     *time.Time
	To       *time.Time
}
