package service

import (
	"strings"
	"time"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

var appointmentTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentPending:    {models.AppointmentConfirmed, models.AppointmentCancelled},
	models.AppointmentConfirmed:  {models.AppointmentInProgress, models.AppointmentCompleted, models.AppointmentCancelled, models.AppointmentNoShow},
	models.AppointmentInProgress: {models.AppointmentCompleted},
}

// AppointmentStateMachine enforces the appointment lifecycle.
type AppointmentStateMachine struct {
	allowInProgress bool
	now             func() time.Time
}

// NewAppointmentStateMachine builds the lifecycle rules. With allowInProgress false the
// IN_PROGRESS state is never entered and CONFIRMED goes straight to COMPLETED.
func NewAppointmentStateMachine(allowInProgress bool) *AppointmentStateMachine {
	return &AppointmentStateMachine{allowInProgress: allowInProgress, now: time.Now}
}

// Allowed lists the statuses reachable from from.
func (m *AppointmentStateMachine) Allowed(from models.AppointmentStatus) []models.AppointmentStatus {
	targets := appointmentTransitions[from]
	out := make([]models.AppointmentStatus, 0, len(targets))
	for _, to := range targets {
		if to == models.AppointmentInProgress && !m.allowInProgress {
			continue
		}
		out = append(out, to)
	}
	return out
}

// CanTransition reports whether from -> to is part of the lifecycle.
func (m *AppointmentStateMachine) CanTransition(from, to models.AppointmentStatus) bool {
	for _, allowed := range m.Allowed(from) {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition returns a copy of appt moved to status to, stamping the matching timestamp.
// The input is never modified; a disallowed move yields *models.TransitionError.
func (m *AppointmentStateMachine) Transition(appt models.Appointment, to models.AppointmentStatus, reason string) (models.Appointment, error) {
	if !m.CanTransition(appt.Status, to) {
		return appt, &models.TransitionError{From: appt.Status, To: to}
	}

	now := m.now().UTC()
	next := appt
	next.Status = to
	switch to {
	case models.AppointmentConfirmed:
		next.ConfirmedAt = &now
	case models.AppointmentInProgress:
		next.StartedAt = &now
	case models.AppointmentCompleted:
		next.CompletedAt = &now
	case models.AppointmentCancelled:
		next.CancelledAt = &now
		if trimmed := strings.TrimSpace(reason); trimmed != "" {
			next.CancellationReason = &trimmed
		}
	case models.AppointmentNoShow:
		next.NoShowAt = &now
	}
	return next, nil
}
