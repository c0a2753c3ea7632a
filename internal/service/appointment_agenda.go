package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/noah-isme/pilotaja-api/internal/dto"
	"github.com/noah-isme/pilotaja-api/internal/models"
	appErrors "github.com/noah-isme/pilotaja-api/pkg/errors"
	"github.com/noah-isme/pilotaja-api/pkg/export"
)

const agendaTimeLayout = "2006-01-02 15:04"

var agendaHeaders = []string{"Start", "End", "Minutes", "Student", "Status", "Price", "Meeting address"}

// InstructorAgenda builds an exportable agenda for an instructor, with times rendered in the
// instructor's own time zone.
func (s *AppointmentService) InstructorAgenda(ctx context.Context, actor *models.JWTClaims, instructorID string, query dto.AppointmentQuery) (*export.Dataset, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() && !actor.Acts(models.RoleInstructor, instructorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to export this agenda")
	}
	info, err := s.instructorInfo(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	items, err := s.appointments.List(ctx, models.AppointmentFilter{
		InstructorID: instructorID,
		Statuses:     query.Statuses,
		From:         query.From,
		To:           query.To,
	})
	if err != nil {
		return nil, storageError(err, "failed to list instructor appointments")
	}

	loc := info.Location()
	rows := make([]map[string]string, 0, len(items))
	for i := range items {
		appt := &items[i]
		address := ""
		if appt.MeetingAddress != nil {
			address = *appt.MeetingAddress
		}
		rows = append(rows, map[string]string{
			"Start":           appt.StartTime.In(loc).Format(agendaTimeLayout),
			"End":             appt.End().In(loc).Format(agendaTimeLayout),
			"Minutes":         strconv.Itoa(appt.DurationMinutes),
			"Student":         appt.StudentID,
			"Status":          string(appt.Status),
			"Price":           appt.Price.StringFixed(PriceScale),
			"Meeting address": address,
		})
	}

	return &export.Dataset{
		Title:   fmt.Sprintf("Agenda %s (%s)", instructorID, loc.String()),
		Headers: agendaHeaders,
		Rows:    rows,
	}, nil
}
