package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pilotaja-api/internal/dto"
	"github.com/noah-isme/pilotaja-api/internal/models"
	appErrors "github.com/noah-isme/pilotaja-api/pkg/errors"
)

// requireNoBlockingOverlap fails when two blocking appointments of the fixture's instructor intersect.
func requireNoBlockingOverlap(t *testing.T, f *bookingFixture, step int) {
	t.Helper()
	items, err := f.appointments.List(context.Background(), models.AppointmentFilter{
		InstructorID: f.instructor.ID,
		Statuses:     models.BlockingStatuses,
	})
	require.NoError(t, err)
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			a, b := &items[i], &items[j]
			require.False(t, a.Overlaps(b.StartTime, b.End()),
				"step %d: %s [%s, %s) overlaps %s [%s, %s)", step,
				a.ID, a.StartTime.Format(time.RFC3339), a.End().Format(time.RFC3339),
				b.ID, b.StartTime.Format(time.RFC3339), b.End().Format(time.RFC3339))
		}
	}
}

func TestBlockingAppointmentsNeverOverlapUnderRandomOperations(t *testing.T) {
	// Both Mondays; the 08:00-12:00 Sao Paulo window is 11:00-15:00 UTC.
	mondays := []time.Time{utc("2026-10-19T10:00:00Z"), utc("2026-10-26T10:00:00Z")}
	durations := []int{30, 45, 50, 60, 90}
	allowed := []string{appErrors.ErrSlotConflict.Code, appErrors.ErrOutOfAvailability.Code, appErrors.ErrInvalidTransition.Code}

	for _, seed := range []int64{1, 7, 2026} {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			f := newBookingFixtureWith(t, bookingOptions{enableInProgress: true})
			rng := rand.New(rand.NewSource(seed))
			ctx := context.Background()
			var ids []string
			created, rejected := 0, 0

			for step := 0; step < 600; step++ {
				var err error
				if len(ids) == 0 || rng.Intn(3) > 0 {
					start := mondays[rng.Intn(len(mondays))].Add(time.Duration(rng.Intn(60)*5) * time.Minute)
					var view *dto.AppointmentView
					view, err = f.svc.CreateAppointment(ctx, adminActor(), dto.CreateAppointmentRequest{
						InstructorID:    f.instructor.ID,
						StudentID:       f.student.ID,
						StartTime:       start,
						DurationMinutes: durations[rng.Intn(len(durations))],
					})
					if err == nil {
						ids = append(ids, view.ID)
						created++
					}
				} else {
					target := models.AllAppointmentStatuses[rng.Intn(len(models.AllAppointmentStatuses))]
					_, err = f.svc.TransitionAppointment(ctx, adminActor(), ids[rng.Intn(len(ids))],
						dto.TransitionAppointmentRequest{Status: string(target)})
				}
				if err != nil {
					rejected++
					var appErr *appErrors.Error
					require.True(t, errors.As(err, &appErr), "step %d: %v", step, err)
					require.Contains(t, allowed, appErr.Code, "step %d: %v", step, err)
				}
				requireNoBlockingOverlap(t, f, step)
			}

			require.Positive(t, created)
			require.Positive(t, rejected)
		})
	}
}
