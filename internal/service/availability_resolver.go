package service

import (
	"time"

	"github.com/noah-isme/pilotaja-api/internal/contracts"
	"github.com/noah-isme/pilotaja-api/internal/models"
)

// AvailabilityResolver decides whether a lesson fits an instructor's weekly windows.
// All comparisons are made on the instructor's local wall clock.
type AvailabilityResolver struct{}

// NewAvailabilityResolver constructs an AvailabilityResolver.
func NewAvailabilityResolver() *AvailabilityResolver {
	return &AvailabilityResolver{}
}

// localRange returns the local weekday of start and the span of wall-clock offsets the lesson
// covers. ok is false when the lesson leaves the local date of its start; ending exactly at
// the next 00:00 is allowed. When a zone transition falls inside the lesson the span widens
// to every wall-clock reading passed through, so a skipped or repeated hour never hides an
// end outside the window.
func localRange(info *contracts.InstructorInfo, start time.Time, durationMinutes int) (day time.Weekday, from, to models.TimeOfDay, ok bool) {
	if durationMinutes <= 0 {
		return 0, 0, 0, false
	}
	loc := info.Location()
	local := start.In(loc)
	day = local.Weekday()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	endLocal := end.In(loc)

	startSec := wallSeconds(local)
	endSec := wallSeconds(endLocal)
	if endLocal.Nanosecond() > 0 {
		endSec++
	}
	if !sameDate(local, endLocal) {
		next := local.AddDate(0, 0, 1)
		if !sameDate(next, endLocal) || endSec != 0 {
			return day, 0, 0, false
		}
		endSec = secondsPerDay
	}

	lowSec, highSec := startSec, endSec
	for cursor := local; ; {
		_, boundary := cursor.ZoneBounds()
		if boundary.IsZero() || !boundary.Before(end) {
			break
		}
		_, oldOffset := cursor.Zone()
		after := boundary.In(loc)
		_, newOffset := after.Zone()
		afterSec := wallSeconds(after)
		beforeSec := afterSec + oldOffset - newOffset
		if afterSec < lowSec {
			lowSec = afterSec
		}
		if beforeSec > highSec {
			highSec = beforeSec
		}
		cursor = after
	}

	from = models.TimeOfDay(lowSec / 60)
	to = models.TimeOfDay((highSec + 59) / 60)
	return day, from, to, lowSec >= 0 && from < to && to <= models.MinutesPerDay
}

const secondsPerDay = models.MinutesPerDay * 60

func wallSeconds(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsWithinAvailability reports whether at least one window on the local weekday of start
// contains the whole lesson.
func (r *AvailabilityResolver) IsWithinAvailability(info *contracts.InstructorInfo, start time.Time, durationMinutes int) bool {
	if info == nil {
		return false
	}
	day, from, to, ok := localRange(info, start, durationMinutes)
	if !ok {
		return false
	}
	for _, window := range info.Availability {
		if window.Contains(day, from, to) {
			return true
		}
	}
	return false
}

// Explain builds the error returned for a request outside the instructor's windows.
func (r *AvailabilityResolver) Explain(info *contracts.InstructorInfo, start time.Time) *models.OutOfAvailabilityError {
	day := start.In(info.Location()).Weekday()
	return &models.OutOfAvailabilityError{
		InstructorID: info.ID,
		Timezone:     info.Location().String(),
		DayOfWeek:    day,
		Windows:      models.WindowsOn(info.Availability, day),
	}
}
