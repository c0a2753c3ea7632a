package service

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pilotaja-api/internal/contracts"
	"github.com/noah-isme/pilotaja-api/internal/models"
)

func window(day time.Weekday, start, end string) models.AvailabilityWindow {
	from, err := models.ParseTimeOfDay(start)
	if err != nil {
		panic(err)
	}
	to, err := models.ParseTimeOfDay(end)
	if err != nil {
		panic(err)
	}
	return models.AvailabilityWindow{DayOfWeek: day, Start: from, End: to}
}

func saoPauloInstructor(windows ...models.AvailabilityWindow) *contracts.InstructorInfo {
	return &contracts.InstructorInfo{
		ID:           "inst-1",
		Timezone:     "America/Sao_Paulo",
		Availability: windows,
		Active:       true,
	}
}

// 2026-10-19 is a Monday; Sao Paulo is UTC-3 with no daylight saving.
func utc(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAvailabilityResolverUsesInstructorWallClock(t *testing.T) {
	resolver := NewAvailabilityResolver()
	info := saoPauloInstructor(window(time.Monday, "08:00", "12:00"))

	cases := []struct {
		name     string
		start    string
		duration int
		want     bool
	}{
		{"inside", "2026-10-19T12:00:00Z", 50, true},
		{"starts at window start", "2026-10-19T11:00:00Z", 50, true},
		{"ends exactly at window end", "2026-10-19T14:10:00Z", 50, true},
		{"runs past window end", "2026-10-19T14:30:00Z", 50, false},
		{"starts before window", "2026-10-19T10:59:00Z", 50, false},
		{"utc time inside window but local time outside", "2026-10-19T08:30:00Z", 50, false},
		{"other weekday", "2026-10-20T12:00:00Z", 50, false},
		{"sub-minute overhang", "2026-10-19T14:10:00.5Z", 50, false},
		{"zero duration", "2026-10-19T12:00:00Z", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resolver.IsWithinAvailability(info, utc(tc.start), tc.duration))
		})
	}
}

func TestAvailabilityResolverLocalWeekdayDiffersFromUTC(t *testing.T) {
	resolver := NewAvailabilityResolver()
	info := saoPauloInstructor(window(time.Monday, "22:00", "24:00"))

	// Tuesday 01:00 UTC is Monday 22:00 in Sao Paulo.
	assert.True(t, resolver.IsWithinAvailability(info, utc("2026-10-20T01:00:00Z"), 50))
	// Ends exactly at local midnight.
	assert.True(t, resolver.IsWithinAvailability(info, utc("2026-10-20T02:10:00Z"), 50))
	// Crosses local midnight.
	assert.False(t, resolver.IsWithinAvailability(info, utc("2026-10-20T02:30:00Z"), 50))
}

func newYorkInstructor(windows ...models.AvailabilityWindow) *contracts.InstructorInfo {
	return &contracts.InstructorInfo{ID: "inst-ny", Timezone: "America/New_York", Availability: windows, Active: true}
}

// 2026-03-08 and 2026-11-01 are the Sundays New York enters and leaves daylight saving.
func TestAvailabilityResolverSpringForward(t *testing.T) {
	resolver := NewAvailabilityResolver()
	info := newYorkInstructor(window(time.Sunday, "00:00", "03:00"))

	// 01:30 EST plus 60 minutes is 03:30 EDT.
	assert.False(t, resolver.IsWithinAvailability(info, utc("2026-03-08T06:30:00Z"), 60))
	// 01:30 EST plus 30 minutes is exactly 03:00 EDT.
	assert.True(t, resolver.IsWithinAvailability(info, utc("2026-03-08T06:30:00Z"), 30))
	// Entirely before the jump.
	assert.True(t, resolver.IsWithinAvailability(info, utc("2026-03-08T05:00:00Z"), 50))
}

func TestAvailabilityResolverFallBack(t *testing.T) {
	resolver := NewAvailabilityResolver()

	// 01:50 EDT plus 30 minutes is 01:20 EST; the clock passes back through 01:00.
	late := newYorkInstructor(window(time.Sunday, "01:30", "03:00"))
	assert.False(t, resolver.IsWithinAvailability(late, utc("2026-11-01T05:50:00Z"), 30))

	wide := newYorkInstructor(window(time.Sunday, "01:00", "03:00"))
	assert.True(t, resolver.IsWithinAvailability(wide, utc("2026-11-01T05:50:00Z"), 30))
}

func TestAvailabilityResolverRequiresSingleContainingWindow(t *testing.T) {
	resolver := NewAvailabilityResolver()
	info := saoPauloInstructor(
		window(time.Monday, "08:00", "12:00"),
		window(time.Monday, "14:00", "18:00"),
	)

	assert.True(t, resolver.IsWithinAvailability(info, utc("2026-10-19T17:00:00Z"), 60))
	assert.False(t, resolver.IsWithinAvailability(info, utc("2026-10-19T14:30:00Z"), 60))
}

func TestAvailabilityResolverFallsBackToUTC(t *testing.T) {
	resolver := NewAvailabilityResolver()
	info := &contracts.InstructorInfo{ID: "inst-2", Timezone: "", Availability: []models.AvailabilityWindow{window(time.Monday, "08:00", "12:00")}}
	assert.True(t, resolver.IsWithinAvailability(info, utc("2026-10-19T08:00:00Z"), 60))
	assert.False(t, resolver.IsWithinAvailability(nil, utc("2026-10-19T08:00:00Z"), 60))
}

func TestAvailabilityResolverExplain(t *testing.T) {
	resolver := NewAvailabilityResolver()
	info := saoPauloInstructor(
		window(time.Monday, "08:00", "12:00"),
		window(time.Tuesday, "08:00", "12:00"),
	)

	detail := resolver.Explain(info, utc("2026-10-20T01:00:00Z"))
	require.NotNil(t, detail)
	assert.Equal(t, "inst-1", detail.InstructorID)
	assert.Equal(t, "America/Sao_Paulo", detail.Timezone)
	assert.Equal(t, time.Monday, detail.DayOfWeek)
	require.Len(t, detail.Windows, 1)
	assert.Equal(t, models.NewTimeOfDay(8, 0), detail.Windows[0].Start)
}
