package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]TimeOfDay{
		"00:00": 0,
		"08:30": 510,
		"12:00": 720,
		"24:00": MinutesPerDay,
		"7:05":  425,
	}
	for raw, want := range cases {
		got, err := ParseTimeOfDay(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "8", "08:60", "24:01", "25:00", "ab:cd", "08:5"} {
		_, err := ParseTimeOfDay(raw)
		assert.Error(t, err, raw)
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	window := AvailabilityWindow{DayOfWeek: time.Monday, Start: NewTimeOfDay(8, 0), End: NewTimeOfDay(24, 0)}
	payload, err := json.Marshal(window)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dayOfWeek":1,"start":"08:00","end":"24:00"}`, string(payload))

	var decoded AvailabilityWindow
	require.NoError(t, json.Unmarshal([]byte(`{"dayOfWeek":3,"start":"14:00","end":"18:30"}`), &decoded))
	assert.Equal(t, time.Wednesday, decoded.DayOfWeek)
	assert.Equal(t, NewTimeOfDay(14, 0), decoded.Start)
	assert.Equal(t, NewTimeOfDay(18, 30), decoded.End)

	assert.Error(t, json.Unmarshal([]byte(`{"start":840}`), &decoded))
}

func TestAvailabilityWindowValidate(t *testing.T) {
	assert.NoError(t, AvailabilityWindow{DayOfWeek: time.Saturday, Start: 0, End: MinutesPerDay}.Validate())
	assert.Error(t, AvailabilityWindow{DayOfWeek: 7, Start: 0, End: 60}.Validate())
	assert.Error(t, AvailabilityWindow{DayOfWeek: time.Monday, Start: 600, End: 600}.Validate())
	assert.Error(t, AvailabilityWindow{DayOfWeek: time.Monday, Start: 600, End: 1500}.Validate())
}

func TestAvailabilityWindowContains(t *testing.T) {
	w := AvailabilityWindow{DayOfWeek: time.Monday, Start: NewTimeOfDay(8, 0), End: NewTimeOfDay(12, 0)}

	assert.True(t, w.Contains(time.Monday, NewTimeOfDay(8, 0), NewTimeOfDay(8, 50)))
	assert.True(t, w.Contains(time.Monday, NewTimeOfDay(11, 10), NewTimeOfDay(12, 0)))
	assert.False(t, w.Contains(time.Monday, NewTimeOfDay(11, 30), NewTimeOfDay(12, 20)))
	assert.False(t, w.Contains(time.Monday, NewTimeOfDay(7, 59), NewTimeOfDay(8, 49)))
	assert.False(t, w.Contains(time.Tuesday, NewTimeOfDay(9, 0), NewTimeOfDay(9, 50)))
}

func TestParseAppointmentStatus(t *testing.T) {
	status, err := ParseAppointmentStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, AppointmentConfirmed, status)

	status, err = ParseAppointmentStatus("InProgress")
	require.NoError(t, err)
	assert.Equal(t, AppointmentInProgress, status)

	status, err = ParseAppointmentStatus("no_show")
	require.NoError(t, err)
	assert.Equal(t, AppointmentNoShow, status)

	_, err = ParseAppointmentStatus("archived")
	assert.Error(t, err)

	assert.True(t, AppointmentInProgress.Blocking())
	assert.False(t, AppointmentCancelled.Blocking())
	assert.True(t, AppointmentNoShow.Terminal())
	assert.False(t, AppointmentConfirmed.Terminal())
}

func TestAppointmentFilterMatches(t *testing.T) {
	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	appt := &Appointment{InstructorID: "i1", StudentID: "s1", StartTime: start, DurationMinutes: 50, Status: AppointmentPending}

	from := start.Add(-time.Hour)
	to := start
	assert.True(t, AppointmentFilter{InstructorID: "i1", Statuses: BlockingStatuses}.Matches(appt))
	assert.False(t, AppointmentFilter{StudentID: "s2"}.Matches(appt))
	assert.False(t, AppointmentFilter{Statuses: []AppointmentStatus{AppointmentCompleted}}.Matches(appt))
	assert.False(t, AppointmentFilter{From: &from, To: &to}.Matches(appt))

	assert.True(t, appt.Overlaps(start.Add(49*time.Minute), start.Add(2*time.Hour)))
	assert.False(t, appt.Overlaps(start.Add(50*time.Minute), start.Add(2*time.Hour)))
}
