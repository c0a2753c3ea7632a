package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the exclusive upper bound of a wall-clock offset; 24:00 is a valid window end.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock offset in minutes from local midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute components.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM" (00:00 through 24:00).
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", raw, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", raw, err)
	}
	if hour < 0 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	t := NewTimeOfDay(hour, minute)
	if !t.Valid() {
		return 0, fmt.Errorf("time of day %q out of range", raw)
	}
	return t, nil
}

// Valid reports whether t lies within [00:00, 24:00].
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= MinutesPerDay
}

// String formats t as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON encodes t as an "HH:MM" string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes an "HH:MM" string.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// AvailabilityWindow is a recurring weekly interval during which an instructor accepts lessons.
type AvailabilityWindow struct {
	ID           string       `db:"id" json:"id,omitempty"`
	InstructorID string       `db:"instructor_id" json:"-"`
	DayOfWeek    time.Weekday `db:"day_of_week" json:"dayOfWeek"`
	Start        TimeOfDay    `db:"start_minute" json:"start"`
	End          TimeOfDay    `db:"end_minute" json:"end"`
}

// Validate checks the window bounds.
func (w AvailabilityWindow) Validate() error {
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return fmt.Errorf("day of week %d out of range", w.DayOfWeek)
	}
	if !w.Start.Valid() || !w.End.Valid() {
		return fmt.Errorf("window %s-%s out of range", w.Start, w.End)
	}
	if w.Start >= w.End {
		return fmt.Errorf("window start %s must be before end %s", w.Start, w.End)
	}
	return nil
}

// Contains reports whether [start, end) on day falls entirely inside the window.
func (w AvailabilityWindow) Contains(day time.Weekday, start, end TimeOfDay) bool {
	return w.DayOfWeek == day && w.Start <= start && end <= w.End
}

// WindowsOn returns the windows that apply to the given weekday, in input order.
func WindowsOn(windows []AvailabilityWindow, day time.Weekday) []AvailabilityWindow {
	var out []AvailabilityWindow
	for _, w := range windows {
		if w.DayOfWeek == day {
			out = append(out, w)
		}
	}
	return out
}
