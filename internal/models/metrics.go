package models

import "time"

// SystemMetrics is a point-in-time summary of the process counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	AppointmentsCreated      uint64    `json:"appointmentsCreated"`
	BookingRejections        uint64    `json:"bookingRejections"`
	LessonCounterFailures    uint64    `json:"lessonCounterFailures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
