package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

// Booking rejection reasons used as metric labels.
const (
	RejectOutOfAvailability = "out_of_availability"
	RejectSlotConflict      = "slot_conflict"
	RejectLockTimeout       = "lock_timeout"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	bookingsCreated   prometheus.Counter
	bookingRejections *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	lockWait          prometheus.Histogram
	counterFailures   prometheus.Counter

	requestCount         uint64
	requestDurationTotal uint64
	bookingCount         uint64
	rejectionCount       uint64
	counterFailureCount  uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	bookingsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "appointments_created_total",
		Help: "Appointments persisted in PENDING state",
	})

	bookingRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_rejections_total",
		Help: "Booking attempts rejected by availability, conflict or lock checks",
	}, []string{"reason"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_transitions_total",
		Help: "Committed appointment status transitions",
	}, []string{"from", "to"})

	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "instructor_lock_wait_seconds",
		Help:    "Time spent waiting for the per-instructor booking lock",
		Buckets: prometheus.DefBuckets,
	})

	counterFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lesson_counter_failures_total",
		Help: "Instructor lesson-count increments that could not be applied",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, bookingsCreated, bookingRejections, transitions, lockWait, counterFailures, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		bookingsCreated:   bookingsCreated,
		bookingRejections: bookingRejections,
		transitions:       transitions,
		lockWait:          lockWait,
		counterFailures:   counterFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordBookingCreated counts a persisted appointment.
func (m *MetricsService) RecordBookingCreated() {
	if m == nil {
		return
	}
	m.bookingsCreated.Inc()
	atomic.AddUint64(&m.bookingCount, 1)
}

// RecordBookingRejected counts a rejected booking attempt.
func (m *MetricsService) RecordBookingRejected(reason string) {
	if m == nil {
		return
	}
	m.bookingRejections.WithLabelValues(reason).Inc()
	atomic.AddUint64(&m.rejectionCount, 1)
}

// RecordTransition counts a committed status change.
func (m *MetricsService) RecordTransition(from, to models.AppointmentStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveLockWait records how long a booking waited for its instructor lock.
func (m *MetricsService) ObserveLockWait(duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(duration.Seconds())
}

// RecordCounterFailure counts a lesson-count increment that was given up on.
func (m *MetricsService) RecordCounterFailure() {
	if m == nil {
		return
	}
	m.counterFailures.Inc()
	atomic.AddUint64(&m.counterFailureCount, 1)
}

// Snapshot returns aggregated metrics suitable for the health endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		AppointmentsCreated:      atomic.LoadUint64(&m.bookingCount),
		BookingRejections:        atomic.LoadUint64(&m.rejectionCount),
		LessonCounterFailures:    atomic.LoadUint64(&m.counterFailureCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
