package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pilotaja-api/internal/contracts"
	"github.com/noah-isme/pilotaja-api/internal/models"
	"github.com/noah-isme/pilotaja-api/pkg/jobs"
	"github.com/noah-isme/pilotaja-api/pkg/logger"
)

const (
	lessonCompletedJob   = "lesson_completed"
	lessonCounterTimeout = 5 * time.Second
)

// LessonCounter propagates a completed lesson to the instructor module. Implementations
// never report failure to the caller; a completed appointment stays completed.
type LessonCounter interface {
	LessonCompleted(ctx context.Context, appt *models.Appointment)
}

// SyncLessonCounter increments the instructor counter inline.
type SyncLessonCounter struct {
	directory contracts.InstructorDirectory
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewSyncLessonCounter constructs a SyncLessonCounter.
func NewSyncLessonCounter(directory contracts.InstructorDirectory, metrics *MetricsService, logger *zap.Logger) *SyncLessonCounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncLessonCounter{directory: directory, metrics: metrics, logger: logger}
}

// LessonCompleted increments the counter detached from the caller's cancellation.
func (c *SyncLessonCounter) LessonCompleted(ctx context.Context, appt *models.Appointment) {
	incCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lessonCounterTimeout)
	defer cancel()
	if err := c.directory.IncrementInstructorLessonCount(incCtx, appt.InstructorID, 1); err != nil {
		c.metrics.RecordCounterFailure()
		logger.WithContext(ctx, c.logger).Warn("lesson counter increment failed",
			zap.String("appointment_id", appt.ID),
			zap.String("instructor_id", appt.InstructorID),
			zap.Error(err))
	}
}

type lessonCompletedPayload struct {
	AppointmentID string
	InstructorID  string
}

// QueuedLessonCounter hands increments to a background job queue with retries.
type QueuedLessonCounter struct {
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewQueuedLessonCounter wires a job queue whose handler calls the instructor directory.
// Jobs that exhaust their retries are logged and counted.
func NewQueuedLessonCounter(directory contracts.InstructorDirectory, cfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *QueuedLessonCounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	cfg.OnExhausted = func(job jobs.Job, err error) {
		metrics.RecordCounterFailure()
		payload, _ := job.Payload.(lessonCompletedPayload)
		logger.Error("lesson counter increment abandoned",
			zap.String("appointment_id", payload.AppointmentID),
			zap.String("instructor_id", payload.InstructorID),
			zap.Int("attempts", job.Attempt),
			zap.Error(err))
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(lessonCompletedPayload)
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		incCtx, cancel := context.WithTimeout(ctx, lessonCounterTimeout)
		defer cancel()
		return directory.IncrementInstructorLessonCount(incCtx, payload.InstructorID, 1)
	}

	return &QueuedLessonCounter{
		queue:   jobs.NewQueue("lesson-counter", handler, cfg),
		metrics: metrics,
		logger:  logger,
	}
}

// Start launches the queue workers.
func (c *QueuedLessonCounter) Start(ctx context.Context) {
	c.queue.Start(ctx)
}

// Stop drains nothing; pending increments are dropped and must be reconciled from COMPLETED rows.
func (c *QueuedLessonCounter) Stop() {
	c.queue.Stop()
}

// LessonCompleted enqueues the increment.
func (c *QueuedLessonCounter) LessonCompleted(ctx context.Context, appt *models.Appointment) {
	job := jobs.Job{
		ID:      appt.ID,
		Type:    lessonCompletedJob,
		Payload: lessonCompletedPayload{AppointmentID: appt.ID, InstructorID: appt.InstructorID},
	}
	if err := c.queue.Enqueue(job); err != nil {
		c.metrics.RecordCounterFailure()
		logger.WithContext(ctx, c.logger).Warn("lesson counter enqueue failed",
			zap.String("appointment_id", appt.ID),
			zap.Error(err))
	}
}
