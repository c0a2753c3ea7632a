package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pilotaja-api/internal/contracts"
	"github.com/noah-isme/pilotaja-api/internal/dto"
	"github.com/noah-isme/pilotaja-api/internal/models"
	"github.com/noah-isme/pilotaja-api/internal/repository"
	appErrors "github.com/noah-isme/pilotaja-api/pkg/errors"
	"github.com/noah-isme/pilotaja-api/pkg/lock"
	"github.com/noah-isme/pilotaja-api/pkg/logger"
)

// DefaultLessonMinutes is used when a booking request omits its duration.
const DefaultLessonMinutes = 50

var transitionMessages = map[models.AppointmentStatus]string{
	models.AppointmentConfirmed:  "appointment confirmed",
	models.AppointmentInProgress: "lesson started",
	models.AppointmentCompleted:  "lesson marked as completed",
	models.AppointmentCancelled:  "appointment cancelled",
	models.AppointmentNoShow:     "student marked as no-show",
}

// AppointmentServiceConfig tunes booking defaults.
type AppointmentServiceConfig struct {
	DefaultDurationMinutes int
	EnableInProgress       bool
}

// AppointmentService runs the booking workflow. It reaches instructors and students only
// through their directories.
type AppointmentService struct {
	appointments AppointmentRepository
	instructors  contracts.InstructorDirectory
	students     contracts.StudentDirectory
	resolver     *AvailabilityResolver
	conflicts    *ConflictChecker
	states       *AppointmentStateMachine
	locker       lock.Locker
	counter      LessonCounter
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	config       AppointmentServiceConfig
	now          func() time.Time
}

// NewAppointmentService instantiates AppointmentService.
func NewAppointmentService(
	appointments AppointmentRepository,
	instructors contracts.InstructorDirectory,
	students contracts.StudentDirectory,
	locker lock.Locker,
	counter LessonCounter,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AppointmentServiceConfig,
) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if counter == nil {
		counter = NewSyncLessonCounter(instructors, metrics, logger)
	}
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = DefaultLessonMinutes
	}
	return &AppointmentService{
		appointments: appointments,
		instructors:  instructors,
		students:     students,
		resolver:     NewAvailabilityResolver(),
		conflicts:    NewConflictChecker(appointments),
		states:       NewAppointmentStateMachine(cfg.EnableInProgress),
		locker:       locker,
		counter:      counter,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		config:       cfg,
		now:          time.Now,
	}
}

// CreateAppointment books a lesson in PENDING state. Availability is checked before the
// instructor lock is taken; the conflict check and the insert happen while holding it.
func (s *AppointmentService) CreateAppointment(ctx context.Context, actor *models.JWTClaims, req dto.CreateAppointmentRequest) (*dto.AppointmentView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}
	if req.StartTime.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime is required")
	}
	if !actor.IsAdmin() && !actor.Acts(models.RoleStudent, req.StudentID) && !actor.Acts(models.RoleInstructor, req.InstructorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot book on behalf of another user")
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = s.config.DefaultDurationMinutes
	}
	start := req.StartTime.UTC()

	info, err := s.instructorInfo(ctx, req.InstructorID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}

	if !s.resolver.IsWithinAvailability(info, start, duration) {
		s.metrics.RecordBookingRejected(RejectOutOfAvailability)
		detail := s.resolver.Explain(info, start)
		return nil, appErrors.WithDetails(
			appErrors.Wrap(detail, appErrors.ErrOutOfAvailability.Code, appErrors.ErrOutOfAvailability.Status, appErrors.ErrOutOfAvailability.Message),
			detail,
		)
	}

	waitStart := time.Now()
	release, err := s.locker.Lock(ctx, instructorLockKey(info.ID))
	s.metrics.ObserveLockWait(time.Since(waitStart))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.metrics.RecordBookingRejected(RejectLockTimeout)
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "instructor agenda is busy, try again")
		}
		return nil, storageError(err, "failed to lock instructor agenda")
	}
	defer release()

	conflict, err := s.conflicts.FindConflict(ctx, info.ID, start, duration, "")
	if err != nil {
		return nil, storageError(err, "failed to check appointment conflicts")
	}
	if conflict != nil {
		s.metrics.RecordBookingRejected(RejectSlotConflict)
		detail := &models.SlotConflictError{AppointmentID: conflict.ID, StartTime: conflict.StartTime.UTC(), EndTime: conflict.End().UTC()}
		return nil, appErrors.WithDetails(
			appErrors.Wrap(detail, appErrors.ErrSlotConflict.Code, appErrors.ErrSlotConflict.Status, appErrors.ErrSlotConflict.Message),
			detail,
		)
	}

	appt := &models.Appointment{
		InstructorID:    info.ID,
		StudentID:       req.StudentID,
		StartTime:       start,
		DurationMinutes: duration,
		Status:          models.AppointmentPending,
		Price:           ComputePrice(info.HourlyRate, duration),
		Notes:           trimmedOrNil(req.Notes),
		MeetingAddress:  trimmedOrNil(req.MeetingAddress),
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		CreatedAt:       s.now().UTC(),
	}

	// The lock may have been granted after the caller gave up.
	if err := ctx.Err(); err != nil {
		return nil, storageError(err, "request ended before the appointment was stored")
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, storageError(err, "failed to create appointment")
	}

	s.metrics.RecordBookingCreated()
	logger.WithContext(ctx, s.logger).Info("appointment created",
		zap.String("appointment_id", appt.ID),
		zap.String("instructor_id", appt.InstructorID),
		zap.String("student_id", appt.StudentID),
		zap.Time("start_time", appt.StartTime),
		zap.Int("duration_minutes", appt.DurationMinutes))

	view := dto.NewAppointmentView(appt)
	return &view, nil
}

// TransitionAppointment moves an appointment along its lifecycle. Completing a lesson
// increments the instructor's lesson count on a best-effort basis.
func (s *AppointmentService) TransitionAppointment(ctx context.Context, actor *models.JWTClaims, id string, req dto.TransitionAppointmentRequest) (*dto.TransitionResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	target, err := models.ParseAppointmentStatus(req.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(actor, appt, target) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to change this appointment")
	}

	next, err := s.states.Transition(*appt, target, req.CancellationReason)
	if err != nil {
		var transitionErr *models.TransitionError
		if errors.As(err, &transitionErr) {
			return nil, appErrors.WithDetails(
				appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status, transitionErr.Error()),
				transitionErr,
			)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition appointment")
	}

	if err := s.appointments.Update(ctx, &next); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleVersion):
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "appointment was modified concurrently, reload and retry")
		case errors.Is(err, repository.ErrNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, storageError(err, "failed to update appointment")
	}

	s.metrics.RecordTransition(appt.Status, next.Status)
	logger.WithContext(ctx, s.logger).Info("appointment status changed",
		zap.String("appointment_id", next.ID),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(next.Status)),
		zap.String("actor_id", actor.UserID))

	if next.Status == models.AppointmentCompleted {
		s.counter.LessonCompleted(ctx, &next)
	}

	return &dto.TransitionResult{Appointment: dto.NewAppointmentView(&next), Message: transitionMessages[next.Status]}, nil
}

// GetAppointment returns one appointment visible to the caller.
func (s *AppointmentService) GetAppointment(ctx context.Context, actor *models.JWTClaims, id string) (*dto.AppointmentView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Acts(models.RoleInstructor, appt.InstructorID) && !actor.Acts(models.RoleStudent, appt.StudentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this appointment")
	}
	view := dto.NewAppointmentView(appt)
	return &view, nil
}

// ListInstructorAppointments returns an instructor's appointments ordered by start time.
func (s *AppointmentService) ListInstructorAppointments(ctx context.Context, actor *models.JWTClaims, instructorID string, query dto.AppointmentQuery) ([]dto.AppointmentView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() && !actor.Acts(models.RoleInstructor, instructorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this agenda")
	}
	if _, err := s.instructorInfo(ctx, instructorID); err != nil {
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
	return dto.NewAppointmentViews(items), nil
}

// ListStudentAppointments returns a student's appointments ordered by start time.
func (s *AppointmentService) ListStudentAppointments(ctx context.Context, actor *models.JWTClaims, studentID string, query dto.AppointmentQuery) ([]dto.AppointmentView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() && !actor.Acts(models.RoleStudent, studentID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view these appointments")
	}
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}

	items, err := s.appointments.List(ctx, models.AppointmentFilter{
		StudentID: studentID,
		Statuses:  query.Statuses,
		From:      query.From,
		To:        query.To,
	})
	if err != nil {
		return nil, storageError(err, "failed to list student appointments")
	}
	return dto.NewAppointmentViews(items), nil
}

func (s *AppointmentService) load(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, storageError(err, "failed to load appointment")
	}
	return appt, nil
}

func (s *AppointmentService) instructorInfo(ctx context.Context, instructorID string) (*contracts.InstructorInfo, error) {
	info, err := s.instructors.GetInstructorInfo(ctx, instructorID)
	if err != nil {
		if errors.Is(err, contracts.ErrUnknownInstructor) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, storageError(err, "failed to load instructor")
	}
	if !info.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
	}
	return info, nil
}

func (s *AppointmentService) ensureStudent(ctx context.Context, studentID string) error {
	exists, err := s.students.StudentExists(ctx, studentID)
	if err != nil {
		return storageError(err, "failed to load student")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}

// canTransition applies ownership rules: instructors drive their own lessons, students may
// only cancel their own, admins may do anything.
func canTransition(actor *models.JWTClaims, appt *models.Appointment, target models.AppointmentStatus) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.Acts(models.RoleInstructor, appt.InstructorID):
		return true
	case actor.Acts(models.RoleStudent, appt.StudentID):
		return target == models.AppointmentCancelled
	}
	return false
}

func instructorLockKey(instructorID string) string {
	return fmt.Sprintf("instructor:%s", instructorID)
}

// storageError hides driver errors from callers; cancelled or expired contexts map to TIMEOUT.
func storageError(err error, message string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Storage(err, message)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
