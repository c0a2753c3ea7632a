package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/pilotaja-api/internal/contracts"
	"github.com/noah-isme/pilotaja-api/internal/dto"
	"github.com/noah-isme/pilotaja-api/internal/models"
	"github.com/noah-isme/pilotaja-api/internal/repository"
	appErrors "github.com/noah-isme/pilotaja-api/pkg/errors"
	"github.com/noah-isme/pilotaja-api/pkg/lock"
)

type bookingOptions struct {
	wrapDirectory    func(contracts.InstructorDirectory) contracts.InstructorDirectory
	wrapAppointments func(*repository.MemoryAppointmentRepository) AppointmentRepository
	enableInProgress bool
}

type bookingFixture struct {
	svc            *AppointmentService
	appointments   *repository.MemoryAppointmentRepository
	instructorRepo *repository.MemoryInstructorRepository
	instructors    *InstructorService
	students       *StudentService
	metrics        *MetricsService
	locker         *lock.LocalLocker
	instructor     *models.Instructor
	student        *models.Student
}

func newBookingFixture(t *testing.T) *bookingFixture {
	return newBookingFixtureWith(t, bookingOptions{})
}

func newBookingFixtureWith(t *testing.T, opts bookingOptions) *bookingFixture {
	t.Helper()
	ctx := context.Background()
	validate := validator.New()

	f := &bookingFixture{
		appointments:   repository.NewMemoryAppointmentRepository(),
		instructorRepo: repository.NewMemoryInstructorRepository(),
		metrics:        NewMetricsService(),
		locker:         lock.NewLocalLocker(),
	}
	f.instructors = NewInstructorService(f.instructorRepo, validate, zap.NewNop(), "UTC")
	f.students = NewStudentService(repository.NewMemoryStudentRepository(), validate, zap.NewNop())

	var err error
	f.instructor, err = f.instructors.Create(ctx, dto.CreateInstructorRequest{
		FullName:     "Marina Costa",
		Email:        "marina@example.com",
		HourlyRate:   decimal.NewFromInt(80),
		Timezone:     "America/Sao_Paulo",
		Availability: []models.AvailabilityWindow{window(time.Monday, "08:00", "12:00")},
	})
	require.NoError(t, err)
	f.student, err = f.students.Create(ctx, dto.CreateStudentRequest{FullName: "Joao Pereira", Email: "joao@example.com"})
	require.NoError(t, err)

	var directory contracts.InstructorDirectory = f.instructors
	if opts.wrapDirectory != nil {
		directory = opts.wrapDirectory(directory)
	}
	var appointments AppointmentRepository = f.appointments
	if opts.wrapAppointments != nil {
		appointments = opts.wrapAppointments(f.appointments)
	}

	f.svc = NewAppointmentService(appointments, directory, f.students, f.locker, nil, f.metrics, validate, zap.NewNop(),
		AppointmentServiceConfig{EnableInProgress: opts.enableInProgress})
	f.svc.now = func() time.Time { return utc("2026-10-15T10:00:00Z") }
	return f
}

func (f *bookingFixture) book(t *testing.T, start string, minutes int) *dto.AppointmentView {
	t.Helper()
	view, err := f.svc.CreateAppointment(context.Background(), adminActor(), dto.CreateAppointmentRequest{
		InstructorID:    f.instructor.ID,
		StudentID:       f.student.ID,
		StartTime:       utc(start),
		DurationMinutes: minutes,
	})
	require.NoError(t, err)
	return view
}

func (f *bookingFixture) instructorActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: f.instructor.ID, Role: models.RoleInstructor}
}

func (f *bookingFixture) studentActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: f.student.ID, Role: models.RoleStudent}
}

func adminActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func requireAppError(t *testing.T, err error, target *appErrors.Error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	require.Equal(t, target.Code, appErr.Code, appErr.Error())
	return appErr
}

type failingDirectory struct {
	contracts.InstructorDirectory
	err   error
	calls int
}

func (d *failingDirectory) IncrementInstructorLessonCount(ctx context.Context, instructorID string, delta int) error {
	d.calls++
	return d.err
}

type staleAppointmentRepo struct {
	*repository.MemoryAppointmentRepository
}

func (r staleAppointmentRepo) Update(ctx context.Context, appt *models.Appointment) error {
	return repository.ErrStaleVersion
}
