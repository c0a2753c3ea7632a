package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var appointmentRowColumns = []string{"id", "instructor_id", "student_id", "start_time", "end_time", "duration_minutes", "status", "price", "notes", "meeting_address", "latitude", "longitude", "cancellation_reason", "confirmed_at", "started_at", "completed_at", "cancelled_at", "no_show_at", "version", "created_at", "updated_at"}

func appointmentRow(rows *sqlmock.Rows, id string, start time.Time, status models.AppointmentStatus) *sqlmock.Rows {
	return rows.AddRow(id, "inst-1", "stud-1", start, start.Add(50*time.Minute), 50, string(status), "66.67",
		nil, "Rua A, 100", -23.55, -46.63, nil, nil, nil, nil, nil, nil, 1, start, start)
}

func TestAppointmentRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments WHERE id = $1")).
		WithArgs("appt-1").
		WillReturnRows(appointmentRow(sqlmock.NewRows(appointmentRowColumns), "appt-1", start, models.AppointmentPending))

	appt, err := repo.GetByID(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Equal(t, "appt-1", appt.ID)
	assert.Equal(t, models.AppointmentPending, appt.Status)
	assert.True(t, decimal.RequireFromString("66.67").Equal(appt.Price))
	require.NotNil(t, appt.MeetingAddress)
	assert.Equal(t, "Rua A, 100", *appt.MeetingAddress)
	assert.Nil(t, appt.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	from := start.Add(-24 * time.Hour)
	rows := sqlmock.NewRows(appointmentRowColumns)
	appointmentRow(rows, "a1", start, models.AppointmentPending)
	appointmentRow(rows, "a2", start.Add(time.Hour), models.AppointmentConfirmed)

	mock.ExpectQuery(regexp.QuoteMeta("FROM appointments WHERE instructor_id = $1 AND status = ANY($2) AND start_time >= $3 ORDER BY start_time ASC")).
		WithArgs("inst-1", sqlmock.AnyArg(), from).
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.AppointmentFilter{
		InstructorID: "inst-1",
		Statuses:     models.BlockingStatuses,
		From:         &from,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a1", list[0].ID)
	assert.Equal(t, models.AppointmentConfirmed, list[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM appointments WHERE student_id = $1")).
		WithArgs("stud-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := repo.Count(context.Background(), models.AppointmentFilter{StudentID: "stud-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec("INSERT INTO appointments").WillReturnResult(sqlmock.NewResult(1, 1))

	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	appt := &models.Appointment{
		InstructorID:    "inst-1",
		StudentID:       "stud-1",
		StartTime:       start,
		DurationMinutes: 50,
		Status:          models.AppointmentPending,
		Price:           decimal.RequireFromString("66.67"),
	}
	require.NoError(t, repo.Create(context.Background(), appt))
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, 1, appt.Version)
	assert.Equal(t, start.Add(50*time.Minute), appt.EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryUpdateOptimistic(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	appt := &models.Appointment{ID: "appt-1", InstructorID: "inst-1", StudentID: "stud-1", StartTime: start, DurationMinutes: 50, Status: models.AppointmentConfirmed, Version: 1}

	mock.ExpectExec(regexp.QuoteMeta("version = version + 1")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), appt))
	assert.Equal(t, 2, appt.Version)

	stale := *appt
	stale.Version = 1
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND version = ?")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), &stale)
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.Equal(t, 1, stale.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
