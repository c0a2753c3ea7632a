package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

const appointmentColumns = `id, instructor_id, student_id, start_time, end_time, duration_minutes, status, price, notes, meeting_address, latitude, longitude, cancellation_reason, confirmed_at, started_at, completed_at, cancelled_at, no_show_at, version, created_at, updated_at`

// AppointmentRepository persists appointments in PostgreSQL.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// GetByID fetches an appointment by id.
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, fmt.Errorf("get appointment: %w", translatePostgres(err))
	}
	return &appt, nil
}

// List returns appointments matching the filter ordered by start time.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	where, args := appointmentWhere(filter)
	query := fmt.Sprintf("SELECT %s FROM appointments %s ORDER BY start_time ASC", appointmentColumns, where)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// Count returns the number of appointments matching the filter.
func (r *AppointmentRepository) Count(ctx context.Context, filter models.AppointmentFilter) (int, error) {
	where, args := appointmentWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM appointments "+where, args...); err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return total, nil
}

// Create inserts a new appointment at version 1.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = appt.CreatedAt
	appt.EndTime = appt.End()
	appt.Version = 1

	const query = `INSERT INTO appointments (id, instructor_id, student_id, start_time, end_time, duration_minutes, status, price, notes, meeting_address, latitude, longitude, cancellation_reason, confirmed_at, started_at, completed_at, cancelled_at, no_show_at, version, created_at, updated_at)
		VALUES (:id, :instructor_id, :student_id, :start_time, :end_time, :duration_minutes, :status, :price, :notes, :meeting_address, :latitude, :longitude, :cancellation_reason, :confirmed_at, :started_at, :completed_at, :cancelled_at, :no_show_at, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return fmt.Errorf("create appointment: %w", translatePostgres(err))
	}
	return nil
}

// Update writes the whole record if nobody else changed it since it was read.
func (r *AppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	appt.EndTime = appt.End()

	const query = `UPDATE appointments SET instructor_id = :instructor_id, student_id = :student_id, start_time = :start_time, end_time = :end_time,
		duration_minutes = :duration_minutes, status = :status, price = :price, notes = :notes, meeting_address = :meeting_address,
		latitude = :latitude, longitude = :longitude, cancellation_reason = :cancellation_reason, confirmed_at = :confirmed_at,
		started_at = :started_at, completed_at = :completed_at, cancelled_at = :cancelled_at, no_show_at = :no_show_at,
		updated_at = :updated_at, version = version + 1
		WHERE id = :id AND version = :version`
	result, err := r.db.NamedExecContext(ctx, query, appt)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update appointment %s: %w", appt.ID, ErrStaleVersion)
	}
	appt.Version++
	return nil
}

func appointmentWhere(filter models.AppointmentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		conditions = append(conditions, fmt.Sprintf("instructor_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(filter.StatusStrings()))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
