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

const instructorColumns = `id, full_name, email, phone, license_category, hourly_rate, timezone, rating, total_lessons, active, created_at, updated_at`

// InstructorRepository persists instructors and their weekly availability in PostgreSQL.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs an InstructorRepository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// GetByID fetches an instructor together with its availability windows.
func (r *InstructorRepository) GetByID(ctx context.Context, id string) (*models.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE id = $1`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, fmt.Errorf("get instructor: %w", translatePostgres(err))
	}

	const windowsQuery = `SELECT id, instructor_id, day_of_week, start_minute, end_minute FROM instructor_availability WHERE instructor_id = $1 ORDER BY day_of_week, start_minute`
	if err := r.db.SelectContext(ctx, &instructor.Availability, windowsQuery, id); err != nil {
		return nil, fmt.Errorf("get instructor availability: %w", err)
	}
	return &instructor, nil
}

// List returns instructors matching the filter with their availability.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error) {
	where, args := instructorWhere(filter)
	query := fmt.Sprintf("SELECT %s FROM instructors %s ORDER BY full_name ASC", instructorColumns, where)
	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	if len(instructors) == 0 {
		return instructors, nil
	}

	ids := make([]string, len(instructors))
	for i := range instructors {
		ids[i] = instructors[i].ID
	}
	var windows []models.AvailabilityWindow
	const windowsQuery = `SELECT id, instructor_id, day_of_week, start_minute, end_minute FROM instructor_availability WHERE instructor_id = ANY($1) ORDER BY day_of_week, start_minute`
	if err := r.db.SelectContext(ctx, &windows, windowsQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list instructor availability: %w", err)
	}
	byInstructor := make(map[string][]models.AvailabilityWindow, len(instructors))
	for _, w := range windows {
		byInstructor[w.InstructorID] = append(byInstructor[w.InstructorID], w)
	}
	for i := range instructors {
		instructors[i].Availability = byInstructor[instructors[i].ID]
	}
	return instructors, nil
}

// Count returns the number of instructors matching the filter.
func (r *InstructorRepository) Count(ctx context.Context, filter models.InstructorFilter) (int, error) {
	where, args := instructorWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM instructors "+where, args...); err != nil {
		return 0, fmt.Errorf("count instructors: %w", err)
	}
	return total, nil
}

// Create inserts an instructor and its windows in one transaction.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) (err error) {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = now
	}
	instructor.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create instructor: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO instructors (id, full_name, email, phone, license_category, hourly_rate, timezone, rating, total_lessons, active, created_at, updated_at)
		VALUES (:id, :full_name, :email, :phone, :license_category, :hourly_rate, :timezone, :rating, :total_lessons, :active, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, instructor); err != nil {
		return fmt.Errorf("create instructor: %w", translatePostgres(err))
	}
	if err = insertWindows(ctx, tx, instructor); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create instructor: %w", err)
	}
	return nil
}

// Update rewrites the instructor row and replaces its availability.
func (r *InstructorRepository) Update(ctx context.Context, instructor *models.Instructor) (err error) {
	instructor.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update instructor: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// total_lessons is only ever changed by IncrementTotalLessons.
	const query = `UPDATE instructors SET full_name = :full_name, email = :email, phone = :phone, license_category = :license_category,
		hourly_rate = :hourly_rate, timezone = :timezone, rating = :rating, active = :active,
		updated_at = :updated_at WHERE id = :id RETURNING total_lessons`
	rows, err := sqlx.NamedQueryContext(ctx, tx, query, instructor)
	if err != nil {
		return fmt.Errorf("update instructor: %w", translatePostgres(err))
	}
	found := rows.Next()
	if found {
		err = rows.Scan(&instructor.TotalLessons)
	}
	if closeErr := rows.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = rows.Err()
	}
	if err != nil {
		return fmt.Errorf("update instructor: %w", translatePostgres(err))
	}
	if !found {
		return fmt.Errorf("update instructor %s: %w", instructor.ID, ErrNotFound)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM instructor_availability WHERE instructor_id = $1`, instructor.ID); err != nil {
		return fmt.Errorf("clear instructor availability: %w", err)
	}
	if err = insertWindows(ctx, tx, instructor); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update instructor: %w", err)
	}
	return nil
}

// IncrementTotalLessons atomically adds delta to the lesson counter.
func (r *InstructorRepository) IncrementTotalLessons(ctx context.Context, id string, delta int) error {
	const query = `UPDATE instructors SET total_lessons = total_lessons + $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment instructor lessons: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment instructor lessons: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("increment instructor lessons %s: %w", id, ErrNotFound)
	}
	return nil
}

func insertWindows(ctx context.Context, tx *sqlx.Tx, instructor *models.Instructor) error {
	const query = `INSERT INTO instructor_availability (id, instructor_id, day_of_week, start_minute, end_minute)
		VALUES (:id, :instructor_id, :day_of_week, :start_minute, :end_minute)`
	for i := range instructor.Availability {
		w := &instructor.Availability[i]
		if w.ID == "" {
			w.ID = uuid.NewString()
		}
		w.InstructorID = instructor.ID
		if _, err := tx.NamedExecContext(ctx, query, w); err != nil {
			return fmt.Errorf("create availability window: %w", err)
		}
	}
	return nil
}

func instructorWhere(filter models.InstructorFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.LicenseCategory != "" {
		args = append(args, strings.ToUpper(filter.LicenseCategory))
		conditions = append(conditions, fmt.Sprintf("UPPER(license_category) = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
