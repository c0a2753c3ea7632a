package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

// StudentRepository persists students in PostgreSQL.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// GetByID fetches a student by id.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, email, phone, active, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("get student: %w", translatePostgres(err))
	}
	return &student, nil
}

// List returns students ordered by name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	where, args := studentWhere(filter)
	query := "SELECT id, full_name, email, phone, active, created_at, updated_at FROM students " + where + " ORDER BY full_name ASC"
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Count returns the number of students matching the filter.
func (r *StudentRepository) Count(ctx context.Context, filter models.StudentFilter) (int, error) {
	where, args := studentWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students "+where, args...); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, full_name, email, phone, active, created_at, updated_at)
		VALUES (:id, :full_name, :email, :phone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", translatePostgres(err))
	}
	return nil
}

// Update modifies an existing student record.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, email = :email, phone = :phone, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", translatePostgres(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update student %s: %w", student.ID, ErrNotFound)
	}
	return nil
}

func studentWhere(filter models.StudentFilter) (string, []interface{}) {
	if filter.Active == nil {
		return "", nil
	}
	return "WHERE active = $1", []interface{}{*filter.Active}
}
