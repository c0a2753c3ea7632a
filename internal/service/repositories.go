package service

import (
	"context"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

// AppointmentRepository is the storage port of the booking module. Update is a conditional
// write on Version and must report repository.ErrStaleVersion when it loses.
type AppointmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
	Count(ctx context.Context, filter models.AppointmentFilter) (int, error)
	Create(ctx context.Context, appt *models.Appointment) error
	Update(ctx context.Context, appt *models.Appointment) error
}

// InstructorRepository is the storage port of the instructor module.
type InstructorRepository interface {
	GetByID(ctx context.Context, id string) (*models.Instructor, error)
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error)
	Count(ctx context.Context, filter models.InstructorFilter) (int, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	Update(ctx context.Context, instructor *models.Instructor) error
	IncrementTotalLessons(ctx context.Context, id string, delta int) error
}

// StudentRepository is the storage port of the student module.
type StudentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	Count(ctx context.Context, filter models.StudentFilter) (int, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}
