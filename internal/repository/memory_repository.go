package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/pilotaja-api/internal/models"
)

// MemoryAppointmentRepository keeps appointments in process memory. Used by tests and
// STORAGE_DRIVER=memory.
type MemoryAppointmentRepository struct {
	mu    sync.RWMutex
	items map[string]models.Appointment
}

// NewMemoryAppointmentRepository constructs an empty store.
func NewMemoryAppointmentRepository() *MemoryAppointmentRepository {
	return &MemoryAppointmentRepository{items: make(map[string]models.Appointment)}
}

// GetByID returns a copy of the stored appointment.
func (r *MemoryAppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("get appointment: %w", ErrNotFound)
	}
	return &appt, nil
}

// List returns matching appointments ordered by start time.
func (r *MemoryAppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Appointment, 0)
	for _, appt := range r.items {
		appt := appt
		if filter.Matches(&appt) {
			out = append(out, appt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// Count returns the number of matching appointments.
func (r *MemoryAppointmentRepository) Count(ctx context.Context, filter models.AppointmentFilter) (int, error) {
	items, err := r.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Create stores a new appointment at version 1.
func (r *MemoryAppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	appt.UpdatedAt = appt.CreatedAt
	appt.EndTime = appt.End()
	appt.Version = 1

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[appt.ID]; exists {
		return fmt.Errorf("create appointment %s: %w", appt.ID, ErrDuplicate)
	}
	r.items[appt.ID] = *appt
	return nil
}

// Update replaces the stored record when the versions match.
func (r *MemoryAppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[appt.ID]
	if !ok {
		return fmt.Errorf("update appointment %s: %w", appt.ID, ErrNotFound)
	}
	if current.Version != appt.Version {
		return fmt.Errorf("update appointment %s: %w", appt.ID, ErrStaleVersion)
	}
	appt.UpdatedAt = time.Now().UTC()
	appt.EndTime = appt.End()
	appt.Version++
	r.items[appt.ID] = *appt
	return nil
}

// MemoryInstructorRepository keeps instructors in process memory.
type MemoryInstructorRepository struct {
	mu    sync.RWMutex
	items map[string]models.Instructor
}

// NewMemoryInstructorRepository constructs an empty store.
func NewMemoryInstructorRepository() *MemoryInstructorRepository {
	return &MemoryInstructorRepository{items: make(map[string]models.Instructor)}
}

// GetByID returns a copy of the stored instructor.
func (r *MemoryInstructorRepository) GetByID(ctx context.Context, id string) (*models.Instructor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	instructor, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("get instructor: %w", ErrNotFound)
	}
	return cloneInstructor(instructor), nil
}

// List returns instructors matching the filter ordered by name.
func (r *MemoryInstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Instructor, 0)
	for _, instructor := range r.items {
		if filter.Active != nil && instructor.Active != *filter.Active {
			continue
		}
		if filter.LicenseCategory != "" && !strings.EqualFold(instructor.LicenseCategory, filter.LicenseCategory) {
			continue
		}
		out = append(out, *cloneInstructor(instructor))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

// Count returns the number of matching instructors.
func (r *MemoryInstructorRepository) Count(ctx context.Context, filter models.InstructorFilter) (int, error) {
	items, err := r.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Create stores a new instructor.
func (r *MemoryInstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = now
	}
	instructor.UpdatedAt = now
	for i := range instructor.Availability {
		if instructor.Availability[i].ID == "" {
			instructor.Availability[i].ID = uuid.NewString()
		}
		instructor.Availability[i].InstructorID = instructor.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.ID == instructor.ID || strings.EqualFold(existing.Email, instructor.Email) {
			return fmt.Errorf("create instructor: %w", ErrDuplicate)
		}
	}
	r.items[instructor.ID] = *cloneInstructor(*instructor)
	return nil
}

// Update replaces the stored instructor except for its lesson counter.
func (r *MemoryInstructorRepository) Update(ctx context.Context, instructor *models.Instructor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[instructor.ID]
	if !ok {
		return fmt.Errorf("update instructor %s: %w", instructor.ID, ErrNotFound)
	}
	instructor.UpdatedAt = time.Now().UTC()
	instructor.TotalLessons = stored.TotalLessons
	r.items[instructor.ID] = *cloneInstructor(*instructor)
	return nil
}

// IncrementTotalLessons adds delta to the lesson counter.
func (r *MemoryInstructorRepository) IncrementTotalLessons(ctx context.Context, id string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	instructor, ok := r.items[id]
	if !ok {
		return fmt.Errorf("increment instructor lessons %s: %w", id, ErrNotFound)
	}
	instructor.TotalLessons += delta
	instructor.UpdatedAt = time.Now().UTC()
	r.items[id] = instructor
	return nil
}

func cloneInstructor(in models.Instructor) *models.Instructor {
	out := in
	if in.Availability != nil {
		out.Availability = append([]models.AvailabilityWindow(nil), in.Availability...)
	}
	return &out
}

// MemoryStudentRepository keeps students in process memory.
type MemoryStudentRepository struct {
	mu    sync.RWMutex
	items map[string]models.Student
}

// NewMemoryStudentRepository constructs an empty store.
func NewMemoryStudentRepository() *MemoryStudentRepository {
	return &MemoryStudentRepository{items: make(map[string]models.Student)}
}

// GetByID returns a copy of the stored student.
func (r *MemoryStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	student, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("get student: %w", ErrNotFound)
	}
	return &student, nil
}

// List returns students matching the filter ordered by name.
func (r *MemoryStudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Student, 0)
	for _, student := range r.items {
		if filter.Active != nil && student.Active != *filter.Active {
			continue
		}
		out = append(out, student)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

// Count returns the number of matching students.
func (r *MemoryStudentRepository) Count(ctx context.Context, filter models.StudentFilter) (int, error) {
	items, err := r.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Create stores a new student.
func (r *MemoryStudentRepository) Create(ctx context.Context, student *models.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.ID == student.ID || strings.EqualFold(existing.Email, student.Email) {
			return fmt.Errorf("create student: %w", ErrDuplicate)
		}
	}
	r.items[student.ID] = *student
	return nil
}

// Update replaces the stored student.
func (r *MemoryStudentRepository) Update(ctx context.Context, student *models.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[student.ID]; !ok {
		return fmt.Errorf("update student %s: %w", student.ID, ErrNotFound)
	}
	student.UpdatedAt = time.Now().UTC()
	r.items[student.ID] = *student
	return nil
}
