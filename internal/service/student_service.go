package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pilotaja-api/internal/contracts"
	"github.com/noah-isme/pilotaja-api/internal/dto"
	"github.com/noah-isme/pilotaja-api/internal/models"
	"github.com/noah-isme/pilotaja-api/internal/repository"
	appErrors "github.com/noah-isme/pilotaja-api/pkg/errors"
)

// StudentService owns student records and implements contracts.StudentDirectory.
type StudentService struct {
	repo      StudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

var _ contracts.StudentDirectory = (*StudentService)(nil)

// NewStudentService instantiates StudentService.
func NewStudentService(repo StudentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:    strings.TrimSpace(req.Phone),
		Active:   true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, storageError(err, "failed to create student")
	}
	s.logger.Info("student registered", zap.String("student_id", student.ID))
	return student, nil
}

// Get returns a student profile.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storageError(err, "failed to load student")
	}
	return student, nil
}

// StudentExists implements contracts.StudentDirectory. Inactive students do not count.
func (s *StudentService) StudentExists(ctx context.Context, studentID string) (bool, error) {
	student, err := s.repo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return student.Active, nil
}
