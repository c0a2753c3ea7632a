package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pilotaja-api/internal/contracts"
	"github.com/noah-isme/pilotaja-api/internal/dto"
	"github.com/noah-isme/pilotaja-api/internal/models"
	"github.com/noah-isme/pilotaja-api/internal/repository"
	appErrors "github.com/noah-isme/pilotaja-api/pkg/errors"
	"github.com/noah-isme/pilotaja-api/pkg/logger"
)

// InstructorService owns instructor records and implements contracts.InstructorDirectory.
type InstructorService struct {
	repo            InstructorRepository
	validator       *validator.Validate
	logger          *zap.Logger
	defaultTimezone string
}

var _ contracts.InstructorDirectory = (*InstructorService)(nil)

// NewInstructorService instantiates InstructorService.
func NewInstructorService(repo InstructorRepository, validate *validator.Validate, logger *zap.Logger, defaultTimezone string) *InstructorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &InstructorService{repo: repo, validator: validate, logger: logger, defaultTimezone: defaultTimezone}
}

// Create registers an instructor with its weekly availability.
func (s *InstructorService) Create(ctx context.Context, req dto.CreateInstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}
	if !req.HourlyRate.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hourlyRate must be greater than zero")
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = s.defaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unknown timezone %q", timezone))
	}
	if err := validateWindows(req.Availability); err != nil {
		return nil, err
	}

	instructor := &models.Instructor{
		FullName:        strings.TrimSpace(req.FullName),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:           strings.TrimSpace(req.Phone),
		LicenseCategory: strings.ToUpper(strings.TrimSpace(req.LicenseCategory)),
		HourlyRate:      req.HourlyRate.Round(PriceScale),
		Timezone:        timezone,
		Active:          true,
		Availability:    append([]models.AvailabilityWindow(nil), req.Availability...),
	}
	if err := s.repo.Create(ctx, instructor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, storageError(err, "failed to create instructor")
	}

	logger.WithContext(ctx, s.logger).Info("instructor registered",
		zap.String("instructor_id", instructor.ID),
		zap.String("timezone", instructor.Timezone),
		zap.Int("windows", len(instructor.Availability)))
	return instructor, nil
}

// Get returns an instructor profile.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, storageError(err, "failed to load instructor")
	}
	return instructor, nil
}

// List returns active instructors, optionally restricted to a license category.
func (s *InstructorService) List(ctx context.Context, licenseCategory string) ([]models.Instructor, error) {
	active := true
	instructors, err := s.repo.List(ctx, models.InstructorFilter{Active: &active, LicenseCategory: strings.TrimSpace(licenseCategory)})
	if err != nil {
		return nil, storageError(err, "failed to list instructors")
	}
	return instructors, nil
}

// ReplaceAvailability swaps the instructor's weekly template. Existing appointments are kept.
func (s *InstructorService) ReplaceAvailability(ctx context.Context, id string, windows []models.AvailabilityWindow) (*models.Instructor, error) {
	if err := validateWindows(windows); err != nil {
		return nil, err
	}
	instructor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	instructor.Availability = make([]models.AvailabilityWindow, len(windows))
	for i, w := range windows {
		instructor.Availability[i] = models.AvailabilityWindow{DayOfWeek: w.DayOfWeek, Start: w.Start, End: w.End}
	}
	if err := s.repo.Update(ctx, instructor); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, storageError(err, "failed to update availability")
	}
	return instructor, nil
}

// GetInstructorInfo implements contracts.InstructorDirectory.
func (s *InstructorService) GetInstructorInfo(ctx context.Context, instructorID string) (*contracts.InstructorInfo, error) {
	instructor, err := s.repo.GetByID(ctx, instructorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, contracts.ErrUnknownInstructor
		}
		return nil, err
	}
	return &contracts.InstructorInfo{
		ID:           instructor.ID,
		HourlyRate:   instructor.HourlyRate,
		Timezone:     instructor.Timezone,
		Availability: instructor.Availability,
		Active:       instructor.Active,
	}, nil
}

// IncrementInstructorLessonCount implements contracts.InstructorDirectory.
func (s *InstructorService) IncrementInstructorLessonCount(ctx context.Context, instructorID string, delta int) error {
	if err := s.repo.IncrementTotalLessons(ctx, instructorID, delta); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return contracts.ErrUnknownInstructor
		}
		return err
	}
	return nil
}

// validateWindows rejects malformed windows and windows overlapping on the same day.
func validateWindows(windows []models.AvailabilityWindow) error {
	if len(windows) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one availability window is required")
	}
	sorted := append([]models.AvailabilityWindow(nil), windows...)
	for _, w := range sorted {
		if err := w.Validate(); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DayOfWeek != sorted[j].DayOfWeek {
			return sorted[i].DayOfWeek < sorted[j].DayOfWeek
		}
		return sorted[i].Start < sorted[j].Start
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.DayOfWeek == cur.DayOfWeek && cur.Start < prev.End {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("availability windows %s-%s and %s-%s overlap on %s",
				prev.Start, prev.End, cur.Start, cur.End, cur.DayOfWeek))
		}
	}
	return nil
}
