package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pilotaja-api/internal/dto"
	"github.com/noah-isme/pilotaja-api/internal/models"
	appErrors "github.com/noah-isme/pilotaja-api/pkg/errors"
	"github.com/noah-isme/pilotaja-api/pkg/response"
)

type instructorService interface {
	Create(ctx context.Context, req dto.CreateInstructorRequest) (*models.Instructor, error)
	Get(ctx context.Context, id string) (*models.Instructor, error)
	List(ctx context.Context, licenseCategory string) ([]models.Instructor, error)
	ReplaceAvailability(ctx context.Context, id string, windows []models.AvailabilityWindow) (*models.Instructor, error)
}

// InstructorHandler wires instructor services to HTTP routes.
type InstructorHandler struct {
	instructors instructorService
}

// NewInstructorHandler constructs a new InstructorHandler.
func NewInstructorHandler(instructors instructorService) *InstructorHandler {
	return &InstructorHandler{instructors: instructors}
}

// List godoc
// @Summary List active instructors
// @Tags Instructors
// @Produce json
// @Param licenseCategory query string false "Filter by license category"
// @Success 200 {object} response.Envelope
// @Router /instructors [get]
func (h *InstructorHandler) List(c *gin.Context) {
	instructors, err := h.instructors.List(c.Request.Context(), c.Query("licenseCategory"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, instructors, len(instructors))
}

// Get godoc
// @Summary Get instructor detail
// @Tags Instructors
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id} [get]
func (h *InstructorHandler) Get(c *gin.Context) {
	instructor, err := h.instructors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, instructor)
}

// Create godoc
// @Summary Register instructor
// @Tags Instructors
// @Accept json
// @Produce json
// @Param payload body dto.CreateInstructorRequest true "Instructor payload"
// @Success 201 {object} response.Envelope
// @Router /instructors [post]
func (h *InstructorHandler) Create(c *gin.Context) {
	var req dto.CreateInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid instructor payload"))
		return
	}
	instructor, err := h.instructors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, instructor)
}

// ReplaceAvailability godoc
// @Summary Replace weekly availability
// @Tags Instructors
// @Accept json
// @Produce json
// @Param id path string true "Instructor ID"
// @Param payload body []models.AvailabilityWindow true "Weekly windows"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/availability [put]
func (h *InstructorHandler) ReplaceAvailability(c *gin.Context) {
	var windows []models.AvailabilityWindow
	if err := c.ShouldBindJSON(&windows); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	instructor, err := h.instructors.ReplaceAvailability(c.Request.Context(), c.Param("id"), windows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, instructor)
}
