package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pilotaja-api/internal/dto"
	"github.com/noah-isme/pilotaja-api/internal/models"
	appErrors "github.com/noah-isme/pilotaja-api/pkg/errors"
	"github.com/noah-isme/pilotaja-api/pkg/export"
	"github.com/noah-isme/pilotaja-api/pkg/response"
)

type appointmentService interface {
	CreateAppointment(ctx context.Context, actor *models.JWTClaims, req dto.CreateAppointmentRequest) (*dto.AppointmentView, error)
	TransitionAppointment(ctx context.Context, actor *models.JWTClaims, id string, req dto.TransitionAppointmentRequest) (*dto.TransitionResult, error)
	GetAppointment(ctx context.Context, actor *models.JWTClaims, id string) (*dto.AppointmentView, error)
	ListInstructorAppointments(ctx context.Context, actor *models.JWTClaims, instructorID string, query dto.AppointmentQuery) ([]dto.AppointmentView, error)
	ListStudentAppointments(ctx context.Context, actor *models.JWTClaims, studentID string, query dto.AppointmentQuery) ([]dto.AppointmentView, error)
	InstructorAgenda(ctx context.Context, actor *models.JWTClaims, instructorID string, query dto.AppointmentQuery) (*export.Dataset, error)
}

// AppointmentHandler wires the booking workflow to HTTP routes.
type AppointmentHandler struct {
	appointments appointmentService
}

// NewAppointmentHandler constructs a new AppointmentHandler.
func NewAppointmentHandler(appointments appointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// Create godoc
// @Summary Book a lesson
// @Description Creates a PENDING appointment after checking the instructor's availability and existing bookings.
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAppointmentRequest true "Appointment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appointment payload"))
		return
	}
	view, err := h.appointments.CreateAppointment(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Get godoc
// @Summary Get appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	view, err := h.appointments.GetAppointment(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Transition godoc
// @Summary Change appointment status
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body dto.TransitionAppointmentRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/status [patch]
func (h *AppointmentHandler) Transition(c *gin.Context) {
	var req dto.TransitionAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	result, err := h.appointments.TransitionAppointment(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ListForInstructor godoc
// @Summary List instructor appointments
// @Tags Appointments
// @Produce json
// @Param id path string true "Instructor ID"
// @Param status query string false "Comma separated statuses"
// @Param from query string false "Start time lower bound (RFC3339)"
// @Param to query string false "Start time upper bound (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/appointments [get]
func (h *AppointmentHandler) ListForInstructor(c *gin.Context) {
	query, err := appointmentQueryFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.appointments.ListInstructorAppointments(c.Request.Context(), claimsFromContext(c), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// ListForStudent godoc
// @Summary List student appointments
// @Tags Appointments
// @Produce json
// @Param id path string true "Student ID"
// @Param status query string false "Comma separated statuses"
// @Param from query string false "Start time lower bound (RFC3339)"
// @Param to query string false "Start time upper bound (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/appointments [get]
func (h *AppointmentHandler) ListForStudent(c *gin.Context) {
	query, err := appointmentQueryFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.appointments.ListStudentAppointments(c.Request.Context(), claimsFromContext(c), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// ExportAgenda godoc
// @Summary Download an instructor agenda
// @Tags Appointments
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Instructor ID"
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Comma separated statuses"
// @Param from query string false "Start time lower bound (RFC3339)"
// @Param to query string false "Start time upper bound (RFC3339)"
// @Success 200 {file} file
// @Router /instructors/{id}/agenda [get]
func (h *AppointmentHandler) ExportAgenda(c *gin.Context) {
	renderer, err := export.ForFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error()))
		return
	}
	query, err := appointmentQueryFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	dataset, err := h.appointments.InstructorAgenda(c.Request.Context(), claimsFromContext(c), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	body, err := renderer.Render(*dataset)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render agenda"))
		return
	}

	filename := fmt.Sprintf("agenda-%s-%s.%s", c.Param("id"), time.Now().UTC().Format("20060102"), renderer.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, renderer.ContentType(), body)
}
