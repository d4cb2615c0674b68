package handlers

import (
	"errors"
	"strconv"
	"time"

	"klinika-care/internal/core/domain"
	"klinika-care/internal/core/services"
	"klinika-care/internal/pkg/pagination"
	"klinika-care/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AppointmentHandler handles appointment endpoints
type AppointmentHandler struct {
	appointmentService *services.AppointmentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointmentService *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentService: appointmentService,
	}
}

// Book creates a scheduled appointment
// @Summary Book appointment
// @Description Book a scheduled appointment with a doctor
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.BookRequest true "Appointment data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.BookRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	appointment, err := h.appointmentService.Book(c.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, "doctor_id and appointment_date are required")
		case errors.Is(err, services.ErrAppointmentPastDate):
			return response.BadRequest(c, "Appointment date cannot be in the past")
		case errors.Is(err, services.ErrDoctorNotFound):
			return response.NotFound(c, "Doctor not found")
		default:
			return response.InternalServerError(c, "Failed to book appointment")
		}
	}
	return response.Created(c, "Appointment booked", appointment)
}

// CheckIn confirms arrival and issues a queue number
// @Summary Check in
// @Description Check in for a scheduled appointment and receive a queue number
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /appointments/{id}/check-in [post]
func (h *AppointmentHandler) CheckIn(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	appointmentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid appointment ID")
	}

	result, err := h.appointmentService.CheckIn(uint(appointmentID), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppointmentNotFound):
			return response.NotFound(c, "Appointment not found")
		case errors.Is(err, services.ErrAppointmentNotYours):
			return response.Forbidden(c, "Appointment does not belong to you")
		case errors.Is(err, services.ErrCheckInWrongDay):
			return response.UnprocessableEntity(c, "Check-in is only allowed on the appointment date")
		case errors.Is(err, domain.ErrInvalidTransition):
			return response.UnprocessableEntity(c, "Appointment cannot be checked in")
		case errors.Is(err, domain.ErrDuplicateActiveEntry):
			return response.Conflict(c, "You already have an active queue number today")
		default:
			return response.InternalServerError(c, "Failed to check in")
		}
	}
	return response.Success(c, "Checked in", result)
}

// CreateWalkin registers a walk-in patient
// @Summary Register walk-in
// @Description Create a same-day walk-in appointment and issue a queue number
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.WalkinRequest true "Walk-in data"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/queue/walkin [post]
func (h *AppointmentHandler) CreateWalkin(c *fiber.Ctx) error {
	var req services.WalkinRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.PatientID == 0 {
		return response.BadRequest(c, "patient_id is required")
	}

	result, err := h.appointmentService.CreateWalkin(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPatientNotFound):
			return response.NotFound(c, "Patient not found")
		case errors.Is(err, services.ErrDoctorNotFound):
			return response.NotFound(c, "Doctor not found")
		case errors.Is(err, domain.ErrDuplicateActiveEntry):
			return response.Conflict(c, "Patient already has an active queue number today")
		default:
			return response.InternalServerError(c, "Failed to register walk-in")
		}
	}
	return response.Created(c, "Walk-in registered", result)
}

// Cancel cancels a scheduled appointment
// @Summary Cancel appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	appointmentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid appointment ID")
	}

	appointment, err := h.appointmentService.Cancel(uint(appointmentID), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppointmentNotFound):
			return response.NotFound(c, "Appointment not found")
		case errors.Is(err, services.ErrAppointmentNotYours):
			return response.Forbidden(c, "Appointment does not belong to you")
		case errors.Is(err, domain.ErrInvalidTransition):
			return response.UnprocessableEntity(c, "Only scheduled appointments can be cancelled")
		default:
			return response.InternalServerError(c, "Failed to cancel appointment")
		}
	}
	return response.Success(c, "Appointment cancelled", appointment)
}

// ListMine lists the patient's own appointments
// @Summary My appointments
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /appointments [get]
func (h *AppointmentHandler) ListMine(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	params := pagination.GetParams(c)
	appointments, total, err := h.appointmentService.ListMine(userID, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list appointments")
	}
	return response.Success(c, "Appointments retrieved", pagination.NewResponse(appointments, params, total))
}

// ListDoctorDay lists a doctor's appointments for one day
// @Summary Doctor's day schedule
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Response
// @Router /appointments/schedule [get]
func (h *AppointmentHandler) ListDoctorDay(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return response.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		}
		date = parsed
	}

	appointments, err := h.appointmentService.ListDoctorDay(userID, date)
	if err != nil {
		return response.InternalServerError(c, "Failed to list schedule")
	}
	return response.Success(c, "Schedule retrieved", appointments)
}
