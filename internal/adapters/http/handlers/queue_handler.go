package handlers

import (
	"errors"
	"strconv"
	"time"

	"klinika-care/internal/core/domain"
	"klinika-care/internal/core/services"
	"klinika-care/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// QueueHandler handles the public queue board and patient-facing endpoints
type QueueHandler struct {
	queueService *services.QueueService
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queueService *services.QueueService) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
	}
}

// parseDateQuery reads ?date=YYYY-MM-DD, defaulting to today
func parseDateQuery(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", raw)
}

// ============================================================
// GET /api/v1/queue — today's queue board
// ============================================================

// GetState returns the queue board for a day
// @Summary Queue board
// @Description Get all queue entries, the number being served and the total for a day
// @Tags Queue
// @Produce json
// @Param date query string false "Service date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Response
// @Router /queue [get]
func (h *QueueHandler) GetState(c *fiber.Ctx) error {
	date, err := parseDateQuery(c)
	if err != nil {
		return response.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
	}

	state, err := h.queueService.GetState(date)
	if err != nil {
		return response.InternalServerError(c, "Failed to get queue state")
	}
	return response.Success(c, "Queue state retrieved", state)
}

// ============================================================
// GET /api/v1/queue/entries/:id — one entry
// ============================================================

// GetEntry returns one queue entry
// @Summary Get queue entry
// @Tags Queue
// @Produce json
// @Param id path int true "Queue entry ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /queue/entries/{id} [get]
func (h *QueueHandler) GetEntry(c *fiber.Ctx) error {
	entryID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid entry ID")
	}

	entry, err := h.queueService.GetEntryByID(uint(entryID))
	if err != nil {
		return response.NotFound(c, "Queue entry not found")
	}
	return response.Success(c, "Queue entry retrieved", entry)
}

// ============================================================
// Staff console — call-next / skip / complete
// ============================================================

// QueueAdminHandler handles the staff queue console endpoints
type QueueAdminHandler struct {
	queueService       *services.QueueService
	appointmentService *services.AppointmentService
}

// NewQueueAdminHandler creates a new staff queue handler
func NewQueueAdminHandler(queueService *services.QueueService, appointmentService *services.AppointmentService) *QueueAdminHandler {
	return &QueueAdminHandler{
		queueService:       queueService,
		appointmentService: appointmentService,
	}
}

// CallNextRequest represents a call-next request body
type CallNextRequest struct {
	DoctorID *uint `json:"doctor_id"`
}

// CallNext calls the next waiting patient
// @Summary Call next patient
// @Description Advance the lowest waiting queue number to called, optionally scoped to one doctor
// @Tags Queue Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CallNextRequest false "Optional doctor scope"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/queue/call-next [post]
func (h *QueueAdminHandler) CallNext(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CallNextRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	entry, err := h.queueService.CallNext(time.Now(), req.DoctorID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQueueEmpty):
			return response.NotFound(c, "No patients waiting")
		case errors.Is(err, domain.ErrConcurrencyConflict):
			return response.Conflict(c, "Queue changed while calling, please retry")
		default:
			return response.InternalServerError(c, "Failed to call next patient")
		}
	}
	return response.Success(c, "Patient called", entry)
}

// Skip marks an entry as no-show
// @Summary Skip queue entry
// @Description Mark a waiting or called entry as no-show
// @Tags Queue Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Queue entry ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/queue/entries/{id}/skip [post]
func (h *QueueAdminHandler) Skip(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	entryID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid entry ID")
	}

	entry, err := h.queueService.Skip(uint(entryID), userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQueueEntryNotFound):
			return response.NotFound(c, "Queue entry not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			return response.UnprocessableEntity(c, "Entry already finished")
		default:
			return response.InternalServerError(c, "Failed to skip entry")
		}
	}
	return response.Success(c, "Entry marked as no-show", entry)
}

// Complete closes a called entry
// @Summary Complete queue entry
// @Description Mark a called entry as completed after consultation
// @Tags Queue Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Queue entry ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /admin/queue/entries/{id}/complete [post]
func (h *QueueAdminHandler) Complete(c *fiber.Ctx) error {
	entryID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid entry ID")
	}

	entry, err := h.queueService.Complete(uint(entryID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQueueEntryNotFound):
			return response.NotFound(c, "Queue entry not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			return response.UnprocessableEntity(c, "Entry is not in called status")
		default:
			return response.InternalServerError(c, "Failed to complete entry")
		}
	}

	// Close the linked visit too. Walk-ins without a remaining appointment
	// simply skip this.
	if entry.AppointmentID != nil {
		_ = h.appointmentService.MarkCompleted(*entry.AppointmentID)
	}
	return response.Success(c, "Entry completed", entry)
}
