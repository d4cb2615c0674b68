package handlers

import (
	"errors"
	"strconv"

	"klinika-care/internal/core/domain"
	"klinika-care/internal/core/services"
	"klinika-care/internal/pkg/pagination"
	"klinika-care/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PrescriptionHandler handles prescription workflow endpoints
type PrescriptionHandler struct {
	prescriptionService *services.PrescriptionService
}

// NewPrescriptionHandler creates a new prescription handler
func NewPrescriptionHandler(prescriptionService *services.PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{
		prescriptionService: prescriptionService,
	}
}

// Create records a new prescription
// @Summary Create prescription
// @Description Doctor writes a prescription for an appointment
// @Tags Prescriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreatePrescriptionRequest true "Prescription data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /prescriptions [post]
func (h *PrescriptionHandler) Create(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.CreatePrescriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	prescription, err := h.prescriptionService.Create(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, "appointment_id and at least one item with positive quantity are required")
		case errors.Is(err, services.ErrAppointmentNotFound):
			return response.NotFound(c, "Appointment not found")
		case errors.Is(err, domain.ErrMedicineNotFound):
			return response.NotFound(c, "Medicine not found")
		default:
			return response.InternalServerError(c, "Failed to create prescription")
		}
	}
	return response.Created(c, "Prescription created", prescription)
}

// GetByID returns one prescription
// @Summary Get prescription
// @Tags Prescriptions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prescription ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /prescriptions/{id} [get]
func (h *PrescriptionHandler) GetByID(c *fiber.Ctx) error {
	prescriptionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid prescription ID")
	}

	prescription, err := h.prescriptionService.GetByID(uint(prescriptionID))
	if err != nil {
		return response.NotFound(c, "Prescription not found")
	}
	return response.Success(c, "Prescription retrieved", prescription)
}

// List returns prescriptions filtered by status and patient
// @Summary List prescriptions
// @Tags Prescriptions
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param patient_id query int false "Filter by patient"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /prescriptions [get]
func (h *PrescriptionHandler) List(c *fiber.Ctx) error {
	status := c.Query("status")
	patientID, _ := strconv.ParseUint(c.Query("patient_id", "0"), 10, 32)

	params := pagination.GetParams(c)
	prescriptions, total, err := h.prescriptionService.List(status, uint(patientID), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list prescriptions")
	}
	return response.Success(c, "Prescriptions retrieved", pagination.NewResponse(prescriptions, params, total))
}

// Verify advances a pending prescription to verified
// @Summary Verify prescription
// @Description Pharmacist verifies availability and prices the prescription
// @Tags Prescriptions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prescription ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /prescriptions/{id}/verify [post]
func (h *PrescriptionHandler) Verify(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	prescriptionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid prescription ID")
	}

	prescription, err := h.prescriptionService.Verify(uint(prescriptionID), userID)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		switch {
		case errors.Is(err, services.ErrPrescriptionNotFound):
			return response.NotFound(c, "Prescription not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			return response.UnprocessableEntity(c, "Only pending prescriptions can be verified")
		case errors.As(err, &stockErr):
			return response.UnprocessableEntity(c, stockErr.Error())
		case errors.Is(err, domain.ErrMedicineNotFound):
			return response.NotFound(c, "Medicine not found")
		default:
			return response.InternalServerError(c, "Failed to verify prescription")
		}
	}
	return response.Success(c, "Prescription verified", prescription)
}

// RejectRequest represents a rejection body
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Reject rejects a pending prescription
// @Summary Reject prescription
// @Description Pharmacist rejects a pending prescription with a reason
// @Tags Prescriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prescription ID"
// @Param body body RejectRequest true "Rejection reason"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /prescriptions/{id}/reject [post]
func (h *PrescriptionHandler) Reject(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	prescriptionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid prescription ID")
	}

	var req RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	prescription, err := h.prescriptionService.Reject(uint(prescriptionID), userID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRejectionReasonEmpty):
			return response.BadRequest(c, "Rejection reason is required")
		case errors.Is(err, services.ErrPrescriptionNotFound):
			return response.NotFound(c, "Prescription not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			return response.UnprocessableEntity(c, "Only pending prescriptions can be rejected")
		default:
			return response.InternalServerError(c, "Failed to reject prescription")
		}
	}
	return response.Success(c, "Prescription rejected", prescription)
}

// Complete dispenses a verified prescription and deducts stock
// @Summary Complete prescription
// @Description Dispense medicines, deducting stock for every item atomically
// @Tags Prescriptions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Prescription ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /prescriptions/{id}/complete [post]
func (h *PrescriptionHandler) Complete(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	prescriptionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid prescription ID")
	}

	prescription, err := h.prescriptionService.Complete(uint(prescriptionID), userID)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		switch {
		case errors.Is(err, services.ErrPrescriptionNotFound):
			return response.NotFound(c, "Prescription not found")
		case errors.Is(err, domain.ErrInvalidTransition):
			return response.UnprocessableEntity(c, "Only verified prescriptions can be completed")
		case errors.As(err, &stockErr):
			return response.UnprocessableEntity(c, stockErr.Error())
		default:
			return response.InternalServerError(c, "Failed to complete prescription")
		}
	}
	return response.Success(c, "Prescription completed", prescription)
}
