package handlers

import (
	"errors"
	"strconv"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/core/domain"
	"klinika-care/internal/core/services"
	"klinika-care/internal/pkg/pagination"
	"klinika-care/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// MedicineHandler handles the medicine catalog and stock ledger endpoints
type MedicineHandler struct {
	stockService *services.StockService
}

// NewMedicineHandler creates a new medicine handler
func NewMedicineHandler(stockService *services.StockService) *MedicineHandler {
	return &MedicineHandler{
		stockService: stockService,
	}
}

// Create adds a medicine to the catalog
// @Summary Create medicine
// @Description Add a medicine; initial stock arrives as a restock movement
// @Tags Medicines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateMedicineRequest true "Medicine data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /medicines [post]
func (h *MedicineHandler) Create(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.CreateMedicineRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	medicine, err := h.stockService.CreateMedicine(&req, userID)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return response.BadRequest(c, "name, unit and a non-negative price are required")
		}
		return response.InternalServerError(c, "Failed to create medicine")
	}
	return response.Created(c, "Medicine created", medicine)
}

// List returns the catalog
// @Summary List medicines
// @Tags Medicines
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name search"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /medicines [get]
func (h *MedicineHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	medicines, total, err := h.stockService.ListMedicines(params.Offset, params.Limit, c.Query("search"))
	if err != nil {
		return response.InternalServerError(c, "Failed to list medicines")
	}
	return response.Success(c, "Medicines retrieved", pagination.NewResponse(medicines, params, total))
}

// GetByID returns one medicine
// @Summary Get medicine
// @Tags Medicines
// @Produce json
// @Security BearerAuth
// @Param id path int true "Medicine ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /medicines/{id} [get]
func (h *MedicineHandler) GetByID(c *fiber.Ctx) error {
	medicineID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid medicine ID")
	}

	medicine, err := h.stockService.GetMedicine(uint(medicineID))
	if err != nil {
		return response.NotFound(c, "Medicine not found")
	}
	return response.Success(c, "Medicine retrieved", medicine)
}

// Update modifies catalog fields
// @Summary Update medicine
// @Description Update catalog fields; stock itself only moves through restock/adjust
// @Tags Medicines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Medicine ID"
// @Param body body services.UpdateMedicineRequest true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /medicines/{id} [put]
func (h *MedicineHandler) Update(c *fiber.Ctx) error {
	medicineID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid medicine ID")
	}

	var req services.UpdateMedicineRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	medicine, err := h.stockService.UpdateMedicine(uint(medicineID), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMedicineNotFound):
			return response.NotFound(c, "Medicine not found")
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, "Price must be non-negative")
		default:
			return response.InternalServerError(c, "Failed to update medicine")
		}
	}
	return response.Success(c, "Medicine updated", medicine)
}

// Delete removes a medicine from the catalog
// @Summary Delete medicine
// @Tags Medicines
// @Produce json
// @Security BearerAuth
// @Param id path int true "Medicine ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /medicines/{id} [delete]
func (h *MedicineHandler) Delete(c *fiber.Ctx) error {
	medicineID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid medicine ID")
	}

	if err := h.stockService.DeleteMedicine(uint(medicineID)); err != nil {
		if errors.Is(err, domain.ErrMedicineNotFound) {
			return response.NotFound(c, "Medicine not found")
		}
		return response.InternalServerError(c, "Failed to delete medicine")
	}
	return response.Success(c, "Medicine deleted", nil)
}

// StockAdjustRequest represents a manual stock movement
type StockAdjustRequest struct {
	Amount int `json:"amount"`
}

// Restock raises stock
// @Summary Restock medicine
// @Description Add stock with a restock ledger entry
// @Tags Medicines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Medicine ID"
// @Param body body StockAdjustRequest true "Amount to add"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /medicines/{id}/restock [post]
func (h *MedicineHandler) Restock(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	medicineID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid medicine ID")
	}

	var req StockAdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	medicine, err := h.stockService.Increment(uint(medicineID), req.Amount, models.StockReasonRestock, userID, nil)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, "Amount must be positive")
		case errors.Is(err, domain.ErrMedicineNotFound):
			return response.NotFound(c, "Medicine not found")
		default:
			return response.InternalServerError(c, "Failed to restock")
		}
	}
	return response.Success(c, "Stock added", medicine)
}

// Adjust lowers stock manually (expiry, damage, count corrections)
// @Summary Adjust stock down
// @Description Remove stock with an adjusted ledger entry
// @Tags Medicines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Medicine ID"
// @Param body body StockAdjustRequest true "Amount to remove"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /medicines/{id}/adjust [post]
func (h *MedicineHandler) Adjust(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	medicineID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid medicine ID")
	}

	var req StockAdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	medicine, err := h.stockService.Decrement(uint(medicineID), req.Amount, models.StockReasonAdjusted, userID, nil)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		switch {
		case errors.Is(err, domain.ErrValidation):
			return response.BadRequest(c, "Amount must be positive")
		case errors.Is(err, domain.ErrMedicineNotFound):
			return response.NotFound(c, "Medicine not found")
		case errors.As(err, &stockErr):
			return response.UnprocessableEntity(c, stockErr.Error())
		default:
			return response.InternalServerError(c, "Failed to adjust stock")
		}
	}
	return response.Success(c, "Stock adjusted", medicine)
}

// LowStock lists medicines at or below minimum stock
// @Summary Low stock medicines
// @Tags Medicines
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /medicines/low-stock [get]
func (h *MedicineHandler) LowStock(c *fiber.Ctx) error {
	medicines, err := h.stockService.GetLowStock()
	if err != nil {
		return response.InternalServerError(c, "Failed to list low stock medicines")
	}
	return response.Success(c, "Low stock medicines retrieved", medicines)
}

// History returns the movement ledger for a medicine
// @Summary Stock history
// @Tags Medicines
// @Produce json
// @Security BearerAuth
// @Param id path int true "Medicine ID"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /medicines/{id}/history [get]
func (h *MedicineHandler) History(c *fiber.Ctx) error {
	medicineID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid medicine ID")
	}

	params := pagination.GetParams(c)
	history, total, err := h.stockService.GetHistory(uint(medicineID), params.Offset, params.Limit)
	if err != nil {
		if errors.Is(err, domain.ErrMedicineNotFound) {
			return response.NotFound(c, "Medicine not found")
		}
		return response.InternalServerError(c, "Failed to get stock history")
	}
	return response.Success(c, "Stock history retrieved", pagination.NewResponse(history, params, total))
}
