package services

import (
	"fmt"
	"log"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/adapters/persistence/repositories"
	"klinika-care/internal/core/domain"
	"klinika-care/internal/pkg/keylock"
)

// StockService owns the medicine catalog and its stock ledger. Stock only
// ever moves through Increment/Decrement so the history table accounts for
// every unit, and a per-medicine lock serializes concurrent adjustments.
type StockService struct {
	medicineRepo repositories.MedicineRepository
	locks        *keylock.KeyedMutex
}

// NewStockService creates a new stock service
func NewStockService(medicineRepo repositories.MedicineRepository, locks *keylock.KeyedMutex) *StockService {
	return &StockService{
		medicineRepo: medicineRepo,
		locks:        locks,
	}
}

func medicineKey(medicineID uint) string {
	return fmt.Sprintf("medicine:%d", medicineID)
}

// ============================================================
// Catalog
// ============================================================

// CreateMedicineRequest represents a new catalog entry
type CreateMedicineRequest struct {
	Name         string  `json:"name" validate:"required"`
	Unit         string  `json:"unit" validate:"required"`
	Price        float64 `json:"price" validate:"required"`
	MinimumStock int     `json:"minimum_stock"`
	InitialStock int     `json:"initial_stock"`
}

// CreateMedicine adds a medicine to the catalog. The row starts at zero and
// any initial stock arrives through a restock movement, so the ledger covers
// the full lifetime of every unit.
func (s *StockService) CreateMedicine(req *CreateMedicineRequest, operatorID uint) (*models.Medicine, error) {
	if req.Name == "" || req.Unit == "" || req.Price < 0 || req.InitialStock < 0 {
		return nil, domain.ErrValidation
	}

	medicine := &models.Medicine{
		Name:         req.Name,
		Stock:        0,
		Unit:         req.Unit,
		Price:        req.Price,
		MinimumStock: req.MinimumStock,
		IsActive:     true,
	}
	if err := s.medicineRepo.Create(medicine); err != nil {
		return nil, err
	}

	if req.InitialStock > 0 {
		updated, err := s.Increment(medicine.ID, req.InitialStock, models.StockReasonRestock, operatorID, nil)
		if err != nil {
			return nil, err
		}
		medicine = updated
	}

	log.Printf("✅ Medicine created: %s (stock %d %s)", medicine.Name, medicine.Stock, medicine.Unit)
	return medicine, nil
}

// UpdateMedicineRequest represents catalog field updates. Stock is absent on
// purpose: it moves only through restock/adjust movements.
type UpdateMedicineRequest struct {
	Name         *string  `json:"name"`
	Unit         *string  `json:"unit"`
	Price        *float64 `json:"price"`
	MinimumStock *int     `json:"minimum_stock"`
	IsActive     *bool    `json:"is_active"`
}

// UpdateMedicine updates catalog fields of a medicine.
func (s *StockService) UpdateMedicine(medicineID uint, req *UpdateMedicineRequest) (*models.Medicine, error) {
	medicine, err := s.medicineRepo.GetByID(medicineID)
	if err != nil {
		return nil, domain.ErrMedicineNotFound
	}

	if req.Name != nil {
		medicine.Name = *req.Name
	}
	if req.Unit != nil {
		medicine.Unit = *req.Unit
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, domain.ErrValidation
		}
		medicine.Price = *req.Price
	}
	if req.MinimumStock != nil {
		medicine.MinimumStock = *req.MinimumStock
	}
	if req.IsActive != nil {
		medicine.IsActive = *req.IsActive
	}

	if err := s.medicineRepo.Update(medicine); err != nil {
		return nil, err
	}
	return s.medicineRepo.GetByID(medicineID)
}

// DeleteMedicine soft-deletes a medicine from the catalog. History stays.
func (s *StockService) DeleteMedicine(medicineID uint) error {
	if _, err := s.medicineRepo.GetByID(medicineID); err != nil {
		return domain.ErrMedicineNotFound
	}
	return s.medicineRepo.Delete(medicineID)
}

// GetMedicine returns one medicine
func (s *StockService) GetMedicine(medicineID uint) (*models.Medicine, error) {
	medicine, err := s.medicineRepo.GetByID(medicineID)
	if err != nil {
		return nil, domain.ErrMedicineNotFound
	}
	return medicine, nil
}

// ListMedicines returns the catalog with optional name search
func (s *StockService) ListMedicines(offset, limit int, search string) ([]models.Medicine, int64, error) {
	return s.medicineRepo.List(offset, limit, search)
}

// GetLowStock lists active medicines at or below their minimum stock.
func (s *StockService) GetLowStock() ([]models.Medicine, error) {
	return s.medicineRepo.GetLowStock()
}

// ============================================================
// Ledger — the only stock write paths
// ============================================================

// Increment raises stock by amount and records the movement.
func (s *StockService) Increment(medicineID uint, amount int, reason string, operatorID uint, prescriptionID *uint) (*models.Medicine, error) {
	if amount <= 0 {
		return nil, domain.ErrValidation
	}
	return s.adjust(medicineID, amount, reason, operatorID, prescriptionID)
}

// Decrement lowers stock by amount and records the movement. Fails with
// InsufficientStockError when the result would go negative, leaving both the
// stock level and the history untouched.
func (s *StockService) Decrement(medicineID uint, amount int, reason string, operatorID uint, prescriptionID *uint) (*models.Medicine, error) {
	if amount <= 0 {
		return nil, domain.ErrValidation
	}
	return s.adjust(medicineID, -amount, reason, operatorID, prescriptionID)
}

func (s *StockService) adjust(medicineID uint, change int, reason string, operatorID uint, prescriptionID *uint) (*models.Medicine, error) {
	unlock := s.locks.Lock(medicineKey(medicineID))
	defer unlock()

	record := &models.StockHistory{
		MedicineID:     medicineID,
		ChangeAmount:   change,
		Reason:         reason,
		UserID:         operatorID,
		PrescriptionID: prescriptionID,
	}
	medicine, err := s.medicineRepo.AdjustStock(record)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Stock %+d for %s (%s), now %d", change, medicine.Name, reason, medicine.Stock)
	if medicine.IsLowStock() {
		log.Printf("⚠️ Low stock: %s at %d %s (minimum %d)",
			medicine.Name, medicine.Stock, medicine.Unit, medicine.MinimumStock)
	}
	return medicine, nil
}

// GetHistory returns the movement ledger for a medicine, newest first.
func (s *StockService) GetHistory(medicineID uint, offset, limit int) ([]models.StockHistory, int64, error) {
	if _, err := s.medicineRepo.GetByID(medicineID); err != nil {
		return nil, 0, domain.ErrMedicineNotFound
	}
	return s.medicineRepo.GetHistory(medicineID, offset, limit)
}

// ScanLowStock logs every low-stock medicine. Run by the morning cron so the
// pharmacist sees shortages before opening.
func (s *StockService) ScanLowStock() (int, error) {
	medicines, err := s.medicineRepo.GetLowStock()
	if err != nil {
		return 0, err
	}
	for _, m := range medicines {
		log.Printf("⚠️ Low stock: %s at %d %s (minimum %d)", m.Name, m.Stock, m.Unit, m.MinimumStock)
	}
	return len(medicines), nil
}
