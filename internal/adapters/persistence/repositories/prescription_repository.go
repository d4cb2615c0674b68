package repositories

import (
	"time"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/core/domain"

	"gorm.io/gorm"
)

// prescriptionRepository implements PrescriptionRepository with GORM
type prescriptionRepository struct {
	db *gorm.DB
}

// NewPrescriptionRepository creates a new prescription repository
func NewPrescriptionRepository(db *gorm.DB) PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

// Create creates a prescription together with its items
func (r *prescriptionRepository) Create(p *models.Prescription) error {
	return r.db.Create(p).Error
}

// GetByID returns a prescription with items and relations
func (r *prescriptionRepository) GetByID(id uint) (*models.Prescription, error) {
	var p models.Prescription
	err := r.db.
		Preload("Items").
		Preload("Patient").
		Preload("Doctor").
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns prescriptions with optional status/patient filters
func (r *prescriptionRepository) List(status string, patientID uint, offset, limit int) ([]models.Prescription, int64, error) {
	var prescriptions []models.Prescription
	var total int64

	query := r.db.Model(&models.Prescription{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if patientID != 0 {
		query = query.Where("patient_id = ?", patientID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Items").
		Preload("Patient").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&prescriptions).Error
	return prescriptions, total, err
}

// UpdateStatus applies updates while status equals fromStatus (compare-and-set)
func (r *prescriptionRepository) UpdateStatus(id uint, fromStatus string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&models.Prescription{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// CompleteWithStock transitions verified→completed and applies all stock
// deductions in one transaction. If any deduction would drive a stock
// negative the transaction rolls back entirely: no status change, no partial
// deductions, no orphan history rows.
func (r *prescriptionRepository) CompleteWithStock(id uint, updates map[string]interface{}, deductions []models.StockHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Prescription{}).
			Where("id = ? AND status = ?", id, models.PrescriptionStatusVerified).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrInvalidTransition
		}

		for i := range deductions {
			d := &deductions[i]
			res := tx.Model(&models.Medicine{}).
				Where("id = ? AND stock + ? >= 0", d.MedicineID, d.ChangeAmount).
				Update("stock", gorm.Expr("stock + ?", d.ChangeAmount))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var m models.Medicine
				if err := tx.First(&m, d.MedicineID).Error; err != nil {
					if err == gorm.ErrRecordNotFound {
						return domain.ErrMedicineNotFound
					}
					return err
				}
				return &domain.InsufficientStockError{
					MedicineID:   m.ID,
					MedicineName: m.Name,
					Requested:    -d.ChangeAmount,
					Available:    m.Stock,
				}
			}

			if err := tx.Create(d).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// CountByStatusAndDate returns prescription counts by status created on a day
func (r *prescriptionRepository) CountByStatusAndDate(date time.Time) (map[string]int64, error) {
	type result struct {
		Status string
		Count  int64
	}
	var results []result

	dayStart := date
	dayEnd := date.AddDate(0, 0, 1)

	err := r.db.Model(&models.Prescription{}).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Group("status").
		Find(&results).Error

	counts := map[string]int64{
		models.PrescriptionStatusPending:   0,
		models.PrescriptionStatusVerified:  0,
		models.PrescriptionStatusRejected:  0,
		models.PrescriptionStatusCompleted: 0,
	}
	for _, res := range results {
		counts[res.Status] = res.Count
	}
	return counts, err
}
