package repositories

import (
	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/core/domain"

	"gorm.io/gorm"
)

// medicineRepository implements MedicineRepository with GORM
type medicineRepository struct {
	db *gorm.DB
}

// NewMedicineRepository creates a new medicine repository
func NewMedicineRepository(db *gorm.DB) MedicineRepository {
	return &medicineRepository{db: db}
}

// Create creates a new medicine
func (r *medicineRepository) Create(m *models.Medicine) error {
	return r.db.Create(m).Error
}

// GetByID returns a medicine by ID
func (r *medicineRepository) GetByID(id uint) (*models.Medicine, error) {
	var m models.Medicine
	err := r.db.First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByIDs returns medicines matching the given IDs
func (r *medicineRepository) GetByIDs(ids []uint) ([]models.Medicine, error) {
	var medicines []models.Medicine
	err := r.db.Where("id IN ?", ids).Find(&medicines).Error
	return medicines, err
}

// List returns medicines with pagination, optionally filtered by name search
func (r *medicineRepository) List(offset, limit int, search string) ([]models.Medicine, int64, error) {
	var medicines []models.Medicine
	var total int64

	query := r.db.Model(&models.Medicine{})
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&medicines).Error
	return medicines, total, err
}

// Update updates medicine master data. Stock is deliberately excluded: only
// AdjustStock may change it.
func (r *medicineRepository) Update(m *models.Medicine) error {
	return r.db.Model(m).
		Select("Name", "Unit", "Price", "MinimumStock", "IsActive").
		Updates(m).Error
}

// Delete soft deletes a medicine
func (r *medicineRepository) Delete(id uint) error {
	return r.db.Delete(&models.Medicine{}, id).Error
}

// GetLowStock returns active medicines at or below their minimum stock
func (r *medicineRepository) GetLowStock() ([]models.Medicine, error) {
	var medicines []models.Medicine
	err := r.db.
		Where("is_active = ? AND stock <= minimum_stock", true).
		Order("stock ASC").
		Find(&medicines).Error
	return medicines, err
}

// AdjustStock applies record.ChangeAmount to the medicine stock and appends
// the history record in one transaction. The conditional UPDATE guarantees
// stock never goes negative even if the caller's lock was bypassed.
func (r *medicineRepository) AdjustStock(record *models.StockHistory) (*models.Medicine, error) {
	var updated models.Medicine

	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Medicine{}).
			Where("id = ? AND stock + ? >= 0", record.MedicineID, record.ChangeAmount).
			Update("stock", gorm.Expr("stock + ?", record.ChangeAmount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Either the medicine is missing or the decrement would go negative.
			var m models.Medicine
			if err := tx.First(&m, record.MedicineID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return domain.ErrMedicineNotFound
				}
				return err
			}
			return &domain.InsufficientStockError{
				MedicineID:   m.ID,
				MedicineName: m.Name,
				Requested:    -record.ChangeAmount,
				Available:    m.Stock,
			}
		}

		if err := tx.Create(record).Error; err != nil {
			return err
		}

		return tx.First(&updated, record.MedicineID).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetHistory returns the stock audit trail for a medicine, newest first
func (r *medicineRepository) GetHistory(medicineID uint, offset, limit int) ([]models.StockHistory, int64, error) {
	var records []models.StockHistory
	var total int64

	query := r.db.Model(&models.StockHistory{}).Where("medicine_id = ?", medicineID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.
		Preload("User").
		Where("medicine_id = ?", medicineID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error
	return records, total, err
}
