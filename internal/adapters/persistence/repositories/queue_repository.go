package repositories

import (
	"time"

	"klinika-care/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// queueRepository implements QueueRepository with GORM
type queueRepository struct {
	db *gorm.DB
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db *gorm.DB) QueueRepository {
	return &queueRepository{db: db}
}

// CreateEntry creates a new queue entry
func (r *queueRepository) CreateEntry(entry *models.QueueEntry) error {
	return r.db.Create(entry).Error
}

// GetEntryByID returns an entry by ID with relations
func (r *queueRepository) GetEntryByID(id uint) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := r.db.
		Preload("Patient").
		Preload("Appointment").
		Preload("Doctor").
		First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetMaxQueueNumber returns the highest queue number issued for a day (0 when none)
func (r *queueRepository) GetMaxQueueNumber(serviceDate time.Time) (int, error) {
	var max int
	err := r.db.Model(&models.QueueEntry{}).
		Where("service_date = ?", serviceDate).
		Select("COALESCE(MAX(queue_number), 0)").
		Scan(&max).Error
	return max, err
}

// GetActiveEntryByPatient returns the patient's waiting/called entry for a day
func (r *queueRepository) GetActiveEntryByPatient(patientID uint, serviceDate time.Time) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := r.db.
		Where("patient_id = ? AND service_date = ? AND status IN ?",
			patientID, serviceDate, models.QueueActiveStatuses).
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetNextWaitingEntry returns the waiting entry with the smallest queue number
func (r *queueRepository) GetNextWaitingEntry(serviceDate time.Time, doctorID *uint) (*models.QueueEntry, error) {
	query := r.db.
		Preload("Patient").
		Preload("Appointment").
		Where("service_date = ? AND status = ?", serviceDate, models.QueueStatusWaiting)
	if doctorID != nil {
		query = query.Where("doctor_id = ?", *doctorID)
	}

	var entry models.QueueEntry
	err := query.Order("queue_number ASC").First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateEntryStatus applies updates while status is one of fromStatuses (compare-and-set)
func (r *queueRepository) UpdateEntryStatus(id uint, fromStatuses []string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&models.QueueEntry{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// GetEntriesByDate returns all entries for a day in queue number order
func (r *queueRepository) GetEntriesByDate(serviceDate time.Time) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := r.db.
		Preload("Patient").
		Preload("Appointment").
		Where("service_date = ?", serviceDate).
		Order("queue_number ASC").
		Find(&entries).Error
	return entries, err
}

// GetCurrentCalled returns the entry currently in called status for a day
func (r *queueRepository) GetCurrentCalled(serviceDate time.Time) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := r.db.
		Preload("Patient").
		Where("service_date = ? AND status = ?", serviceDate, models.QueueStatusCalled).
		Order("called_at DESC").
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CountByDate counts entries issued for a day
func (r *queueRepository) CountByDate(serviceDate time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.QueueEntry{}).
		Where("service_date = ?", serviceDate).
		Count(&count).Error
	return count, err
}

// GetStaleActiveEntries returns waiting/called entries from before a day
func (r *queueRepository) GetStaleActiveEntries(before time.Time) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := r.db.
		Where("service_date < ? AND status IN ?", before, models.QueueActiveStatuses).
		Order("service_date ASC, queue_number ASC").
		Find(&entries).Error
	return entries, err
}
