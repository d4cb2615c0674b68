package repositories

import (
	"context"
	"time"

	"klinika-care/internal/adapters/persistence/models"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, offset, limit int, role string) ([]*models.User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}

// QueueRepository defines queue entry persistence. Write paths assume the
// caller holds the per-day keyed lock; the compare-and-set update is the
// second line of defense against lost races.
type QueueRepository interface {
	CreateEntry(entry *models.QueueEntry) error
	GetEntryByID(id uint) (*models.QueueEntry, error)
	GetMaxQueueNumber(serviceDate time.Time) (int, error)
	// GetActiveEntryByPatient returns (nil, nil) when the patient has no
	// waiting/called entry for the day.
	GetActiveEntryByPatient(patientID uint, serviceDate time.Time) (*models.QueueEntry, error)
	// GetNextWaitingEntry returns the waiting entry with the smallest queue
	// number, optionally scoped to a doctor. (nil, nil) when none.
	GetNextWaitingEntry(serviceDate time.Time, doctorID *uint) (*models.QueueEntry, error)
	// UpdateEntryStatus applies updates only while the entry status is one of
	// fromStatuses, returning the number of rows changed.
	UpdateEntryStatus(id uint, fromStatuses []string, updates map[string]interface{}) (int64, error)
	GetEntriesByDate(serviceDate time.Time) ([]models.QueueEntry, error)
	// GetCurrentCalled returns (nil, nil) when no entry is in called status.
	GetCurrentCalled(serviceDate time.Time) (*models.QueueEntry, error)
	CountByDate(serviceDate time.Time) (int64, error)
	// GetStaleActiveEntries lists waiting/called entries whose service date is
	// before the given day (end-of-day closeout).
	GetStaleActiveEntries(before time.Time) ([]models.QueueEntry, error)
}

// AppointmentRepository defines appointment persistence
type AppointmentRepository interface {
	Create(appt *models.Appointment) error
	GetByID(id uint) (*models.Appointment, error)
	Update(appt *models.Appointment) error
	// UpdateStatus applies updates only while appointment status is one of
	// fromStatuses, returning rows changed.
	UpdateStatus(id uint, fromStatuses []string, updates map[string]interface{}) (int64, error)
	ListByPatient(patientID uint, offset, limit int) ([]models.Appointment, int64, error)
	ListByDoctorAndDate(doctorID uint, date time.Time) ([]models.Appointment, error)
}

// MedicineRepository defines medicine + stock ledger persistence.
// AdjustStock is the only write path for Medicine.Stock.
type MedicineRepository interface {
	Create(m *models.Medicine) error
	GetByID(id uint) (*models.Medicine, error)
	GetByIDs(ids []uint) ([]models.Medicine, error)
	List(offset, limit int, search string) ([]models.Medicine, int64, error)
	Update(m *models.Medicine) error
	Delete(id uint) error
	GetLowStock() ([]models.Medicine, error)
	// AdjustStock atomically applies record.ChangeAmount to the medicine stock
	// and appends the history record in one transaction. A decrement that
	// would drive stock negative fails with domain.InsufficientStockError and
	// changes nothing.
	AdjustStock(record *models.StockHistory) (*models.Medicine, error)
	GetHistory(medicineID uint, offset, limit int) ([]models.StockHistory, int64, error)
}

// PrescriptionRepository defines prescription persistence
type PrescriptionRepository interface {
	Create(p *models.Prescription) error
	GetByID(id uint) (*models.Prescription, error)
	List(status string, patientID uint, offset, limit int) ([]models.Prescription, int64, error)
	// UpdateStatus applies updates only while prescription status equals
	// fromStatus, returning rows changed.
	UpdateStatus(id uint, fromStatus string, updates map[string]interface{}) (int64, error)
	// CompleteWithStock transitions verified→completed and applies every stock
	// deduction plus its history record in a single transaction. Any failing
	// deduction aborts the whole operation with no partial state.
	CompleteWithStock(id uint, updates map[string]interface{}, deductions []models.StockHistory) error
	CountByStatusAndDate(date time.Time) (map[string]int64, error)
}
