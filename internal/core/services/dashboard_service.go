package services

import (
	"time"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/adapters/persistence/repositories"
)

// DashboardService aggregates the pharmacy and queue overview numbers
type DashboardService struct {
	prescriptionRepo repositories.PrescriptionRepository
	medicineRepo     repositories.MedicineRepository
	queueRepo        repositories.QueueRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	prescriptionRepo repositories.PrescriptionRepository,
	medicineRepo repositories.MedicineRepository,
	queueRepo repositories.QueueRepository,
) *DashboardService {
	return &DashboardService{
		prescriptionRepo: prescriptionRepo,
		medicineRepo:     medicineRepo,
		queueRepo:        queueRepo,
	}
}

// PharmacyDashboard represents today's pharmacy workload
type PharmacyDashboard struct {
	Date               string            `json:"date"`
	PrescriptionCounts map[string]int64  `json:"prescription_counts"`
	QueueTotal         int64             `json:"queue_total"`
	LowStockCount      int               `json:"low_stock_count"`
	LowStockMedicines  []models.Medicine `json:"low_stock_medicines"`
}

// GetPharmacyDashboard returns today's prescription counts per status, the
// queue total and the low stock list.
func (s *DashboardService) GetPharmacyDashboard() (*PharmacyDashboard, error) {
	today := NormalizeDate(time.Now())

	counts, err := s.prescriptionRepo.CountByStatusAndDate(today)
	if err != nil {
		return nil, err
	}

	queueTotal, err := s.queueRepo.CountByDate(today)
	if err != nil {
		return nil, err
	}

	lowStock, err := s.medicineRepo.GetLowStock()
	if err != nil {
		return nil, err
	}

	return &PharmacyDashboard{
		Date:               today.Format("2006-01-02"),
		PrescriptionCounts: counts,
		QueueTotal:         queueTotal,
		LowStockCount:      len(lowStock),
		LowStockMedicines:  lowStock,
	}, nil
}
