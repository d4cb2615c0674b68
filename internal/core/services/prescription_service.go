package services

import (
	"errors"
	"log"
	"time"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/adapters/persistence/repositories"
	"klinika-care/internal/core/domain"
	"klinika-care/internal/pkg/keylock"
)

// Prescription errors
var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrRejectionReasonEmpty = errors.New("rejection reason is required")
)

// PrescriptionService runs the dispensing workflow: a doctor writes the
// prescription, a pharmacist verifies or rejects it, and completion deducts
// stock atomically across every item.
type PrescriptionService struct {
	prescriptionRepo repositories.PrescriptionRepository
	medicineRepo     repositories.MedicineRepository
	appointmentRepo  repositories.AppointmentRepository
	locks            *keylock.KeyedMutex
}

// NewPrescriptionService creates a new prescription service
func NewPrescriptionService(
	prescriptionRepo repositories.PrescriptionRepository,
	medicineRepo repositories.MedicineRepository,
	appointmentRepo repositories.AppointmentRepository,
	locks *keylock.KeyedMutex,
) *PrescriptionService {
	return &PrescriptionService{
		prescriptionRepo: prescriptionRepo,
		medicineRepo:     medicineRepo,
		appointmentRepo:  appointmentRepo,
		locks:            locks,
	}
}

// ============================================================
// Create — doctor writes the prescription
// ============================================================

// PrescriptionItemRequest represents one line of a new prescription
type PrescriptionItemRequest struct {
	MedicineID uint   `json:"medicine_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,min=1"`
	Dosage     string `json:"dosage"`
	Frequency  string `json:"frequency"`
	Duration   string `json:"duration"`
}

// CreatePrescriptionRequest represents a doctor's new prescription
type CreatePrescriptionRequest struct {
	AppointmentID uint                      `json:"appointment_id" validate:"required"`
	Items         []PrescriptionItemRequest `json:"items" validate:"required,min=1"`
}

// Create records a new prescription in pending status. Each item snapshots
// the medicine name at this moment. No stock moves here: availability is
// judged later by the pharmacist.
func (s *PrescriptionService) Create(doctorID uint, req *CreatePrescriptionRequest) (*models.Prescription, error) {
	if req.AppointmentID == 0 || len(req.Items) == 0 {
		return nil, domain.ErrValidation
	}
	for _, item := range req.Items {
		if item.MedicineID == 0 || item.Quantity <= 0 {
			return nil, domain.ErrValidation
		}
	}

	appointment, err := s.appointmentRepo.GetByID(req.AppointmentID)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}

	ids := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.MedicineID)
	}
	medicines, err := s.medicineRepo.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Medicine, len(medicines))
	for i := range medicines {
		byID[medicines[i].ID] = &medicines[i]
	}

	prescription := &models.Prescription{
		AppointmentID: req.AppointmentID,
		PatientID:     appointment.PatientID,
		DoctorID:      doctorID,
		Status:        models.PrescriptionStatusPending,
	}
	for _, item := range req.Items {
		medicine, ok := byID[item.MedicineID]
		if !ok {
			return nil, domain.ErrMedicineNotFound
		}
		prescription.Items = append(prescription.Items, models.PrescriptionItem{
			MedicineID:   item.MedicineID,
			MedicineName: medicine.Name,
			Quantity:     item.Quantity,
			Dosage:       item.Dosage,
			Frequency:    item.Frequency,
			Duration:     item.Duration,
		})
	}

	if err := s.prescriptionRepo.Create(prescription); err != nil {
		return nil, err
	}

	log.Printf("✅ Prescription %d created by doctor %d (%d items)",
		prescription.ID, doctorID, len(prescription.Items))
	return s.prescriptionRepo.GetByID(prescription.ID)
}

// ============================================================
// Verify / Reject — pharmacist triage
// ============================================================

// Verify advances a pending prescription to verified after an availability
// check against current stock. The check is advisory: stock is not reserved,
// the hard guarantee comes at completion. Total price is computed here from
// current medicine prices.
func (s *PrescriptionService) Verify(prescriptionID uint, pharmacistID uint) (*models.Prescription, error) {
	prescription, err := s.prescriptionRepo.GetByID(prescriptionID)
	if err != nil {
		return nil, ErrPrescriptionNotFound
	}
	if prescription.Status != models.PrescriptionStatusPending {
		return nil, domain.ErrInvalidTransition
	}

	total := 0.0
	for _, item := range prescription.Items {
		medicine, err := s.medicineRepo.GetByID(item.MedicineID)
		if err != nil {
			return nil, domain.ErrMedicineNotFound
		}
		if medicine.Stock < item.Quantity {
			return nil, &domain.InsufficientStockError{
				MedicineID:   medicine.ID,
				MedicineName: medicine.Name,
				Requested:    item.Quantity,
				Available:    medicine.Stock,
			}
		}
		total += medicine.Price * float64(item.Quantity)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":      models.PrescriptionStatusVerified,
		"total_price": total,
		"verified_by": pharmacistID,
		"decided_at":  now,
	}
	rows, err := s.prescriptionRepo.UpdateStatus(prescriptionID, models.PrescriptionStatusPending, updates)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrInvalidTransition
	}

	log.Printf("✅ Prescription %d verified by pharmacist %d (total %.2f)", prescriptionID, pharmacistID, total)
	return s.prescriptionRepo.GetByID(prescriptionID)
}

// Reject moves a pending prescription to rejected with a mandatory reason.
func (s *PrescriptionService) Reject(prescriptionID uint, pharmacistID uint, reason string) (*models.Prescription, error) {
	if reason == "" {
		return nil, ErrRejectionReasonEmpty
	}

	prescription, err := s.prescriptionRepo.GetByID(prescriptionID)
	if err != nil {
		return nil, ErrPrescriptionNotFound
	}
	if prescription.Status != models.PrescriptionStatusPending {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":           models.PrescriptionStatusRejected,
		"rejection_reason": reason,
		"verified_by":      pharmacistID,
		"decided_at":       now,
	}
	rows, err := s.prescriptionRepo.UpdateStatus(prescriptionID, models.PrescriptionStatusPending, updates)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrInvalidTransition
	}

	log.Printf("✅ Prescription %d rejected by pharmacist %d: %s", prescriptionID, pharmacistID, reason)
	return s.prescriptionRepo.GetByID(prescriptionID)
}

// ============================================================
// Complete — hand over medicines and deduct stock
// ============================================================

// Complete dispenses a verified prescription. Every medicine involved is
// locked in sorted key order, then the status change, all stock deductions
// and all ledger rows commit in one transaction. If any single item lacks
// stock the whole operation fails and nothing is deducted.
func (s *PrescriptionService) Complete(prescriptionID uint, pharmacistID uint) (*models.Prescription, error) {
	prescription, err := s.prescriptionRepo.GetByID(prescriptionID)
	if err != nil {
		return nil, ErrPrescriptionNotFound
	}
	if prescription.Status != models.PrescriptionStatusVerified {
		return nil, domain.ErrInvalidTransition
	}

	keys := make([]string, 0, len(prescription.Items))
	for _, item := range prescription.Items {
		keys = append(keys, medicineKey(item.MedicineID))
	}
	unlock := s.locks.LockMany(keys...)
	defer unlock()

	pid := prescription.ID
	deductions := make([]models.StockHistory, 0, len(prescription.Items))
	for _, item := range prescription.Items {
		deductions = append(deductions, models.StockHistory{
			MedicineID:     item.MedicineID,
			ChangeAmount:   -item.Quantity,
			Reason:         models.StockReasonDispensed,
			UserID:         pharmacistID,
			PrescriptionID: &pid,
		})
	}

	updates := map[string]interface{}{
		"status":       models.PrescriptionStatusCompleted,
		"completed_by": pharmacistID,
	}
	if err := s.prescriptionRepo.CompleteWithStock(prescriptionID, updates, deductions); err != nil {
		return nil, err
	}

	log.Printf("✅ Prescription %d completed by pharmacist %d, stock deducted for %d items",
		prescriptionID, pharmacistID, len(deductions))
	return s.prescriptionRepo.GetByID(prescriptionID)
}

// ============================================================
// Read side
// ============================================================

// GetByID returns one prescription with its items
func (s *PrescriptionService) GetByID(prescriptionID uint) (*models.Prescription, error) {
	prescription, err := s.prescriptionRepo.GetByID(prescriptionID)
	if err != nil {
		return nil, ErrPrescriptionNotFound
	}
	return prescription, nil
}

// List returns prescriptions filtered by status and/or patient.
func (s *PrescriptionService) List(status string, patientID uint, offset, limit int) ([]models.Prescription, int64, error) {
	return s.prescriptionRepo.List(status, patientID, offset, limit)
}
