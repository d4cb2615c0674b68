package repositories

import (
	"time"

	"klinika-care/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// appointmentRepository implements AppointmentRepository with GORM
type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

// Create creates a new appointment
func (r *appointmentRepository) Create(appt *models.Appointment) error {
	return r.db.Create(appt).Error
}

// GetByID returns an appointment by ID with relations
func (r *appointmentRepository) GetByID(id uint) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.
		Preload("Patient").
		Preload("Doctor").
		First(&appt, id).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// Update updates an appointment
func (r *appointmentRepository) Update(appt *models.Appointment) error {
	return r.db.Save(appt).Error
}

// UpdateStatus applies updates while status is one of fromStatuses (compare-and-set)
func (r *appointmentRepository) UpdateStatus(id uint, fromStatuses []string, updates map[string]interface{}) (int64, error) {
	result := r.db.Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// ListByPatient returns a patient's appointments, newest first
func (r *appointmentRepository) ListByPatient(patientID uint, offset, limit int) ([]models.Appointment, int64, error) {
	var appts []models.Appointment
	var total int64

	query := r.db.Model(&models.Appointment{}).Where("patient_id = ?", patientID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.
		Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("appointment_date DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&appts).Error
	return appts, total, err
}

// ListByDoctorAndDate returns a doctor's appointments for a day
func (r *appointmentRepository) ListByDoctorAndDate(doctorID uint, date time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.
		Preload("Patient").
		Where("doctor_id = ? AND appointment_date = ?", doctorID, date).
		Order("id ASC").
		Find(&appts).Error
	return appts, err
}
