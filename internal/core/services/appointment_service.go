package services

import (
	"context"
	"errors"
	"log"
	"time"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/adapters/persistence/repositories"
	"klinika-care/internal/core/domain"
)

// Appointment errors
var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentPastDate = errors.New("appointment date cannot be in the past")
	ErrAppointmentNotYours = errors.New("appointment does not belong to this patient")
	ErrCheckInWrongDay     = errors.New("check-in is only allowed on the appointment date")
)

// AppointmentService manages scheduled visits and their hand-off into the
// day's queue. Walk-ins get a same-day appointment record created on the fly
// so every queue entry can trace back to a visit.
type AppointmentService struct {
	appointmentRepo repositories.AppointmentRepository
	userRepo        repositories.UserRepository
	queueService    *QueueService
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	appointmentRepo repositories.AppointmentRepository,
	userRepo repositories.UserRepository,
	queueService *QueueService,
) *AppointmentService {
	return &AppointmentService{
		appointmentRepo: appointmentRepo,
		userRepo:        userRepo,
		queueService:    queueService,
	}
}

// BookRequest represents a scheduled appointment request
type BookRequest struct {
	DoctorID        uint   `json:"doctor_id" validate:"required"`
	AppointmentDate string `json:"appointment_date" validate:"required"` // YYYY-MM-DD
	Complaint       string `json:"complaint"`
}

// ============================================================
// Booking
// ============================================================

// Book creates a scheduled appointment for a patient with a doctor.
func (s *AppointmentService) Book(ctx context.Context, patientID uint, req *BookRequest) (*models.Appointment, error) {
	if req.DoctorID == 0 || req.AppointmentDate == "" {
		return nil, domain.ErrValidation
	}

	date, err := time.Parse("2006-01-02", req.AppointmentDate)
	if err != nil {
		return nil, domain.ErrValidation
	}
	if date.Before(NormalizeDate(time.Now())) {
		return nil, ErrAppointmentPastDate
	}

	doctor, err := s.userRepo.GetByID(ctx, req.DoctorID)
	if err != nil || doctor == nil || doctor.Role != string(domain.RoleDoctor) {
		return nil, ErrDoctorNotFound
	}

	doctorID := req.DoctorID
	appointment := &models.Appointment{
		PatientID:       patientID,
		DoctorID:        &doctorID,
		AppointmentDate: date,
		Type:            models.AppointmentTypeScheduled,
		Status:          models.AppointmentStatusScheduled,
		Complaint:       req.Complaint,
	}
	if err := s.appointmentRepo.Create(appointment); err != nil {
		return nil, err
	}

	log.Printf("✅ Appointment %d booked: patient %d with doctor %d on %s",
		appointment.ID, patientID, req.DoctorID, req.AppointmentDate)
	return s.appointmentRepo.GetByID(appointment.ID)
}

// ============================================================
// Check-in and walk-in — the bridge into the queue
// ============================================================

// CheckInResponse bundles the updated appointment with the issued queue entry
type CheckInResponse struct {
	Appointment *models.Appointment `json:"appointment"`
	QueueEntry  *models.QueueEntry  `json:"queue_entry"`
}

// CheckIn confirms the patient's arrival on the appointment date and issues
// their queue number. Only scheduled appointments can check in, and only on
// the day itself. The queue entry carries the appointment and doctor so
// call-next can be scoped per doctor.
func (s *AppointmentService) CheckIn(appointmentID uint, patientID uint) (*CheckInResponse, error) {
	appointment, err := s.appointmentRepo.GetByID(appointmentID)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.PatientID != patientID {
		return nil, ErrAppointmentNotYours
	}
	if appointment.Status != models.AppointmentStatusScheduled {
		return nil, domain.ErrInvalidTransition
	}

	today := NormalizeDate(time.Now())
	if !NormalizeDate(appointment.AppointmentDate).Equal(today) {
		return nil, ErrCheckInWrongDay
	}

	apptID := appointment.ID
	entry, err := s.queueService.Issue(today, patientID, &apptID, appointment.DoctorID)
	if err != nil {
		return nil, err
	}

	rows, err := s.appointmentRepo.UpdateStatus(appointmentID,
		[]string{models.AppointmentStatusScheduled},
		map[string]interface{}{"status": models.AppointmentStatusCheckedIn})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrInvalidTransition
	}

	appointment, err = s.appointmentRepo.GetByID(appointmentID)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Patient %d checked in for appointment %d, queue number %d",
		patientID, appointmentID, entry.QueueNumber)
	return &CheckInResponse{Appointment: appointment, QueueEntry: entry}, nil
}

// WalkinRequest represents a walk-in registration by front-desk staff
type WalkinRequest struct {
	PatientID uint   `json:"patient_id" validate:"required"`
	DoctorID  *uint  `json:"doctor_id"`
	Complaint string `json:"complaint"`
}

// CreateWalkin registers a walk-in patient: a same-day WALKIN appointment is
// created and a queue number issued in one step. The duplicate-entry rule
// still applies, so a patient already waiting cannot walk in again.
func (s *AppointmentService) CreateWalkin(ctx context.Context, req *WalkinRequest) (*CheckInResponse, error) {
	if req.PatientID == 0 {
		return nil, domain.ErrValidation
	}

	patient, err := s.userRepo.GetByID(ctx, req.PatientID)
	if err != nil || patient == nil {
		return nil, ErrPatientNotFound
	}
	if req.DoctorID != nil {
		doctor, err := s.userRepo.GetByID(ctx, *req.DoctorID)
		if err != nil || doctor == nil || doctor.Role != string(domain.RoleDoctor) {
			return nil, ErrDoctorNotFound
		}
	}

	today := NormalizeDate(time.Now())
	appointment := &models.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		AppointmentDate: today,
		Type:            models.AppointmentTypeWalkin,
		Status:          models.AppointmentStatusCheckedIn,
		Complaint:       req.Complaint,
	}
	if err := s.appointmentRepo.Create(appointment); err != nil {
		return nil, err
	}

	apptID := appointment.ID
	entry, err := s.queueService.Issue(today, req.PatientID, &apptID, req.DoctorID)
	if err != nil {
		// Roll the placeholder appointment back so a rejected walk-in
		// leaves no trace.
		_, _ = s.appointmentRepo.UpdateStatus(apptID,
			[]string{models.AppointmentStatusCheckedIn},
			map[string]interface{}{"status": models.AppointmentStatusCancelled})
		return nil, err
	}

	appointment, err = s.appointmentRepo.GetByID(apptID)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Walk-in registered: patient %d, queue number %d", req.PatientID, entry.QueueNumber)
	return &CheckInResponse{Appointment: appointment, QueueEntry: entry}, nil
}

// ============================================================
// Lifecycle and listing
// ============================================================

// Cancel cancels a scheduled appointment before check-in.
func (s *AppointmentService) Cancel(appointmentID uint, patientID uint) (*models.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(appointmentID)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}
	if appointment.PatientID != patientID {
		return nil, ErrAppointmentNotYours
	}

	rows, err := s.appointmentRepo.UpdateStatus(appointmentID,
		[]string{models.AppointmentStatusScheduled},
		map[string]interface{}{"status": models.AppointmentStatusCancelled})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrInvalidTransition
	}

	log.Printf("✅ Appointment %d cancelled by patient %d", appointmentID, patientID)
	return s.appointmentRepo.GetByID(appointmentID)
}

// MarkCompleted closes a checked-in appointment after the visit finished.
func (s *AppointmentService) MarkCompleted(appointmentID uint) error {
	rows, err := s.appointmentRepo.UpdateStatus(appointmentID,
		[]string{models.AppointmentStatusCheckedIn},
		map[string]interface{}{"status": models.AppointmentStatusCompleted})
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// GetByID returns one appointment
func (s *AppointmentService) GetByID(appointmentID uint) (*models.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(appointmentID)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

// ListMine returns a patient's own appointments, newest first.
func (s *AppointmentService) ListMine(patientID uint, offset, limit int) ([]models.Appointment, int64, error) {
	return s.appointmentRepo.ListByPatient(patientID, offset, limit)
}

// ListDoctorDay returns a doctor's appointments for one day.
func (s *AppointmentService) ListDoctorDay(doctorID uint, day time.Time) ([]models.Appointment, error) {
	return s.appointmentRepo.ListByDoctorAndDate(doctorID, NormalizeDate(day))
}
