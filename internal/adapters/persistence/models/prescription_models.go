package models

import "time"

// ============================================================
// Prescription Tables
// ============================================================

// Prescription statuses. pending → verified → completed, or
// pending → rejected. rejected and completed are terminal.
const (
	PrescriptionStatusPending   = "pending"
	PrescriptionStatusVerified  = "verified"
	PrescriptionStatusRejected  = "rejected"
	PrescriptionStatusCompleted = "completed"
)

// Prescription represents prescriptions table. Created once by a doctor,
// mutated only by pharmacist actions thereafter.
type Prescription struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	AppointmentID   uint               `gorm:"not null;index" json:"appointment_id"`
	PatientID       uint               `gorm:"not null;index" json:"patient_id"`
	DoctorID        uint               `gorm:"not null;index" json:"doctor_id"`
	Status          string             `gorm:"size:15;default:'pending';index" json:"status"`
	TotalPrice      *float64           `gorm:"type:decimal(12,2)" json:"total_price"`
	RejectionReason *string            `gorm:"size:255" json:"rejection_reason"`
	VerifiedBy      *uint              `json:"verified_by"`
	CompletedBy     *uint              `json:"completed_by"`
	CreatedAt       time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
	DecidedAt       *time.Time         `json:"decided_at"`
	Items           []PrescriptionItem `gorm:"foreignKey:PrescriptionID" json:"items"`
	Patient         User               `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor          User               `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Appointment     Appointment        `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
}

func (Prescription) TableName() string {
	return "prescriptions"
}

// IsTerminal reports whether the prescription reached a final status.
func (p *Prescription) IsTerminal() bool {
	return p.Status == PrescriptionStatusRejected || p.Status == PrescriptionStatusCompleted
}

// PrescriptionItem represents prescription_items table. MedicineName is a
// denormalized snapshot taken at creation so renames never change history.
type PrescriptionItem struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	PrescriptionID uint     `gorm:"not null;index" json:"prescription_id"`
	MedicineID     uint     `gorm:"not null;index" json:"medicine_id"`
	MedicineName   string   `gorm:"size:100;not null" json:"medicine_name"`
	Quantity       int      `gorm:"not null" json:"quantity"`
	Dosage         string   `gorm:"size:50" json:"dosage"`
	Frequency      string   `gorm:"size:50" json:"frequency"`
	Duration       string   `gorm:"size:50" json:"duration"`
	Medicine       Medicine `gorm:"foreignKey:MedicineID" json:"-"`
}

func (PrescriptionItem) TableName() string {
	return "prescription_items"
}
