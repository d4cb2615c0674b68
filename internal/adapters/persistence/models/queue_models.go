package models

import "time"

// ============================================================
// Queue Tables
// ============================================================

// Queue entry statuses. waiting → called → completed|no_show,
// or waiting → no_show (direct skip). Terminal entries are immutable.
const (
	QueueStatusWaiting   = "waiting"
	QueueStatusCalled    = "called"
	QueueStatusCompleted = "completed"
	QueueStatusNoShow    = "no_show"
)

// QueueActiveStatuses are the non-terminal entry statuses.
var QueueActiveStatuses = []string{QueueStatusWaiting, QueueStatusCalled}

// QueueEntry represents queue_entries table. QueueNumber is unique within a
// ServiceDate and assigned densely from 1 in arrival order. Skips leave gaps
// in the served sequence but never renumber remaining entries.
type QueueEntry struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	ServiceDate   time.Time    `gorm:"type:date;not null;index:idx_queue_date_number,priority:1" json:"service_date"`
	QueueNumber   int          `gorm:"not null;index:idx_queue_date_number,priority:2" json:"queue_number"`
	PatientID     uint         `gorm:"not null;index" json:"patient_id"`
	AppointmentID *uint        `gorm:"index" json:"appointment_id"`
	DoctorID      *uint        `gorm:"index" json:"doctor_id"`
	Status        string       `gorm:"size:15;default:'waiting';index" json:"status"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
	CalledAt      *time.Time   `json:"called_at"`
	CompletedAt   *time.Time   `json:"completed_at"`
	CalledBy      *uint        `json:"called_by"`
	SkippedBy     *uint        `json:"skipped_by"`
	Patient       User         `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Appointment   *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Doctor        *User        `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (QueueEntry) TableName() string {
	return "queue_entries"
}

// IsTerminal reports whether the entry reached a final status.
func (e *QueueEntry) IsTerminal() bool {
	return e.Status == QueueStatusCompleted || e.Status == QueueStatusNoShow
}

// IsWalkin reports whether the entry was issued without a booked appointment.
func (e *QueueEntry) IsWalkin() bool {
	return e.AppointmentID == nil || (e.Appointment != nil && e.Appointment.Type == AppointmentTypeWalkin)
}
