package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table (patients and clinic staff)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FullName  string         `gorm:"size:100;not null" json:"full_name"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Phone     string         `gorm:"size:20" json:"phone"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'PATIENT';index" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Appointment Tables
// ============================================================

// Appointment statuses
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusCheckedIn = "checked_in"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

// Appointment types
const (
	AppointmentTypeScheduled = "SCHEDULED"
	AppointmentTypeWalkin    = "WALKIN"
)

// Appointment represents appointments table. Walk-ins get an auto-created
// same-day appointment so prescriptions always have an encounter to hang off.
type Appointment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PatientID       uint      `gorm:"not null;index" json:"patient_id"`
	DoctorID        *uint     `gorm:"index" json:"doctor_id"`
	AppointmentDate time.Time `gorm:"type:date;not null;index" json:"appointment_date"`
	Type            string    `gorm:"size:10;default:'SCHEDULED'" json:"type"`
	Status          string    `gorm:"size:15;default:'scheduled';index" json:"status"`
	Complaint       string    `gorm:"size:255" json:"complaint"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Patient         User      `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor          *User     `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// ============================================================
// Pharmacy Tables
// ============================================================

// Medicine represents medicines table. Stock is mutated only through the
// stock ledger operations, never written directly.
type Medicine struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Stock        int            `gorm:"not null;default:0" json:"stock"`
	Unit         string         `gorm:"size:20;not null" json:"unit"`
	Price        float64        `gorm:"type:decimal(12,2);not null" json:"price"`
	MinimumStock int            `gorm:"default:0" json:"minimum_stock"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Medicine) TableName() string {
	return "medicines"
}

// IsLowStock reports whether stock is at or below the advisory threshold.
func (m *Medicine) IsLowStock() bool {
	return m.Stock <= m.MinimumStock
}

// Stock change reasons
const (
	StockReasonDispensed = "dispensed"
	StockReasonRestock   = "restock"
	StockReasonAdjusted  = "adjusted"
)

// StockHistory represents stock_history table — append-only audit trail.
// Rows are never updated or deleted.
type StockHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	MedicineID     uint      `gorm:"not null;index" json:"medicine_id"`
	ChangeAmount   int       `gorm:"not null" json:"change_amount"`
	Reason         string    `gorm:"size:50;not null" json:"reason"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	PrescriptionID *uint     `gorm:"index" json:"prescription_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	Medicine       Medicine  `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
	User           User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (StockHistory) TableName() string {
	return "stock_history"
}

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Appointment{},
		&QueueEntry{},
		&Medicine{},
		&StockHistory{},
		&Prescription{},
		&PrescriptionItem{},
	)
}
