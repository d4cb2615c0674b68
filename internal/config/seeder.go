package config

import (
	"log"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/core/domain"
	"klinika-care/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedStaffUsers(); err != nil {
		log.Printf("⚠️ Staff seeder skipped: %v", err)
	}
	if err := s.seedMedicines(); err != nil {
		log.Printf("⚠️ Medicine seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedStaffUsers seeds a default account per staff role.
// Development/testing only; production accounts are provisioned manually.
func (s *Seeder) seedStaffUsers() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", string(domain.RoleAdmin)).Count(&count)
	if count > 0 {
		return nil // Already seeded
	}

	hashedPassword, err := password.Hash("klinika123456")
	if err != nil {
		return err
	}

	staff := []models.User{
		{FullName: "Clinic Admin", Email: "admin@klinika-care.local", Password: hashedPassword, Role: string(domain.RoleAdmin), IsActive: true},
		{FullName: "Dr. Default", Email: "doctor@klinika-care.local", Password: hashedPassword, Role: string(domain.RoleDoctor), IsActive: true},
		{FullName: "Head Nurse", Email: "nurse@klinika-care.local", Password: hashedPassword, Role: string(domain.RoleNurse), IsActive: true},
		{FullName: "Pharmacist", Email: "pharmacist@klinika-care.local", Password: hashedPassword, Role: string(domain.RolePharmacist), IsActive: true},
	}

	for i := range staff {
		if err := s.db.Create(&staff[i]).Error; err != nil {
			return err
		}
		log.Printf("✅ Seeded %s: %s", staff[i].Role, staff[i].Email)
	}
	return nil
}

// seedMedicines seeds a small starter catalog with opening stock. Each
// opening balance goes through a restock ledger row so history starts clean.
func (s *Seeder) seedMedicines() error {
	var count int64
	s.db.Model(&models.Medicine{}).Count(&count)
	if count > 0 {
		return nil // Already seeded
	}

	var pharmacist models.User
	if err := s.db.Where("role = ?", string(domain.RolePharmacist)).First(&pharmacist).Error; err != nil {
		return err
	}

	catalog := []struct {
		medicine models.Medicine
		opening  int
	}{
		{models.Medicine{Name: "Paracetamol 500mg", Unit: "tablet", Price: 1.50, MinimumStock: 50, IsActive: true}, 500},
		{models.Medicine{Name: "Amoxicillin 500mg", Unit: "capsule", Price: 4.00, MinimumStock: 30, IsActive: true}, 200},
		{models.Medicine{Name: "Ibuprofen 400mg", Unit: "tablet", Price: 2.25, MinimumStock: 40, IsActive: true}, 300},
		{models.Medicine{Name: "Cetirizine 10mg", Unit: "tablet", Price: 3.00, MinimumStock: 20, IsActive: true}, 150},
		{models.Medicine{Name: "Omeprazole 20mg", Unit: "capsule", Price: 5.50, MinimumStock: 20, IsActive: true}, 100},
	}

	for i := range catalog {
		entry := &catalog[i]
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&entry.medicine).Error; err != nil {
				return err
			}
			if err := tx.Model(&entry.medicine).Update("stock", entry.opening).Error; err != nil {
				return err
			}
			history := &models.StockHistory{
				MedicineID:   entry.medicine.ID,
				ChangeAmount: entry.opening,
				Reason:       models.StockReasonRestock,
				UserID:       pharmacist.ID,
			}
			return tx.Create(history).Error
		})
		if err != nil {
			return err
		}
		log.Printf("✅ Seeded medicine: %s (%d %s)", entry.medicine.Name, entry.opening, entry.medicine.Unit)
	}
	return nil
}
