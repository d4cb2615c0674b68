package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/core/domain"
	"klinika-care/internal/pkg/keylock"
)

type prescriptionFixture struct {
	svc          *PrescriptionService
	stock        *StockService
	medicineRepo *fakeMedicineRepo
	appts        *fakeAppointmentRepo
	appointment  *models.Appointment
}

func newPrescriptionFixture(t *testing.T) *prescriptionFixture {
	t.Helper()
	medicineRepo := newFakeMedicineRepo()
	prescriptionRepo := newFakePrescriptionRepo(medicineRepo)
	appointmentRepo := newFakeAppointmentRepo()
	locks := keylock.New()

	appointment := &models.Appointment{
		PatientID:       1,
		AppointmentDate: time.Now(),
		Type:            models.AppointmentTypeScheduled,
		Status:          models.AppointmentStatusCheckedIn,
	}
	if err := appointmentRepo.Create(appointment); err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	return &prescriptionFixture{
		svc:          NewPrescriptionService(prescriptionRepo, medicineRepo, appointmentRepo, locks),
		stock:        NewStockService(medicineRepo, locks),
		medicineRepo: medicineRepo,
		appts:        appointmentRepo,
		appointment:  appointment,
	}
}

func (f *prescriptionFixture) addMedicine(t *testing.T, name string, stock int, price float64) *models.Medicine {
	t.Helper()
	m := &models.Medicine{Name: name, Unit: "tablet", Price: price, IsActive: true}
	if err := f.medicineRepo.Create(m); err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	if stock > 0 {
		updated, err := f.stock.Increment(m.ID, stock, models.StockReasonRestock, 1, nil)
		if err != nil {
			t.Fatalf("stock medicine: %v", err)
		}
		return updated
	}
	return m
}

func TestCreate_SnapshotsMedicineNames(t *testing.T) {
	f := newPrescriptionFixture(t)
	med := f.addMedicine(t, "Paracetamol 500mg", 100, 1.50)

	p, err := f.svc.Create(2, &CreatePrescriptionRequest{
		AppointmentID: f.appointment.ID,
		Items: []PrescriptionItemRequest{
			{MedicineID: med.ID, Quantity: 10, Dosage: "500mg", Frequency: "3x daily", Duration: "3 days"},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != models.PrescriptionStatusPending {
		t.Errorf("status = %q, want pending", p.Status)
	}
	if p.Items[0].MedicineName != "Paracetamol 500mg" {
		t.Errorf("item name = %q, want snapshot of medicine name", p.Items[0].MedicineName)
	}

	// Renaming the medicine afterwards must not touch the snapshot
	newName := "Paracetamol 500mg (new)"
	if _, err := f.stock.UpdateMedicine(med.ID, &UpdateMedicineRequest{Name: &newName}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	p, _ = f.svc.GetByID(p.ID)
	if p.Items[0].MedicineName != "Paracetamol 500mg" {
		t.Errorf("snapshot changed to %q after rename", p.Items[0].MedicineName)
	}
}

func TestCreate_RejectsEmptyAndNonPositiveItems(t *testing.T) {
	f := newPrescriptionFixture(t)
	med := f.addMedicine(t, "Ibuprofen 400mg", 50, 2.25)

	_, err := f.svc.Create(2, &CreatePrescriptionRequest{AppointmentID: f.appointment.ID})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty items error = %v, want ErrValidation", err)
	}

	_, err = f.svc.Create(2, &CreatePrescriptionRequest{
		AppointmentID: f.appointment.ID,
		Items:         []PrescriptionItemRequest{{MedicineID: med.ID, Quantity: 0}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero quantity error = %v, want ErrValidation", err)
	}
}

func TestVerify_ComputesTotalPrice(t *testing.T) {
	f := newPrescriptionFixture(t)
	para := f.addMedicine(t, "Paracetamol 500mg", 100, 1.50)
	amox := f.addMedicine(t, "Amoxicillin 500mg", 50, 4.00)

	p, err := f.svc.Create(2, &CreatePrescriptionRequest{
		AppointmentID: f.appointment.ID,
		Items: []PrescriptionItemRequest{
			{MedicineID: para.ID, Quantity: 10},
			{MedicineID: amox.ID, Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	verified, err := f.svc.Verify(p.ID, 3)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.Status != models.PrescriptionStatusVerified {
		t.Errorf("status = %q, want verified", verified.Status)
	}
	want := 10*1.50 + 5*4.00
	if verified.TotalPrice == nil || *verified.TotalPrice != want {
		t.Errorf("total price = %v, want %v", verified.TotalPrice, want)
	}
	if verified.VerifiedBy == nil || *verified.VerifiedBy != 3 {
		t.Error("verified_by should be stamped")
	}

	// Verify does not reserve stock
	m, _ := f.medicineRepo.GetByID(para.ID)
	if m.Stock != 100 {
		t.Errorf("stock after verify = %d, want 100 (no reservation)", m.Stock)
	}
}

// Paracetamol stock 10, prescription wants 15: verify fails, a restock of 20
// fixes it, and the prescription stays pending throughout.
func TestVerify_InsufficientThenRestock(t *testing.T) {
	f := newPrescriptionFixture(t)
	para := f.addMedicine(t, "Paracetamol 500mg", 10, 1.50)

	p, err := f.svc.Create(2, &CreatePrescriptionRequest{
		AppointmentID: f.appointment.ID,
		Items:         []PrescriptionItemRequest{{MedicineID: para.ID, Quantity: 15}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Verify(p.ID, 3)
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("verify error = %v, want InsufficientStockError", err)
	}
	if stockErr.Requested != 15 || stockErr.Available != 10 {
		t.Errorf("stock error = %+v, want requested 15 available 10", stockErr)
	}
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Error("InsufficientStockError should match ErrInsufficientStock")
	}

	p, _ = f.svc.GetByID(p.ID)
	if p.Status != models.PrescriptionStatusPending {
		t.Errorf("status after failed verify = %q, want pending", p.Status)
	}

	if _, err := f.stock.Increment(para.ID, 20, models.StockReasonRestock, 3, nil); err != nil {
		t.Fatalf("restock: %v", err)
	}
	verified, err := f.svc.Verify(p.ID, 3)
	if err != nil {
		t.Fatalf("verify after restock: %v", err)
	}
	if verified.Status != models.PrescriptionStatusVerified {
		t.Errorf("status = %q, want verified", verified.Status)
	}
}

func TestReject_RequiresReasonAndIsTerminal(t *testing.T) {
	f := newPrescriptionFixture(t)
	med := f.addMedicine(t, "Cetirizine 10mg", 50, 3.00)

	p, _ := f.svc.Create(2, &CreatePrescriptionRequest{
		AppointmentID: f.appointment.ID,
		Items:         []PrescriptionItemRequest{{MedicineID: med.ID, Quantity: 5}},
	})

	if _, err := f.svc.Reject(p.ID, 3, ""); !errors.Is(err, ErrRejectionReasonEmpty) {
		t.Fatalf("empty reason error = %v, want ErrRejectionReasonEmpty", err)
	}

	rejected, err := f.svc.Reject(p.ID, 3, "dosage conflicts with patient allergy")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.PrescriptionStatusRejected {
		t.Errorf("status = %q, want rejected", rejected.Status)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason == "" {
		t.Error("rejection reason should be stored")
	}

	// Terminal: no verify, no second reject
	if _, err := f.svc.Verify(p.ID, 3); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("verify rejected error = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.svc.Reject(p.ID, 3, "again"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("double reject error = %v, want ErrInvalidTransition", err)
	}
}

func TestComplete_DeductsEveryItemAndWritesLedger(t *testing.T) {
	f := newPrescriptionFixture(t)
	para := f.addMedicine(t, "Paracetamol 500mg", 100, 1.50)
	amox := f.addMedicine(t, "Amoxicillin 500mg", 50, 4.00)

	p, _ := f.svc.Create(2, &CreatePrescriptionRequest{
		AppointmentID: f.appointment.ID,
		Items: []PrescriptionItemRequest{
			{MedicineID: para.ID, Quantity: 10},
			{MedicineID: amox.ID, Quantity: 5},
		},
	})
	if _, err := f.svc.Verify(p.ID, 3); err != nil {
		t.Fatalf("verify: %v", err)
	}

	completed, err := f.svc.Complete(p.ID, 3)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.PrescriptionStatusCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}

	m, _ := f.medicineRepo.GetByID(para.ID)
	if m.Stock != 90 {
		t.Errorf("paracetamol stock = %d, want 90", m.Stock)
	}
	m, _ = f.medicineRepo.GetByID(amox.ID)
	if m.Stock != 45 {
		t.Errorf("amoxicillin stock = %d, want 45", m.Stock)
	}

	history, _, err := f.medicineRepo.GetHistory(para.ID, 0, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	found := false
	for _, h := range history {
		if h.Reason == models.StockReasonDispensed && h.ChangeAmount == -10 &&
			h.PrescriptionID != nil && *h.PrescriptionID == p.ID {
			found = true
		}
	}
	if !found {
		t.Error("dispense movement with prescription reference missing from ledger")
	}
}

// One item short of stock aborts the whole completion: no medicine is
// deducted and the prescription stays verified.
func TestComplete_AllOrNothing(t *testing.T) {
	f := newPrescriptionFixture(t)
	para := f.addMedicine(t, "Paracetamol 500mg", 100, 1.50)
	amox := f.addMedicine(t, "Amoxicillin 500mg", 3, 4.00)

	p, _ := f.svc.Create(2, &CreatePrescriptionRequest{
		AppointmentID: f.appointment.ID,
		Items: []PrescriptionItemRequest{
			{MedicineID: para.ID, Quantity: 10},
			{MedicineID: amox.ID, Quantity: 5},
		},
	})
	// Verify passed when amoxicillin still had stock for it, then stock fell
	f.medicineRepo.mu.Lock()
	f.medicineRepo.medicines[amox.ID].Stock = 5
	f.medicineRepo.mu.Unlock()
	if _, err := f.svc.Verify(p.ID, 3); err != nil {
		t.Fatalf("verify: %v", err)
	}
	f.medicineRepo.mu.Lock()
	f.medicineRepo.medicines[amox.ID].Stock = 3
	f.medicineRepo.mu.Unlock()

	_, err := f.svc.Complete(p.ID, 3)
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("complete error = %v, want InsufficientStockError", err)
	}

	m, _ := f.medicineRepo.GetByID(para.ID)
	if m.Stock != 100 {
		t.Errorf("paracetamol stock = %d, want 100 (nothing deducted)", m.Stock)
	}
	p, _ = f.svc.GetByID(p.ID)
	if p.Status != models.PrescriptionStatusVerified {
		t.Errorf("status = %q, want verified (completion rolled back)", p.Status)
	}
}

// Two verified prescriptions race for 5 remaining tablets needing 4 and 3:
// exactly one completes, the other fails cleanly.
func TestComplete_ConcurrentContention(t *testing.T) {
	f := newPrescriptionFixture(t)
	med := f.addMedicine(t, "Omeprazole 20mg", 5, 5.50)

	create := func(qty int) uint {
		p, err := f.svc.Create(2, &CreatePrescriptionRequest{
			AppointmentID: f.appointment.ID,
			Items:         []PrescriptionItemRequest{{MedicineID: med.ID, Quantity: qty}},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := f.svc.Verify(p.ID, 3); err != nil {
			t.Fatalf("verify: %v", err)
		}
		return p.ID
	}
	first := create(4)
	second := create(3)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, id := range []uint{first, second} {
		wg.Add(1)
		go func(prescriptionID uint) {
			defer wg.Done()
			_, err := f.svc.Complete(prescriptionID, 3)
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var ok, failed int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		if !errors.Is(err, domain.ErrInsufficientStock) {
			t.Errorf("unexpected error: %v", err)
		}
		failed++
	}
	if ok != 1 || failed != 1 {
		t.Errorf("ok=%d failed=%d, want exactly one of each", ok, failed)
	}

	m, _ := f.medicineRepo.GetByID(med.ID)
	if m.Stock < 0 {
		t.Fatalf("stock went negative: %d", m.Stock)
	}
	if m.Stock != 1 && m.Stock != 2 {
		t.Errorf("stock = %d, want 1 (4 dispensed) or 2 (3 dispensed)", m.Stock)
	}
}

func TestComplete_OnlyFromVerified(t *testing.T) {
	f := newPrescriptionFixture(t)
	med := f.addMedicine(t, "Ibuprofen 400mg", 50, 2.25)

	p, _ := f.svc.Create(2, &CreatePrescriptionRequest{
		AppointmentID: f.appointment.ID,
		Items:         []PrescriptionItemRequest{{MedicineID: med.ID, Quantity: 5}},
	})

	if _, err := f.svc.Complete(p.ID, 3); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("complete pending error = %v, want ErrInvalidTransition", err)
	}

	m, _ := f.medicineRepo.GetByID(med.ID)
	if m.Stock != 50 {
		t.Errorf("stock = %d, want 50 untouched", m.Stock)
	}
}
