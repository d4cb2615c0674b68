package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/core/domain"
)

// In-memory repository fakes. They mirror the row-level guarantees of the
// real repositories: compare-and-set status updates and all-or-nothing
// completion with stock deductions.

var errNotFound = errors.New("record not found")

// ---------- queue ----------

type fakeQueueRepo struct {
	mu      sync.Mutex
	nextID  uint
	entries map[uint]*models.QueueEntry
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: map[uint]*models.QueueEntry{}}
}

func sameDay(a, b time.Time) bool {
	return a.Truncate(24 * time.Hour).Equal(b.Truncate(24 * time.Hour))
}

func (r *fakeQueueRepo) CreateEntry(entry *models.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	cp := *entry
	r.entries[entry.ID] = &cp
	return nil
}

func (r *fakeQueueRepo) GetEntryByID(id uint) (*models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *entry
	return &cp, nil
}

func (r *fakeQueueRepo) GetMaxQueueNumber(serviceDate time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, entry := range r.entries {
		if sameDay(entry.ServiceDate, serviceDate) && entry.QueueNumber > max {
			max = entry.QueueNumber
		}
	}
	return max, nil
}

func (r *fakeQueueRepo) GetActiveEntryByPatient(patientID uint, serviceDate time.Time) (*models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.PatientID == patientID && sameDay(entry.ServiceDate, serviceDate) &&
			(entry.Status == models.QueueStatusWaiting || entry.Status == models.QueueStatusCalled) {
			cp := *entry
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeQueueRepo) GetNextWaitingEntry(serviceDate time.Time, doctorID *uint) (*models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var next *models.QueueEntry
	for _, entry := range r.entries {
		if !sameDay(entry.ServiceDate, serviceDate) || entry.Status != models.QueueStatusWaiting {
			continue
		}
		if doctorID != nil && (entry.DoctorID == nil || *entry.DoctorID != *doctorID) {
			continue
		}
		if next == nil || entry.QueueNumber < next.QueueNumber {
			next = entry
		}
	}
	if next == nil {
		return nil, nil
	}
	cp := *next
	return &cp, nil
}

func (r *fakeQueueRepo) UpdateEntryStatus(id uint, fromStatuses []string, updates map[string]interface{}) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return 0, nil
	}
	matched := false
	for _, status := range fromStatuses {
		if entry.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return 0, nil
	}
	applyEntryUpdates(entry, updates)
	return 1, nil
}

func applyEntryUpdates(entry *models.QueueEntry, updates map[string]interface{}) {
	if v, ok := updates["status"].(string); ok {
		entry.Status = v
	}
	if v, ok := updates["called_at"].(time.Time); ok {
		t := v
		entry.CalledAt = &t
	}
	if v, ok := updates["completed_at"].(time.Time); ok {
		t := v
		entry.CompletedAt = &t
	}
	if v, ok := updates["called_by"].(uint); ok {
		id := v
		entry.CalledBy = &id
	}
	if v, ok := updates["skipped_by"].(uint); ok {
		id := v
		entry.SkippedBy = &id
	}
}

func (r *fakeQueueRepo) GetEntriesByDate(serviceDate time.Time) ([]models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.QueueEntry
	for _, entry := range r.entries {
		if sameDay(entry.ServiceDate, serviceDate) {
			out = append(out, *entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueueNumber < out[j].QueueNumber })
	return out, nil
}

func (r *fakeQueueRepo) GetCurrentCalled(serviceDate time.Time) (*models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if sameDay(entry.ServiceDate, serviceDate) && entry.Status == models.QueueStatusCalled {
			cp := *entry
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeQueueRepo) CountByDate(serviceDate time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, entry := range r.entries {
		if sameDay(entry.ServiceDate, serviceDate) {
			count++
		}
	}
	return count, nil
}

func (r *fakeQueueRepo) GetStaleActiveEntries(before time.Time) ([]models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := before.Truncate(24 * time.Hour)
	var out []models.QueueEntry
	for _, entry := range r.entries {
		if entry.ServiceDate.Before(day) &&
			(entry.Status == models.QueueStatusWaiting || entry.Status == models.QueueStatusCalled) {
			out = append(out, *entry)
		}
	}
	return out, nil
}

// ---------- appointments ----------

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	nextID       uint
	appointments map[uint]*models.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: map[uint]*models.Appointment{}}
}

func (r *fakeAppointmentRepo) Create(appt *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	appt.ID = r.nextID
	cp := *appt
	r.appointments[appt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) GetByID(id uint) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *appt
	return &cp, nil
}

func (r *fakeAppointmentRepo) Update(appt *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[appt.ID]; !ok {
		return errNotFound
	}
	cp := *appt
	r.appointments[appt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) UpdateStatus(id uint, fromStatuses []string, updates map[string]interface{}) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok {
		return 0, nil
	}
	matched := false
	for _, status := range fromStatuses {
		if appt.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return 0, nil
	}
	if v, ok := updates["status"].(string); ok {
		appt.Status = v
	}
	return 1, nil
}

func (r *fakeAppointmentRepo) ListByPatient(patientID uint, offset, limit int) ([]models.Appointment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, appt := range r.appointments {
		if appt.PatientID == patientID {
			out = append(out, *appt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *fakeAppointmentRepo) ListByDoctorAndDate(doctorID uint, date time.Time) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, appt := range r.appointments {
		if appt.DoctorID != nil && *appt.DoctorID == doctorID && sameDay(appt.AppointmentDate, date) {
			out = append(out, *appt)
		}
	}
	return out, nil
}

// ---------- medicines + stock ledger ----------

type fakeMedicineRepo struct {
	mu        sync.Mutex
	nextID    uint
	nextHist  uint
	medicines map[uint]*models.Medicine
	history   []models.StockHistory
}

func newFakeMedicineRepo() *fakeMedicineRepo {
	return &fakeMedicineRepo{medicines: map[uint]*models.Medicine{}}
}

func (r *fakeMedicineRepo) Create(m *models.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	cp := *m
	r.medicines[m.ID] = &cp
	return nil
}

func (r *fakeMedicineRepo) GetByID(id uint) (*models.Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.medicines[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMedicineRepo) GetByIDs(ids []uint) ([]models.Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Medicine
	for _, id := range ids {
		if m, ok := r.medicines[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMedicineRepo) List(offset, limit int, search string) ([]models.Medicine, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Medicine
	for _, m := range r.medicines {
		if search == "" || strings.Contains(strings.ToLower(m.Name), strings.ToLower(search)) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *fakeMedicineRepo) Update(m *models.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.medicines[m.ID]
	if !ok {
		return errNotFound
	}
	// Stock stays ledger-only, like the column exclusion in the real repo
	stock := stored.Stock
	cp := *m
	cp.Stock = stock
	r.medicines[m.ID] = &cp
	return nil
}

func (r *fakeMedicineRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.medicines[id]; !ok {
		return errNotFound
	}
	delete(r.medicines, id)
	return nil
}

func (r *fakeMedicineRepo) GetLowStock() ([]models.Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Medicine
	for _, m := range r.medicines {
		if m.IsActive && m.Stock <= m.MinimumStock {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMedicineRepo) AdjustStock(record *models.StockHistory) (*models.Medicine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adjustLocked(record)
}

// adjustLocked assumes r.mu is held.
func (r *fakeMedicineRepo) adjustLocked(record *models.StockHistory) (*models.Medicine, error) {
	m, ok := r.medicines[record.MedicineID]
	if !ok {
		return nil, domain.ErrMedicineNotFound
	}
	if m.Stock+record.ChangeAmount < 0 {
		return nil, &domain.InsufficientStockError{
			MedicineID:   m.ID,
			MedicineName: m.Name,
			Requested:    -record.ChangeAmount,
			Available:    m.Stock,
		}
	}
	m.Stock += record.ChangeAmount
	r.nextHist++
	record.ID = r.nextHist
	record.CreatedAt = time.Now()
	r.history = append(r.history, *record)
	cp := *m
	return &cp, nil
}

func (r *fakeMedicineRepo) GetHistory(medicineID uint, offset, limit int) ([]models.StockHistory, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.StockHistory
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].MedicineID == medicineID {
			out = append(out, r.history[i])
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

// ---------- prescriptions ----------

type fakePrescriptionRepo struct {
	mu            sync.Mutex
	nextID        uint
	prescriptions map[uint]*models.Prescription
	medicineRepo  *fakeMedicineRepo
}

func newFakePrescriptionRepo(medicineRepo *fakeMedicineRepo) *fakePrescriptionRepo {
	return &fakePrescriptionRepo{
		prescriptions: map[uint]*models.Prescription{},
		medicineRepo:  medicineRepo,
	}
}

func (r *fakePrescriptionRepo) Create(p *models.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	for i := range p.Items {
		p.Items[i].PrescriptionID = p.ID
	}
	cp := clonePrescription(p)
	r.prescriptions[p.ID] = cp
	return nil
}

func clonePrescription(p *models.Prescription) *models.Prescription {
	cp := *p
	cp.Items = append([]models.PrescriptionItem(nil), p.Items...)
	return &cp
}

func (r *fakePrescriptionRepo) GetByID(id uint) (*models.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prescriptions[id]
	if !ok {
		return nil, errNotFound
	}
	return clonePrescription(p), nil
}

func (r *fakePrescriptionRepo) List(status string, patientID uint, offset, limit int) ([]models.Prescription, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Prescription
	for _, p := range r.prescriptions {
		if status != "" && p.Status != status {
			continue
		}
		if patientID != 0 && p.PatientID != patientID {
			continue
		}
		out = append(out, *clonePrescription(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *fakePrescriptionRepo) UpdateStatus(id uint, fromStatus string, updates map[string]interface{}) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prescriptions[id]
	if !ok || p.Status != fromStatus {
		return 0, nil
	}
	applyPrescriptionUpdates(p, updates)
	return 1, nil
}

func applyPrescriptionUpdates(p *models.Prescription, updates map[string]interface{}) {
	if v, ok := updates["status"].(string); ok {
		p.Status = v
	}
	if v, ok := updates["total_price"].(float64); ok {
		price := v
		p.TotalPrice = &price
	}
	if v, ok := updates["rejection_reason"].(string); ok {
		reason := v
		p.RejectionReason = &reason
	}
	if v, ok := updates["verified_by"].(uint); ok {
		id := v
		p.VerifiedBy = &id
	}
	if v, ok := updates["completed_by"].(uint); ok {
		id := v
		p.CompletedBy = &id
	}
	if v, ok := updates["decided_at"].(time.Time); ok {
		t := v
		p.DecidedAt = &t
	}
}

func (r *fakePrescriptionRepo) CompleteWithStock(id uint, updates map[string]interface{}, deductions []models.StockHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prescriptions[id]
	if !ok || p.Status != models.PrescriptionStatusVerified {
		return domain.ErrInvalidTransition
	}

	// All-or-nothing: dry-run the deductions before applying any
	r.medicineRepo.mu.Lock()
	defer r.medicineRepo.mu.Unlock()
	for _, d := range deductions {
		m, ok := r.medicineRepo.medicines[d.MedicineID]
		if !ok {
			return domain.ErrMedicineNotFound
		}
		if m.Stock+d.ChangeAmount < 0 {
			return &domain.InsufficientStockError{
				MedicineID:   m.ID,
				MedicineName: m.Name,
				Requested:    -d.ChangeAmount,
				Available:    m.Stock,
			}
		}
	}
	for i := range deductions {
		d := deductions[i]
		if _, err := r.medicineRepo.adjustLocked(&d); err != nil {
			return err
		}
	}

	applyPrescriptionUpdates(p, updates)
	return nil
}

func (r *fakePrescriptionRepo) CountByStatusAndDate(date time.Time) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{
		models.PrescriptionStatusPending:   0,
		models.PrescriptionStatusVerified:  0,
		models.PrescriptionStatusRejected:  0,
		models.PrescriptionStatusCompleted: 0,
	}
	for _, p := range r.prescriptions {
		if sameDay(p.CreatedAt, date) {
			counts[p.Status]++
		}
	}
	return counts, nil
}

// ---------- users ----------

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]*models.User{}}
}

func (r *fakeUserRepo) addUser(fullName, email, role string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user := &models.User{
		ID:       r.nextID,
		FullName: fullName,
		Email:    email,
		Role:     role,
		IsActive: true,
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return errNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return errNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, offset, limit int, role string) ([]*models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, user := range r.users {
		if role != "" && user.Role != role {
			continue
		}
		cp := *user
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// ---------- refresh tokens ----------

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	nextID uint
	tokens map[string]*models.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: map[string]*models.RefreshToken{}}
}

func (r *fakeRefreshTokenRepo) Create(_ context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	token.ID = r.nextID
	cp := *token
	r.tokens[token.TokenHash] = &cp
	return nil
}

func (r *fakeRefreshTokenRepo) GetByTokenHash(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, errNotFound
	}
	cp := *token
	return &cp, nil
}

func (r *fakeRefreshTokenRepo) RevokeByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[tokenHash]; ok && token.RevokedAt == nil {
		now := time.Now()
		token.RevokedAt = &now
	}
	return nil
}

func (r *fakeRefreshTokenRepo) RevokeAllByUserID(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, token := range r.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeRefreshTokenRepo) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, token := range r.tokens {
		if token.IsExpired() {
			delete(r.tokens, hash)
		}
	}
	return nil
}
