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

// Queue errors
var (
	ErrQueueEntryNotFound = errors.New("queue entry not found")
)

// QueueService issues daily queue numbers and dispatches waiting patients.
// Every write path takes the per-day lock so that number issuance and
// call-next are serialized per service date.
type QueueService struct {
	queueRepo repositories.QueueRepository
	locks     *keylock.KeyedMutex
}

// NewQueueService creates a new queue service
func NewQueueService(queueRepo repositories.QueueRepository, locks *keylock.KeyedMutex) *QueueService {
	return &QueueService{
		queueRepo: queueRepo,
		locks:     locks,
	}
}

// NormalizeDate truncates a timestamp to its calendar day.
func NormalizeDate(t time.Time) time.Time {
	return t.Truncate(24 * time.Hour)
}

func queueDayKey(day time.Time) string {
	return "queue:" + day.Format("2006-01-02")
}

// ============================================================
// Sequencing — issue queue numbers
// ============================================================

// Issue registers a patient in the day's queue and hands out the next queue
// number. Numbers are dense, strictly increasing from 1, scoped to the
// service date. A patient may hold at most one waiting/called entry per day.
func (s *QueueService) Issue(serviceDate time.Time, patientID uint, appointmentID *uint, doctorID *uint) (*models.QueueEntry, error) {
	day := NormalizeDate(serviceDate)

	unlock := s.locks.Lock(queueDayKey(day))
	defer unlock()

	// 1. Reject a second active entry for the same patient and day
	existing, err := s.queueRepo.GetActiveEntryByPatient(patientID, day)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateActiveEntry
	}

	// 2. Next number = highest issued so far + 1. Safe under concurrency
	// because the day lock is held across read and create.
	max, err := s.queueRepo.GetMaxQueueNumber(day)
	if err != nil {
		return nil, err
	}

	entry := &models.QueueEntry{
		ServiceDate:   day,
		QueueNumber:   max + 1,
		PatientID:     patientID,
		AppointmentID: appointmentID,
		DoctorID:      doctorID,
		Status:        models.QueueStatusWaiting,
	}
	if err := s.queueRepo.CreateEntry(entry); err != nil {
		return nil, err
	}

	log.Printf("✅ Queue number %d issued to patient %d for %s",
		entry.QueueNumber, patientID, day.Format("2006-01-02"))
	return entry, nil
}

// QueueStateResponse represents the queue board for a day
type QueueStateResponse struct {
	ServiceDate      string              `json:"service_date"`
	Entries          []models.QueueEntry `json:"entries"`
	CurrentlyServing *int                `json:"currently_serving"`
	TotalCount       int64               `json:"total_count"`
}

// GetState returns the full queue board for a day: all entries in number
// order, the number currently in called status (or null), and the total
// issued count. Pure read, polled by staff terminals.
func (s *QueueService) GetState(serviceDate time.Time) (*QueueStateResponse, error) {
	day := NormalizeDate(serviceDate)

	entries, err := s.queueRepo.GetEntriesByDate(day)
	if err != nil {
		return nil, err
	}

	total, err := s.queueRepo.CountByDate(day)
	if err != nil {
		return nil, err
	}

	var serving *int
	called, err := s.queueRepo.GetCurrentCalled(day)
	if err != nil {
		return nil, err
	}
	if called != nil {
		serving = &called.QueueNumber
	}

	return &QueueStateResponse{
		ServiceDate:      day.Format("2006-01-02"),
		Entries:          entries,
		CurrentlyServing: serving,
		TotalCount:       total,
	}, nil
}

// GetEntryByID returns a queue entry by ID
func (s *QueueService) GetEntryByID(entryID uint) (*models.QueueEntry, error) {
	entry, err := s.queueRepo.GetEntryByID(entryID)
	if err != nil {
		return nil, ErrQueueEntryNotFound
	}
	return entry, nil
}

// ============================================================
// Dispatching — call-next / skip / complete
// ============================================================

// CallNext advances the waiting entry with the smallest queue number to
// called, optionally scoped to one doctor's queue. Exclusive per day: two
// concurrent calls can never receive the same entry. Returns ErrQueueEmpty
// immediately when nothing is waiting.
func (s *QueueService) CallNext(serviceDate time.Time, doctorID *uint, callerID uint) (*models.QueueEntry, error) {
	day := NormalizeDate(serviceDate)

	unlock := s.locks.Lock(queueDayKey(day))
	defer unlock()

	next, err := s.queueRepo.GetNextWaitingEntry(day, doctorID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, domain.ErrQueueEmpty
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":    models.QueueStatusCalled,
		"called_at": now,
		"called_by": callerID,
	}
	rows, err := s.queueRepo.UpdateEntryStatus(next.ID, []string{models.QueueStatusWaiting}, updates)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Another writer got there despite the day lock (e.g. a skip raced
		// between select and update). Caller retries.
		return nil, domain.ErrConcurrencyConflict
	}

	entry, err := s.queueRepo.GetEntryByID(next.ID)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Queue number %d called by staff %d", entry.QueueNumber, callerID)
	return entry, nil
}

// Skip marks an entry as no_show. Valid from waiting (patient never showed)
// and from called (called but absent). Terminal entries are immutable.
func (s *QueueService) Skip(entryID uint, operatorID uint) (*models.QueueEntry, error) {
	entry, err := s.queueRepo.GetEntryByID(entryID)
	if err != nil {
		return nil, ErrQueueEntryNotFound
	}
	if entry.IsTerminal() {
		return nil, domain.ErrInvalidTransition
	}

	updates := map[string]interface{}{
		"status":     models.QueueStatusNoShow,
		"skipped_by": operatorID,
	}
	rows, err := s.queueRepo.UpdateEntryStatus(entryID, models.QueueActiveStatuses, updates)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrInvalidTransition
	}

	entry, err = s.queueRepo.GetEntryByID(entryID)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Queue number %d skipped (no-show) by staff %d", entry.QueueNumber, operatorID)
	return entry, nil
}

// Complete closes a called entry after the consultation finished.
func (s *QueueService) Complete(entryID uint) (*models.QueueEntry, error) {
	entry, err := s.queueRepo.GetEntryByID(entryID)
	if err != nil {
		return nil, ErrQueueEntryNotFound
	}
	if entry.Status != models.QueueStatusCalled {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.QueueStatusCompleted,
		"completed_at": now,
	}
	rows, err := s.queueRepo.UpdateEntryStatus(entryID, []string{models.QueueStatusCalled}, updates)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrInvalidTransition
	}

	entry, err = s.queueRepo.GetEntryByID(entryID)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Queue number %d completed", entry.QueueNumber)
	return entry, nil
}

// CloseOutStale marks every waiting/called entry older than the given day as
// no_show. Run by the nightly cron so yesterday's leftovers never bleed into
// today's board.
func (s *QueueService) CloseOutStale(before time.Time) (int, error) {
	day := NormalizeDate(before)

	entries, err := s.queueRepo.GetStaleActiveEntries(day)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, entry := range entries {
		updates := map[string]interface{}{
			"status": models.QueueStatusNoShow,
		}
		rows, err := s.queueRepo.UpdateEntryStatus(entry.ID, models.QueueActiveStatuses, updates)
		if err != nil {
			log.Printf("❌ Close-out failed for queue entry %d: %v", entry.ID, err)
			continue
		}
		closed += int(rows)
	}

	if closed > 0 {
		log.Printf("🌙 Closed out %d stale queue entries before %s", closed, day.Format("2006-01-02"))
	}
	return closed, nil
}
