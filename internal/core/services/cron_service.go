package services

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// CronService runs the scheduled clinic housekeeping jobs
type CronService struct {
	cron         *cron.Cron
	queueService *QueueService
	stockService *StockService
	authService  *AuthService
}

// NewCronService creates a new cron service
func NewCronService(queueService *QueueService, stockService *StockService, authService *AuthService) *CronService {
	return &CronService{
		cron:         cron.New(),
		queueService: queueService,
		stockService: stockService,
		authService:  authService,
	}
}

// Start registers and starts the scheduled jobs:
//   - 00:05  close out yesterday's waiting/called queue entries
//   - 07:00  log medicines at or below minimum stock
//   - 03:00  purge expired refresh tokens
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc("5 0 * * *", s.closeOutYesterday); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 7 * * *", s.morningLowStockScan); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * *", s.cleanupTokens); err != nil {
		return err
	}

	s.cron.Start()
	log.Println("✅ Cron jobs scheduled")
	return nil
}

// Stop stops the scheduler, waiting for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("✅ Cron jobs stopped")
}

func (s *CronService) closeOutYesterday() {
	closed, err := s.queueService.CloseOutStale(time.Now())
	if err != nil {
		log.Printf("❌ Queue close-out failed: %v", err)
		return
	}
	log.Printf("🌙 Queue close-out done, %d entries marked no-show", closed)
}

func (s *CronService) morningLowStockScan() {
	count, err := s.stockService.ScanLowStock()
	if err != nil {
		log.Printf("❌ Low stock scan failed: %v", err)
		return
	}
	log.Printf("🌅 Low stock scan done, %d medicines below minimum", count)
}

func (s *CronService) cleanupTokens() {
	if err := s.authService.CleanupExpiredTokens(context.Background()); err != nil {
		log.Printf("❌ Token cleanup failed: %v", err)
	}
}
