package services

import (
	"context"
	"errors"
	"log"
	"time"

	"smpc-microfin/internal/config"
	"smpc-microfin/internal/core/domain"

	"github.com/robfig/cron/v3"
)

// CronService schedules the monthly savings accrual run
type CronService struct {
	cron    *cron.Cron
	accrual *AccrualService
	ledger  config.LedgerConfig
}

// NewCronService creates a new cron service
func NewCronService(accrual *AccrualService, ledger config.LedgerConfig) *CronService {
	return &CronService{
		cron:    cron.New(cron.WithLocation(ledger.Location())),
		accrual: accrual,
		ledger:  ledger,
	}
}

// Start registers and starts the scheduled jobs
func (s *CronService) Start() error {
	_, err := s.cron.AddFunc(s.ledger.AccrualCronSpec, s.runAccrual)
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("✅ Cron started: accrual spec=%q", s.ledger.AccrualCronSpec)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 Cron stopped")
}

// runAccrual computes accrual for the month that just closed
func (s *CronService) runAccrual() {
	period := time.Now().In(s.ledger.Location()).AddDate(0, -1, 0).Format("2006-01")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// System-attributed run; manual re-runs go through the HTTP API
	_, err := s.accrual.RunForPeriod(ctx, period, domain.Actor{Role: domain.RoleSuperAdmin})
	if err != nil {
		if errors.Is(err, domain.ErrAccrualAlreadyDone) {
			log.Printf("⚠️ Accrual %s already computed, skipping", period)
			return
		}
		log.Printf("❌ Accrual %s failed: %v", period, err)
	}
}
