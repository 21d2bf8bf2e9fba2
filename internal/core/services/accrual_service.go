package services

import (
	"context"
	"errors"
	"log"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/config"
	"smpc-microfin/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccrualService computes periodic savings interest. Accruals are
// recorded as their own aggregate and never flow through the
// adjustment engine, so they are exempt from the daily-uniqueness rule.
type AccrualService struct {
	db          *gorm.DB
	memberRepo  repositories.MemberRepository
	accrualRepo repositories.SavingsAccrualRepository
	audit       *AuditService
	ledger      config.LedgerConfig
}

// NewAccrualService creates a new accrual service
func NewAccrualService(
	db *gorm.DB,
	memberRepo repositories.MemberRepository,
	accrualRepo repositories.SavingsAccrualRepository,
	audit *AuditService,
	ledger config.LedgerConfig,
) *AccrualService {
	return &AccrualService{
		db:          db,
		memberRepo:  memberRepo,
		accrualRepo: accrualRepo,
		audit:       audit,
		ledger:      ledger,
	}
}

// AccrualRunResult summarizes one accrual run
type AccrualRunResult struct {
	Period       string          `json:"period"`
	Members      int             `json:"members"`
	Computed     int             `json:"computed"`
	Skipped      int             `json:"skipped"`
	TotalAccrued decimal.Decimal `json:"total_accrued"`
}

// RunForPeriod computes savings accrual for every active member for a
// period ("2006-01"). The (member, period) unique constraint makes the
// run idempotent: a member already accrued for the period is skipped.
func (s *AccrualService) RunForPeriod(ctx context.Context, period string, actor domain.Actor) (*AccrualRunResult, error) {
	memberIDs, err := s.memberRepo.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &AccrualRunResult{
		Period:       period,
		Members:      len(memberIDs),
		TotalAccrued: decimal.Zero,
	}

	for _, id := range memberIDs {
		exists, err := s.accrualRepo.ExistsForPeriod(ctx, id, period)
		if err != nil {
			return nil, err
		}
		if exists {
			result.Skipped++
			continue
		}

		member, err := s.memberRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		amount := member.Savings.Mul(s.ledger.AccrualRate).Round(2)
		accrual := &models.SavingsAccrual{
			MemberID: member.ID,
			Period:   period,
			Rate:     s.ledger.AccrualRate,
			Amount:   amount,
		}
		if err := s.accrualRepo.Create(ctx, accrual); err != nil {
			// A concurrent run got there first; treat like the pre-check
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result.Skipped++
				continue
			}
			return nil, err
		}

		result.Computed++
		result.TotalAccrued = result.TotalAccrued.Add(amount)
	}

	if result.Members > 0 && result.Computed == 0 {
		return nil, domain.ErrAccrualAlreadyDone
	}

	err = s.audit.Record(ctx, s.db.WithContext(ctx), &AuditEvent{
		Actor:      actor,
		Action:     models.AuditSavingsAccrualComputed,
		EntityType: models.EntityAccrualRun,
		EntityID:   0,
		Metadata: map[string]interface{}{
			"period":        period,
			"members":       result.Members,
			"computed":      result.Computed,
			"skipped":       result.Skipped,
			"rate":          s.ledger.AccrualRate.String(),
			"total_accrued": result.TotalAccrued.StringFixed(2),
		},
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Savings accrual %s: computed=%d skipped=%d total=%s",
		period, result.Computed, result.Skipped, result.TotalAccrued.StringFixed(2))
	return result, nil
}

// ListByMember lists a member's accrual history
func (s *AccrualService) ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.SavingsAccrual, int64, error) {
	return s.accrualRepo.ListByMember(ctx, memberID, offset, limit)
}
