package services

import (
	"context"
	"errors"
	"log"
	"time"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/config"
	"smpc-microfin/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BulkUpdateService posts one field-collection sheet as a batch of
// per-member adjustments under a single transaction. A member whose
// entry is rejected (duplicate day, insufficient funds, unknown member)
// is reported and skipped; the rest of the batch still commits. Only
// infrastructure failures roll the whole batch back.
type BulkUpdateService struct {
	db          *gorm.DB
	memberRepo  repositories.MemberRepository
	adjustments *AdjustmentService
	audit       *AuditService
	ledger      config.LedgerConfig
}

// NewBulkUpdateService creates a new bulk update service
func NewBulkUpdateService(
	db *gorm.DB,
	memberRepo repositories.MemberRepository,
	adjustments *AdjustmentService,
	audit *AuditService,
	ledger config.LedgerConfig,
) *BulkUpdateService {
	return &BulkUpdateService{
		db:          db,
		memberRepo:  memberRepo,
		adjustments: adjustments,
		audit:       audit,
		ledger:      ledger,
	}
}

// BatchEntry is one collection-sheet row. Zero amounts mean the
// account is untouched; DaysCountOverride replaces the implicit +1.
type BatchEntry struct {
	MemberID          uint            `json:"member_id"`
	BalanceDeduct     decimal.Decimal `json:"balance_deduct"`
	SavingsIncrease   decimal.Decimal `json:"savings_increase"`
	DaysCountOverride *int            `json:"days_count_override,omitempty"`
	Remark            string          `json:"remark"`
}

// BatchInput is one collection sheet
type BatchInput struct {
	Entries []BatchEntry
	AsOf    time.Time
	Actor   domain.Actor
}

// BatchError reports one skipped member
type BatchError struct {
	MemberID uint   `json:"member_id"`
	Account  string `json:"account,omitempty"`
	Reason   string `json:"reason"`
}

// BatchWarning reports a non-fatal condition on an applied entry
type BatchWarning struct {
	MemberID  uint   `json:"member_id"`
	DaysCount int    `json:"days_count"`
	Message   string `json:"message"`
}

// BatchResult summarizes one posted batch. Success is true only when
// every entry applied cleanly; Applied counts members with at least one
// committed mutation, so a member whose balance part committed before a
// savings rejection shows up in both Applied and Errors.
type BatchResult struct {
	BatchRef string         `json:"batch_ref"`
	Success  bool           `json:"success"`
	Applied  int            `json:"applied"`
	Errors   []BatchError   `json:"errors"`
	Warnings []BatchWarning `json:"warnings"`
}

// ApplyBatch posts all entries of one collection sheet
func (s *BulkUpdateService) ApplyBatch(ctx context.Context, input *BatchInput) (*BatchResult, error) {
	if len(input.Entries) == 0 {
		return nil, domain.ErrInvalidInput
	}

	result := &BatchResult{
		BatchRef: uuid.NewString(),
		Errors:   []BatchError{},
		Warnings: []BatchWarning{},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range input.Entries {
			if err := s.applyEntryTx(ctx, tx, input, &input.Entries[i], result); err != nil {
				return err
			}
		}

		result.Success = len(result.Errors) == 0

		return s.audit.Record(ctx, tx, &AuditEvent{
			Actor:      input.Actor,
			Action:     models.AuditBulkCollectionPosted,
			EntityType: models.EntityBatch,
			EntityID:   0,
			Metadata: map[string]interface{}{
				"batch_ref": result.BatchRef,
				"entries":   len(input.Entries),
				"applied":   result.Applied,
				"skipped":   len(result.Errors),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Bulk collection posted: ref=%s entries=%d applied=%d skipped=%d by=%d",
		result.BatchRef, len(input.Entries), result.Applied, len(result.Errors), input.Actor.ID)
	return result, nil
}

// applyEntryTx posts one sheet row. A rejection on any step records the
// error and abandons the remainder of that member's row; the returned
// error is non-nil only for infrastructure failures.
func (s *BulkUpdateService) applyEntryTx(ctx context.Context, tx *gorm.DB, input *BatchInput, entry *BatchEntry, result *BatchResult) error {
	if entry.BalanceDeduct.IsZero() && entry.SavingsIncrease.IsZero() && entry.DaysCountOverride == nil {
		result.Errors = append(result.Errors, BatchError{
			MemberID: entry.MemberID,
			Reason:   "empty entry",
		})
		return nil
	}
	if entry.BalanceDeduct.IsNegative() || entry.SavingsIncrease.IsNegative() {
		result.Errors = append(result.Errors, BatchError{
			MemberID: entry.MemberID,
			Reason:   domain.ErrInvalidAmount.Error(),
		})
		return nil
	}

	touched := false

	if entry.BalanceDeduct.IsPositive() {
		_, err := s.adjustments.applyBalanceTx(ctx, tx, &ApplyBalanceInput{
			MemberID: entry.MemberID,
			Type:     domain.BalanceAdjustDeduct,
			Amount:   entry.BalanceDeduct,
			Remark:   entry.Remark,
			AsOf:     input.AsOf,
			Actor:    input.Actor,
		})
		if err != nil {
			return s.recordEntryError(result, entry.MemberID, string(domain.AccountBalance), err)
		}
		touched = true

		if err := s.bumpDaysCountTx(ctx, tx, entry, input.Actor, result); err != nil {
			return err
		}
	} else if entry.DaysCountOverride != nil {
		// Override without a collection still rewrites the counter
		if err := s.bumpDaysCountTx(ctx, tx, entry, input.Actor, result); err != nil {
			if errors.Is(err, domain.ErrMemberNotFound) {
				return s.recordEntryError(result, entry.MemberID, "", err)
			}
			return err
		}
		touched = true
	}

	if entry.SavingsIncrease.IsPositive() {
		_, err := s.adjustments.applySavingsTx(ctx, tx, &ApplySavingsInput{
			MemberID: entry.MemberID,
			Type:     domain.SavingsAdjustIncrease,
			Amount:   entry.SavingsIncrease,
			Remark:   entry.Remark,
			AsOf:     input.AsOf,
			Actor:    input.Actor,
		})
		if err != nil {
			// The balance part of this row may already have committed
			if touched {
				result.Applied++
			}
			return s.recordEntryError(result, entry.MemberID, string(domain.AccountSavings), err)
		}
		touched = true
	}

	if touched {
		result.Applied++
	}
	return nil
}

// bumpDaysCountTx applies the implicit +1 (or the explicit override) to
// the member's collection day counter and raises the threshold warning
// when the counter crosses the configured line.
func (s *BulkUpdateService) bumpDaysCountTx(ctx context.Context, tx *gorm.DB, entry *BatchEntry, actor domain.Actor, result *BatchResult) error {
	member, err := s.memberRepo.WithTx(tx).GetByID(ctx, entry.MemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrMemberNotFound
		}
		return err
	}

	before := member.DaysCount
	after := before + 1
	if entry.DaysCountOverride != nil {
		after = *entry.DaysCountOverride
	}

	if err := s.memberRepo.WithTx(tx).UpdateFields(ctx, member.ID, map[string]interface{}{"days_count": after}); err != nil {
		return err
	}

	if entry.DaysCountOverride != nil {
		err = s.audit.Record(ctx, tx, &AuditEvent{
			Actor:      actor,
			Action:     models.AuditDaysCountOverride,
			EntityType: models.EntityMember,
			EntityID:   member.ID,
			Metadata: map[string]interface{}{
				"days_count_before": before,
				"days_count_after":  after,
			},
		})
		if err != nil {
			return err
		}
	}

	threshold := s.ledger.DaysCountWarnThreshold
	if before < threshold && after >= threshold {
		result.Warnings = append(result.Warnings, BatchWarning{
			MemberID:  member.ID,
			DaysCount: after,
			Message:   "collection day counter reached threshold",
		})
		return s.audit.Record(ctx, tx, &AuditEvent{
			Actor:      actor,
			Action:     models.AuditDaysCountThreshold,
			EntityType: models.EntityMember,
			EntityID:   member.ID,
			Metadata: map[string]interface{}{
				"days_count": after,
				"threshold":  threshold,
			},
		})
	}
	return nil
}

// recordEntryError converts a per-member rejection into a batch error.
// Anything that is not a known rejection aborts the whole batch.
func (s *BulkUpdateService) recordEntryError(result *BatchResult, memberID uint, account string, err error) error {
	if !domain.IsRejection(err) && !errors.Is(err, domain.ErrMemberNotFound) {
		return err
	}
	result.Errors = append(result.Errors, BatchError{
		MemberID: memberID,
		Account:  account,
		Reason:   err.Error(),
	})
	return nil
}
