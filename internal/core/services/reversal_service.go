package services

import (
	"context"
	"errors"
	"log"
	"time"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReversalService undoes a single ledger entry by applying its inverse
// point-delta to the member and removing the entry, freeing the
// member's day slot so a corrected adjustment can be posted the same
// day. Backdating is forbidden on apply, so the point-delta is
// equivalent to replaying the ledger without the entry.
type ReversalService struct {
	db          *gorm.DB
	memberRepo  repositories.MemberRepository
	balanceRepo repositories.BalanceAdjustmentRepository
	savingsRepo repositories.SavingsAdjustmentRepository
	audit       *AuditService
}

// NewReversalService creates a new reversal service
func NewReversalService(
	db *gorm.DB,
	memberRepo repositories.MemberRepository,
	balanceRepo repositories.BalanceAdjustmentRepository,
	savingsRepo repositories.SavingsAdjustmentRepository,
	audit *AuditService,
) *ReversalService {
	return &ReversalService{
		db:          db,
		memberRepo:  memberRepo,
		balanceRepo: balanceRepo,
		savingsRepo: savingsRepo,
		audit:       audit,
	}
}

// RevertInput identifies the ledger entry to undo. MemberID must match
// the entry's owner; a mismatch is rejected without touching anything.
type RevertInput struct {
	AdjustmentID uint
	MemberID     uint
	Account      domain.AccountKind
	Remark       string
	AsOf         time.Time
	Actor        domain.Actor
}

// RevertResult carries the member's post-reversal account value
type RevertResult struct {
	MemberID     uint               `json:"member_id"`
	Account      domain.AccountKind `json:"account"`
	AdjustmentID uint               `json:"adjustment_id"`
	ValueBefore  decimal.Decimal    `json:"value_before"`
	ValueAfter   decimal.Decimal    `json:"value_after"`
}

// Revert undoes one balance or savings adjustment
func (s *ReversalService) Revert(ctx context.Context, input *RevertInput) (*RevertResult, error) {
	var result *RevertResult
	var revertErr error

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result, revertErr = s.revertTx(ctx, tx, input)
		if revertErr != nil && domain.IsRejection(revertErr) {
			// Keep the rejected-attempt audit row, drop everything else
			return nil
		}
		return revertErr
	})
	if err != nil {
		return nil, err
	}
	if revertErr != nil {
		return nil, revertErr
	}

	log.Printf("✅ Adjustment reverted: account=%s id=%d member=%d by=%d",
		input.Account, input.AdjustmentID, input.MemberID, input.Actor.ID)
	return result, nil
}

func (s *ReversalService) revertTx(ctx context.Context, tx *gorm.DB, input *RevertInput) (*RevertResult, error) {
	member, err := s.memberRepo.WithTx(tx).GetByID(ctx, input.MemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	switch input.Account {
	case domain.AccountBalance:
		return s.revertBalanceTx(ctx, tx, input, member)
	case domain.AccountSavings:
		return s.revertSavingsTx(ctx, tx, input, member)
	default:
		return nil, domain.ErrInvalidInput
	}
}

func (s *ReversalService) revertBalanceTx(ctx context.Context, tx *gorm.DB, input *RevertInput, member *models.Member) (*RevertResult, error) {
	adj, err := s.balanceRepo.WithTx(tx).GetByID(ctx, input.AdjustmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAdjustmentNotFound
		}
		return nil, err
	}
	if adj.MemberID != input.MemberID {
		return nil, domain.ErrAdjustmentMismatch
	}

	// Inverse of the original delta against the CURRENT value, not the
	// entry's stored snapshots
	before := member.Balance
	after := before.Sub(adj.Amount)
	if !domain.BalanceAdjustType(adj.Type).IsIncrease() {
		after = before.Add(adj.Amount)
	}

	if after.IsNegative() {
		return nil, s.rejectRevert(ctx, tx, input, before, adj.Amount)
	}

	if err := s.memberRepo.WithTx(tx).UpdateFields(ctx, member.ID, map[string]interface{}{"balance": after}); err != nil {
		return nil, err
	}
	if err := s.balanceRepo.WithTx(tx).Delete(ctx, adj.ID); err != nil {
		return nil, err
	}

	err = s.recordReverted(ctx, tx, input, models.EntityBalanceAdjustment, adj.ID, adj.Type, adj.Amount, before, after)
	if err != nil {
		return nil, err
	}

	return &RevertResult{
		MemberID:     member.ID,
		Account:      domain.AccountBalance,
		AdjustmentID: adj.ID,
		ValueBefore:  before,
		ValueAfter:   after,
	}, nil
}

func (s *ReversalService) revertSavingsTx(ctx context.Context, tx *gorm.DB, input *RevertInput, member *models.Member) (*RevertResult, error) {
	adj, err := s.savingsRepo.WithTx(tx).GetByID(ctx, input.AdjustmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAdjustmentNotFound
		}
		return nil, err
	}
	if adj.MemberID != input.MemberID {
		return nil, domain.ErrAdjustmentMismatch
	}

	// An APPLY_TO_BALANCE entry reverts its savings side only; the
	// correlated balance deduction is its own entry and is reverted on
	// its own.
	before := member.Savings
	after := before.Sub(adj.Amount)
	if !domain.SavingsAdjustType(adj.Type).IsIncrease() {
		after = before.Add(adj.Amount)
	}

	if after.IsNegative() {
		return nil, s.rejectRevert(ctx, tx, input, before, adj.Amount)
	}

	if err := s.memberRepo.WithTx(tx).UpdateFields(ctx, member.ID, map[string]interface{}{"savings": after}); err != nil {
		return nil, err
	}
	if err := s.savingsRepo.WithTx(tx).Delete(ctx, adj.ID); err != nil {
		return nil, err
	}

	err = s.recordReverted(ctx, tx, input, models.EntitySavingsAdjustment, adj.ID, adj.Type, adj.Amount, before, after)
	if err != nil {
		return nil, err
	}

	return &RevertResult{
		MemberID:     member.ID,
		Account:      domain.AccountSavings,
		AdjustmentID: adj.ID,
		ValueBefore:  before,
		ValueAfter:   after,
	}, nil
}

// rejectRevert audits a reversal whose inverse delta would drive the
// account negative and returns the typed rejection
func (s *ReversalService) rejectRevert(ctx context.Context, tx *gorm.DB, input *RevertInput, current, amount decimal.Decimal) error {
	event := &AuditEvent{
		Actor:      input.Actor,
		Action:     models.AuditAdjustRejectedFunds,
		EntityType: models.EntityMember,
		EntityID:   input.MemberID,
		Metadata: map[string]interface{}{
			"account":       string(input.Account),
			"current":       current.StringFixed(2),
			"requested":     amount.StringFixed(2),
			"adjustment_id": input.AdjustmentID,
			"operation":     "REVERT",
		},
	}
	if err := s.audit.Record(ctx, tx, event); err != nil {
		return err
	}
	return &domain.InsufficientFundsError{
		MemberID:  input.MemberID,
		Account:   input.Account,
		Current:   current,
		Requested: amount,
	}
}

func (s *ReversalService) recordReverted(ctx context.Context, tx *gorm.DB, input *RevertInput, entityType string, adjID uint, adjType string, amount, before, after decimal.Decimal) error {
	return s.audit.Record(ctx, tx, &AuditEvent{
		Actor:      input.Actor,
		Action:     models.AuditAdjustReverted,
		EntityType: entityType,
		EntityID:   adjID,
		Metadata: map[string]interface{}{
			"member_id":    input.MemberID,
			"account":      string(input.Account),
			"type":         adjType,
			"amount":       amount.StringFixed(2),
			"value_before": before.StringFixed(2),
			"value_after":  after.StringFixed(2),
			"remark":       input.Remark,
			"reverted_at":  input.AsOf.UTC().Format(time.RFC3339),
		},
	})
}
