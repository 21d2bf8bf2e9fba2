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

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AdjustmentService validates and applies one balance or savings
// mutation for one member. Every Apply call is a single transaction:
// the duplicate-day check, the ledger append, the member rewrite and
// the audit event commit or fail together. A rejected duplicate or
// insufficient-funds attempt commits only its "attempted" audit row.
type AdjustmentService struct {
	db          *gorm.DB
	memberRepo  repositories.MemberRepository
	balanceRepo repositories.BalanceAdjustmentRepository
	savingsRepo repositories.SavingsAdjustmentRepository
	audit       *AuditService
	ledger      config.LedgerConfig
}

// NewAdjustmentService creates a new adjustment service
func NewAdjustmentService(
	db *gorm.DB,
	memberRepo repositories.MemberRepository,
	balanceRepo repositories.BalanceAdjustmentRepository,
	savingsRepo repositories.SavingsAdjustmentRepository,
	audit *AuditService,
	ledger config.LedgerConfig,
) *AdjustmentService {
	return &AdjustmentService{
		db:          db,
		memberRepo:  memberRepo,
		balanceRepo: balanceRepo,
		savingsRepo: savingsRepo,
		audit:       audit,
		ledger:      ledger,
	}
}

// ApplyBalanceInput represents one balance adjustment request.
// AsOf is the explicit posting time; the engine never reads the clock.
type ApplyBalanceInput struct {
	MemberID uint
	Type     domain.BalanceAdjustType
	Amount   decimal.Decimal
	Remark   string
	AsOf     time.Time
	Actor    domain.Actor
}

// ApplySavingsInput represents one savings adjustment request
type ApplySavingsInput struct {
	MemberID uint
	Type     domain.SavingsAdjustType
	Amount   decimal.Decimal
	Remark   string
	AsOf     time.Time
	Actor    domain.Actor
}

// AdjustmentResult carries the member's post-adjustment account values
type AdjustmentResult struct {
	MemberID            uint            `json:"member_id"`
	NewBalance          decimal.Decimal `json:"new_balance"`
	NewSavings          decimal.Decimal `json:"new_savings"`
	BalanceAdjustmentID uint            `json:"balance_adjustment_id,omitempty"`
	SavingsAdjustmentID uint            `json:"savings_adjustment_id,omitempty"`
}

// ApplyBalance applies one loan balance adjustment
func (s *AdjustmentService) ApplyBalance(ctx context.Context, input *ApplyBalanceInput) (*AdjustmentResult, error) {
	var result *AdjustmentResult
	var applyErr error

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result, applyErr = s.applyBalanceTx(ctx, tx, input)
		if applyErr != nil && domain.IsRejection(applyErr) {
			// Commit the "attempted" audit row, nothing else was written
			return nil
		}
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	if applyErr != nil {
		return nil, applyErr
	}

	log.Printf("✅ Balance %s applied: member=%d amount=%s by=%d",
		input.Type, input.MemberID, input.Amount.StringFixed(2), input.Actor.ID)
	return result, nil
}

// ApplySavings applies one savings adjustment. APPLY_TO_BALANCE also
// creates the correlated balance deduction in the same transaction.
func (s *AdjustmentService) ApplySavings(ctx context.Context, input *ApplySavingsInput) (*AdjustmentResult, error) {
	var result *AdjustmentResult
	var applyErr error

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result, applyErr = s.applySavingsTx(ctx, tx, input)
		if applyErr != nil && domain.IsRejection(applyErr) {
			return nil
		}
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	if applyErr != nil {
		return nil, applyErr
	}

	log.Printf("✅ Savings %s applied: member=%d amount=%s by=%d",
		input.Type, input.MemberID, input.Amount.StringFixed(2), input.Actor.ID)
	return result, nil
}

// applyBalanceTx runs the balance path inside an open transaction.
// BulkUpdateService calls it directly under its enclosing transaction.
func (s *AdjustmentService) applyBalanceTx(ctx context.Context, tx *gorm.DB, input *ApplyBalanceInput) (*AdjustmentResult, error) {
	if !input.Type.IsValid() {
		return nil, domain.ErrInvalidAdjustType
	}
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	member, err := s.loadMember(ctx, tx, input.MemberID)
	if err != nil {
		return nil, err
	}

	loc := s.ledger.Location()
	start, end := domain.DayWindow(input.AsOf, loc)

	exists, err := s.balanceRepo.WithTx(tx).ExistsInWindow(ctx, member.ID, start, end)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, s.rejectDuplicate(ctx, tx, member.ID, domain.AccountBalance, string(input.Type), input.Amount, input.AsOf, input.Actor)
	}

	if err := s.checkNotBackdated(ctx, tx, member.ID, domain.AccountBalance, input.AsOf); err != nil {
		return nil, err
	}

	before := member.Balance
	after := before.Add(input.Amount)
	if !input.Type.IsIncrease() {
		after = before.Sub(input.Amount)
	}

	if after.IsNegative() {
		return nil, s.rejectInsufficient(ctx, tx, member.ID, domain.AccountBalance, before, input.Amount, input.Actor)
	}

	adj := &models.BalanceAdjustment{
		MemberID:      member.ID,
		Type:          string(input.Type),
		Amount:        input.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		AdjustDay:     domain.DayKey(input.AsOf, loc),
		EncodedByID:   input.Actor.ID,
		Remark:        input.Remark,
		CreatedAt:     input.AsOf,
	}

	// Savepoint around the writes: a concurrent apply that slipped past
	// the read check trips the (member_id, adjust_day) unique index here,
	// and the savepoint rollback leaves only the attempt audit row.
	writeErr := tx.Transaction(func(stx *gorm.DB) error {
		if err := s.balanceRepo.WithTx(stx).Create(ctx, adj); err != nil {
			return err
		}
		return s.memberRepo.WithTx(stx).UpdateFields(ctx, member.ID, map[string]interface{}{"balance": after})
	})
	if writeErr != nil {
		if errors.Is(writeErr, gorm.ErrDuplicatedKey) {
			return nil, s.rejectDuplicate(ctx, tx, member.ID, domain.AccountBalance, string(input.Type), input.Amount, input.AsOf, input.Actor)
		}
		return nil, writeErr
	}

	err = s.audit.Record(ctx, tx, &AuditEvent{
		Actor:      input.Actor,
		Action:     models.AuditBalanceAdjustApplied,
		EntityType: models.EntityBalanceAdjustment,
		EntityID:   adj.ID,
		Metadata: map[string]interface{}{
			"member_id":      member.ID,
			"type":           string(input.Type),
			"amount":         input.Amount.StringFixed(2),
			"balance_before": before.StringFixed(2),
			"balance_after":  after.StringFixed(2),
			"adjust_day":     adj.AdjustDay,
		},
	})
	if err != nil {
		return nil, err
	}

	return &AdjustmentResult{
		MemberID:            member.ID,
		NewBalance:          after,
		NewSavings:          member.Savings,
		BalanceAdjustmentID: adj.ID,
	}, nil
}

// applySavingsTx runs the savings path inside an open transaction
func (s *AdjustmentService) applySavingsTx(ctx context.Context, tx *gorm.DB, input *ApplySavingsInput) (*AdjustmentResult, error) {
	if !input.Type.IsValid() {
		return nil, domain.ErrInvalidAdjustType
	}
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	member, err := s.loadMember(ctx, tx, input.MemberID)
	if err != nil {
		return nil, err
	}

	loc := s.ledger.Location()
	start, end := domain.DayWindow(input.AsOf, loc)

	exists, err := s.savingsRepo.WithTx(tx).ExistsInWindow(ctx, member.ID, start, end)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, s.rejectDuplicate(ctx, tx, member.ID, domain.AccountSavings, string(input.Type), input.Amount, input.AsOf, input.Actor)
	}

	crossPosting := input.Type == domain.SavingsAdjustApplyToBalance
	if crossPosting {
		// The correlated deduction is the balance account's adjustment of
		// the day, so it is bound by the same daily-uniqueness rule.
		exists, err = s.balanceRepo.WithTx(tx).ExistsInWindow(ctx, member.ID, start, end)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, s.rejectDuplicate(ctx, tx, member.ID, domain.AccountBalance, string(input.Type), input.Amount, input.AsOf, input.Actor)
		}
	}

	if err := s.checkNotBackdated(ctx, tx, member.ID, domain.AccountSavings, input.AsOf); err != nil {
		return nil, err
	}
	if crossPosting {
		// The correlated deduction must not be backdated on its own ledger
		if err := s.checkNotBackdated(ctx, tx, member.ID, domain.AccountBalance, input.AsOf); err != nil {
			return nil, err
		}
	}

	savingsBefore := member.Savings
	savingsAfter := savingsBefore.Add(input.Amount)
	if !input.Type.IsIncrease() {
		savingsAfter = savingsBefore.Sub(input.Amount)
	}

	if savingsAfter.IsNegative() {
		return nil, s.rejectInsufficient(ctx, tx, member.ID, domain.AccountSavings, savingsBefore, input.Amount, input.Actor)
	}

	if crossPosting && member.Balance.LessThan(input.Amount) {
		// Cross-posting must not overdraw the linked account: no savings
		// mutation, no balance mutation, zero ledger rows.
		return nil, s.rejectInsufficient(ctx, tx, member.ID, domain.AccountBalance, member.Balance, input.Amount, input.Actor)
	}

	adj := &models.SavingsAdjustment{
		MemberID:      member.ID,
		Type:          string(input.Type),
		Amount:        input.Amount,
		SavingsBefore: savingsBefore,
		SavingsAfter:  savingsAfter,
		AdjustDay:     domain.DayKey(input.AsOf, loc),
		EncodedByID:   input.Actor.ID,
		Remark:        input.Remark,
		CreatedAt:     input.AsOf,
	}

	balanceAfter := member.Balance
	var correlated *models.BalanceAdjustment
	updates := map[string]interface{}{"savings": savingsAfter}

	if crossPosting {
		// Correlated deduction computed from the member's current balance,
		// independent of the savings mutation
		balanceAfter = member.Balance.Sub(input.Amount)
		correlated = &models.BalanceAdjustment{
			MemberID:      member.ID,
			Type:          string(domain.BalanceAdjustDeduct),
			Amount:        input.Amount,
			BalanceBefore: member.Balance,
			BalanceAfter:  balanceAfter,
			AdjustDay:     domain.DayKey(input.AsOf, loc),
			EncodedByID:   input.Actor.ID,
			Remark:        "Applied from savings",
			CreatedAt:     input.AsOf,
		}
		updates["balance"] = balanceAfter
	}

	// Savepoint around the writes: both ledger rows and the member
	// rewrite stand or fall together even against a concurrent apply.
	writeErr := tx.Transaction(func(stx *gorm.DB) error {
		if err := s.savingsRepo.WithTx(stx).Create(ctx, adj); err != nil {
			return err
		}
		if correlated != nil {
			if err := s.balanceRepo.WithTx(stx).Create(ctx, correlated); err != nil {
				return err
			}
		}
		return s.memberRepo.WithTx(stx).UpdateFields(ctx, member.ID, updates)
	})
	if writeErr != nil {
		if errors.Is(writeErr, gorm.ErrDuplicatedKey) {
			return nil, s.rejectDuplicate(ctx, tx, member.ID, domain.AccountSavings, string(input.Type), input.Amount, input.AsOf, input.Actor)
		}
		return nil, writeErr
	}

	metadata := map[string]interface{}{
		"member_id":      member.ID,
		"type":           string(input.Type),
		"amount":         input.Amount.StringFixed(2),
		"savings_before": savingsBefore.StringFixed(2),
		"savings_after":  savingsAfter.StringFixed(2),
		"adjust_day":     adj.AdjustDay,
	}
	result := &AdjustmentResult{
		MemberID:            member.ID,
		NewBalance:          member.Balance,
		NewSavings:          savingsAfter,
		SavingsAdjustmentID: adj.ID,
	}
	if correlated != nil {
		metadata["correlated_balance_adjustment_id"] = correlated.ID
		metadata["balance_before"] = correlated.BalanceBefore.StringFixed(2)
		metadata["balance_after"] = correlated.BalanceAfter.StringFixed(2)
		result.NewBalance = balanceAfter
		result.BalanceAdjustmentID = correlated.ID
	}

	err = s.audit.Record(ctx, tx, &AuditEvent{
		Actor:      input.Actor,
		Action:     models.AuditSavingsAdjustApplied,
		EntityType: models.EntitySavingsAdjustment,
		EntityID:   adj.ID,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// loadMember fetches the member aggregate inside the transaction
func (s *AdjustmentService) loadMember(ctx context.Context, tx *gorm.DB, memberID uint) (*models.Member, error) {
	member, err := s.memberRepo.WithTx(tx).GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// checkNotBackdated rejects an AsOf older than the account's latest
// entry. Backdating is forbidden so point-delta reversal stays
// equivalent to a full ledger replay.
func (s *AdjustmentService) checkNotBackdated(ctx context.Context, tx *gorm.DB, memberID uint, account domain.AccountKind, asOf time.Time) error {
	var latestAt *time.Time

	switch account {
	case domain.AccountBalance:
		latest, err := s.balanceRepo.WithTx(tx).LatestByMember(ctx, memberID)
		if err != nil {
			return err
		}
		if latest != nil {
			latestAt = &latest.CreatedAt
		}
	case domain.AccountSavings:
		latest, err := s.savingsRepo.WithTx(tx).LatestByMember(ctx, memberID)
		if err != nil {
			return err
		}
		if latest != nil {
			latestAt = &latest.CreatedAt
		}
	}

	if latestAt != nil && asOf.Before(*latestAt) {
		return domain.ErrBackdatedAsOf
	}
	return nil
}

// rejectDuplicate records the attempted-duplicate audit event and
// returns the typed rejection
func (s *AdjustmentService) rejectDuplicate(ctx context.Context, tx *gorm.DB, memberID uint, account domain.AccountKind, adjType string, amount decimal.Decimal, asOf time.Time, actor domain.Actor) error {
	event := &AuditEvent{
		Actor:      actor,
		Action:     models.AuditAdjustRejectedDup,
		EntityType: models.EntityMember,
		EntityID:   memberID,
		Metadata: map[string]interface{}{
			"account":    string(account),
			"type":       adjType,
			"amount":     amount.StringFixed(2),
			"adjust_day": domain.DayKey(asOf, s.ledger.Location()),
		},
	}
	if err := s.audit.Record(ctx, tx, event); err != nil {
		return err
	}
	return &domain.DuplicateTodayError{MemberID: memberID, Account: account}
}

// rejectInsufficient records the attempted-overdraw audit event and
// returns the typed rejection
func (s *AdjustmentService) rejectInsufficient(ctx context.Context, tx *gorm.DB, memberID uint, account domain.AccountKind, current, requested decimal.Decimal, actor domain.Actor) error {
	event := &AuditEvent{
		Actor:      actor,
		Action:     models.AuditAdjustRejectedFunds,
		EntityType: models.EntityMember,
		EntityID:   memberID,
		Metadata: map[string]interface{}{
			"account":   string(account),
			"current":   current.StringFixed(2),
			"requested": requested.StringFixed(2),
		},
	}
	if err := s.audit.Record(ctx, tx, event); err != nil {
		return err
	}
	return &domain.InsufficientFundsError{
		MemberID:  memberID,
		Account:   account,
		Current:   current,
		Requested: requested,
	}
}

// ListBalanceAdjustments lists a member's balance ledger entries
func (s *AdjustmentService) ListBalanceAdjustments(ctx context.Context, memberID uint, offset, limit int) ([]*models.BalanceAdjustment, int64, error) {
	return s.balanceRepo.ListByMember(ctx, memberID, offset, limit)
}

// ListSavingsAdjustments lists a member's savings ledger entries
func (s *AdjustmentService) ListSavingsAdjustments(ctx context.Context, memberID uint, offset, limit int) ([]*models.SavingsAdjustment, int64, error) {
	return s.savingsRepo.ListByMember(ctx, memberID, offset, limit)
}
