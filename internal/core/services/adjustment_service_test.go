package services

import (
	"context"
	"testing"
	"time"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBalanceDeduct(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-001", "1000.00", "0.00")

	result, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("200.00"),
		Remark:   "Daily collection",
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(dec("800.00")))

	reloaded := env.reloadMember(t, member.ID)
	assert.True(t, reloaded.Balance.Equal(dec("800.00")))

	// Exactly one ledger entry with before/after snapshots
	assert.EqualValues(t, 1, env.balanceEntryCount(t, member.ID))
	adj, err := env.balanceRepo.GetByID(context.Background(), result.BalanceAdjustmentID)
	require.NoError(t, err)
	assert.True(t, adj.BalanceBefore.Equal(dec("1000.00")))
	assert.True(t, adj.BalanceAfter.Equal(dec("800.00")))
	assert.Equal(t, "2024-03-15", adj.AdjustDay)
	assert.Equal(t, testActor.ID, adj.EncodedByID)

	assert.EqualValues(t, 1, env.auditCount(t, models.AuditBalanceAdjustApplied))
}

func TestApplyBalanceIncrease(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-002", "1000.00", "0.00")

	result, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustIncrease,
		Amount:   dec("500.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(dec("1500.00")))
}

func TestApplyBalanceDuplicateDay(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-003", "1000.00", "0.00")

	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("200.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	// Second apply on the same UTC+8 day is rejected
	_, err = env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf.Add(4 * time.Hour),
		Actor:    testActor,
	})
	require.ErrorIs(t, err, domain.ErrDuplicateToday)

	var dupErr *domain.DuplicateTodayError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, domain.AccountBalance, dupErr.Account)

	// State untouched, rejection audited
	reloaded := env.reloadMember(t, member.ID)
	assert.True(t, reloaded.Balance.Equal(dec("800.00")))
	assert.EqualValues(t, 1, env.balanceEntryCount(t, member.ID))
	assert.EqualValues(t, 1, env.auditCount(t, models.AuditAdjustRejectedDup))

	// The next UTC+8 day accepts a new adjustment
	_, err = env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf.Add(24 * time.Hour),
		Actor:    testActor,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, env.balanceEntryCount(t, member.ID))
}

func TestApplyBalanceInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-004", "500.00", "0.00")

	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("1500.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	var fundsErr *domain.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.True(t, fundsErr.Current.Equal(dec("500.00")))
	assert.True(t, fundsErr.Requested.Equal(dec("1500.00")))

	// Nothing written except the attempt audit row
	reloaded := env.reloadMember(t, member.ID)
	assert.True(t, reloaded.Balance.Equal(dec("500.00")))
	assert.EqualValues(t, 0, env.balanceEntryCount(t, member.ID))
	assert.EqualValues(t, 1, env.auditCount(t, models.AuditAdjustRejectedFunds))

	// The failed attempt does not consume the day slot
	_, err = env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("300.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)
}

func TestApplyBalanceValidation(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-005", "1000.00", "0.00")

	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     "BOGUS",
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAdjustType)

	_, err = env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("0"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: 9999,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestApplyBalanceBackdatedRejected(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-006", "1000.00", "0.00")

	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	// An AsOf before the latest entry is refused even on another day
	_, err = env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf.Add(-48 * time.Hour),
		Actor:    testActor,
	})
	assert.ErrorIs(t, err, domain.ErrBackdatedAsOf)
}

func TestApplySavingsIncreaseAndWithdraw(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-007", "0.00", "300.00")

	result, err := env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustIncrease,
		Amount:   dec("50.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)
	assert.True(t, result.NewSavings.Equal(dec("350.00")))

	// Withdraw the next day
	result, err = env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustWithdraw,
		Amount:   dec("100.00"),
		AsOf:     testAsOf.Add(24 * time.Hour),
		Actor:    testActor,
	})
	require.NoError(t, err)
	assert.True(t, result.NewSavings.Equal(dec("250.00")))

	// Overdraw is rejected
	_, err = env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustWithdraw,
		Amount:   dec("9999.00"),
		AsOf:     testAsOf.Add(48 * time.Hour),
		Actor:    testActor,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestApplySavingsToBalance(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-008", "800.00", "1000.00")

	result, err := env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustApplyToBalance,
		Amount:   dec("300.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)
	assert.True(t, result.NewSavings.Equal(dec("700.00")))
	assert.True(t, result.NewBalance.Equal(dec("500.00")))

	reloaded := env.reloadMember(t, member.ID)
	assert.True(t, reloaded.Savings.Equal(dec("700.00")))
	assert.True(t, reloaded.Balance.Equal(dec("500.00")))

	// One entry per ledger, correlated deduction marked as such
	assert.EqualValues(t, 1, env.savingsEntryCount(t, member.ID))
	assert.EqualValues(t, 1, env.balanceEntryCount(t, member.ID))

	correlated, err := env.balanceRepo.GetByID(context.Background(), result.BalanceAdjustmentID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.BalanceAdjustDeduct), correlated.Type)
	assert.Equal(t, "Applied from savings", correlated.Remark)
	assert.True(t, correlated.BalanceBefore.Equal(dec("800.00")))
	assert.True(t, correlated.BalanceAfter.Equal(dec("500.00")))
}

func TestApplySavingsToBalanceAtomicFailure(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-009", "200.00", "1000.00")

	// Amount exceeds the outstanding balance: both sides must stay put
	_, err := env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustApplyToBalance,
		Amount:   dec("500.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	var fundsErr *domain.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.Equal(t, domain.AccountBalance, fundsErr.Account)

	reloaded := env.reloadMember(t, member.ID)
	assert.True(t, reloaded.Savings.Equal(dec("1000.00")))
	assert.True(t, reloaded.Balance.Equal(dec("200.00")))
	assert.EqualValues(t, 0, env.savingsEntryCount(t, member.ID))
	assert.EqualValues(t, 0, env.balanceEntryCount(t, member.ID))
	assert.EqualValues(t, 1, env.auditCount(t, models.AuditAdjustRejectedFunds))
}

func TestApplySavingsToBalanceBlockedByBalanceDay(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-010", "800.00", "1000.00")

	// Balance already adjusted today
	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	// Cross-posting would be the balance's second entry of the day
	_, err = env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustApplyToBalance,
		Amount:   dec("300.00"),
		AsOf:     testAsOf.Add(time.Hour),
		Actor:    testActor,
	})
	require.ErrorIs(t, err, domain.ErrDuplicateToday)
	assert.EqualValues(t, 0, env.savingsEntryCount(t, member.ID))
}

func TestApplySavingsToBalanceBackdatedOnBalanceRejected(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-012", "1000.00", "500.00")

	// Balance ledger's latest entry is two days ahead of the cross-post
	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf.AddDate(0, 0, 5),
		Actor:    testActor,
	})
	require.NoError(t, err)

	// Not a duplicate day, but the correlated deduction would be
	// backdated on the balance ledger
	_, err = env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustApplyToBalance,
		Amount:   dec("200.00"),
		AsOf:     testAsOf.AddDate(0, 0, 3),
		Actor:    testActor,
	})
	require.ErrorIs(t, err, domain.ErrBackdatedAsOf)
	assert.EqualValues(t, 0, env.savingsEntryCount(t, member.ID))
	assert.EqualValues(t, 1, env.balanceEntryCount(t, member.ID))

	reloaded := env.reloadMember(t, member.ID)
	assert.True(t, reloaded.Balance.Equal(dec("900.00")))
	assert.True(t, reloaded.Savings.Equal(dec("500.00")))
}

func TestApplyIndependentAccountDays(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "M-011", "1000.00", "500.00")

	// Balance and savings each get their own day slot
	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	_, err = env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustIncrease,
		Amount:   dec("20.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)
}
