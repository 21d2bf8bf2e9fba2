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

func TestRevertBalanceDeduct(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "R-001", "1000.00", "0.00")

	applied, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("200.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	result, err := env.reversals.Revert(context.Background(), &RevertInput{
		AdjustmentID: applied.BalanceAdjustmentID,
		MemberID:     member.ID,
		Account:      domain.AccountBalance,
		Remark:       "Encoding error",
		AsOf:         testAsOf.Add(time.Hour),
		Actor:        testActor,
	})
	require.NoError(t, err)
	assert.True(t, result.ValueBefore.Equal(dec("800.00")))
	assert.True(t, result.ValueAfter.Equal(dec("1000.00")))

	// Entry removed, member restored, reversal audited
	assert.True(t, env.reloadMember(t, member.ID).Balance.Equal(dec("1000.00")))
	assert.EqualValues(t, 0, env.balanceEntryCount(t, member.ID))
	assert.EqualValues(t, 1, env.auditCount(t, models.AuditAdjustReverted))
}

func TestRevertFreesDaySlot(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "R-002", "1000.00", "0.00")

	applied, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("200.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	_, err = env.reversals.Revert(context.Background(), &RevertInput{
		AdjustmentID: applied.BalanceAdjustmentID,
		MemberID:     member.ID,
		Account:      domain.AccountBalance,
		AsOf:         testAsOf.Add(time.Hour),
		Actor:        testActor,
	})
	require.NoError(t, err)

	// The corrected amount can be posted on the same UTC+8 day
	corrected, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("250.00"),
		AsOf:     testAsOf.Add(2 * time.Hour),
		Actor:    testActor,
	})
	require.NoError(t, err)
	assert.True(t, corrected.NewBalance.Equal(dec("750.00")))
	assert.EqualValues(t, 1, env.balanceEntryCount(t, member.ID))
}

func TestRevertNegativeGoingRejected(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "R-003", "0.00", "0.00")

	// Day 1: savings +100, day 2: withdraw 80, leaving 20
	applied, err := env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustIncrease,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	_, err = env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustWithdraw,
		Amount:   dec("80.00"),
		AsOf:     testAsOf.Add(24 * time.Hour),
		Actor:    testActor,
	})
	require.NoError(t, err)

	// Reverting the +100 would take savings to -80
	_, err = env.reversals.Revert(context.Background(), &RevertInput{
		AdjustmentID: applied.SavingsAdjustmentID,
		MemberID:     member.ID,
		Account:      domain.AccountSavings,
		AsOf:         testAsOf.Add(48 * time.Hour),
		Actor:        testActor,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Entry kept, value unchanged, attempt audited
	assert.True(t, env.reloadMember(t, member.ID).Savings.Equal(dec("20.00")))
	assert.EqualValues(t, 2, env.savingsEntryCount(t, member.ID))
	assert.EqualValues(t, 1, env.auditCount(t, models.AuditAdjustRejectedFunds))
}

func TestRevertOwnershipMismatch(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedMember(t, "R-004", "1000.00", "0.00")
	other := env.seedMember(t, "R-005", "1000.00", "0.00")

	applied, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: owner.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	_, err = env.reversals.Revert(context.Background(), &RevertInput{
		AdjustmentID: applied.BalanceAdjustmentID,
		MemberID:     other.ID,
		Account:      domain.AccountBalance,
		AsOf:         testAsOf.Add(time.Hour),
		Actor:        testActor,
	})
	assert.ErrorIs(t, err, domain.ErrAdjustmentMismatch)

	// Nothing changed for either member
	assert.True(t, env.reloadMember(t, owner.ID).Balance.Equal(dec("900.00")))
	assert.True(t, env.reloadMember(t, other.ID).Balance.Equal(dec("1000.00")))
}

func TestRevertNotFound(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "R-006", "1000.00", "0.00")

	_, err := env.reversals.Revert(context.Background(), &RevertInput{
		AdjustmentID: 9999,
		MemberID:     member.ID,
		Account:      domain.AccountBalance,
		AsOf:         testAsOf,
		Actor:        testActor,
	})
	assert.ErrorIs(t, err, domain.ErrAdjustmentNotFound)
}

func TestRevertSavingsSideOfCrossPosting(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "R-007", "800.00", "1000.00")

	applied, err := env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustApplyToBalance,
		Amount:   dec("300.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	// Reverting the savings entry restores savings only; the correlated
	// balance deduction stays until reverted itself
	_, err = env.reversals.Revert(context.Background(), &RevertInput{
		AdjustmentID: applied.SavingsAdjustmentID,
		MemberID:     member.ID,
		Account:      domain.AccountSavings,
		AsOf:         testAsOf.Add(time.Hour),
		Actor:        testActor,
	})
	require.NoError(t, err)

	reloaded := env.reloadMember(t, member.ID)
	assert.True(t, reloaded.Savings.Equal(dec("1000.00")))
	assert.True(t, reloaded.Balance.Equal(dec("500.00")))
	assert.EqualValues(t, 0, env.savingsEntryCount(t, member.ID))
	assert.EqualValues(t, 1, env.balanceEntryCount(t, member.ID))
}
