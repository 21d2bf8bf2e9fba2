package services

import (
	"context"
	"testing"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBatchAllClean(t *testing.T) {
	env := newTestEnv(t)
	a := env.seedMember(t, "B-001", "1000.00", "100.00")
	b := env.seedMember(t, "B-002", "2000.00", "200.00")

	result, err := env.bulk.ApplyBatch(context.Background(), &BatchInput{
		Entries: []BatchEntry{
			{MemberID: a.ID, BalanceDeduct: dec("100.00"), SavingsIncrease: dec("20.00")},
			{MemberID: b.ID, BalanceDeduct: dec("250.00")},
		},
		AsOf:  testAsOf,
		Actor: testActor,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Applied)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.BatchRef)

	reloadedA := env.reloadMember(t, a.ID)
	assert.True(t, reloadedA.Balance.Equal(dec("900.00")))
	assert.True(t, reloadedA.Savings.Equal(dec("120.00")))
	assert.Equal(t, 1, reloadedA.DaysCount)

	reloadedB := env.reloadMember(t, b.ID)
	assert.True(t, reloadedB.Balance.Equal(dec("1750.00")))
	assert.Equal(t, 1, reloadedB.DaysCount)

	assert.EqualValues(t, 1, env.auditCount(t, models.AuditBulkCollectionPosted))
}

func TestApplyBatchPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	a := env.seedMember(t, "B-010", "1000.00", "0.00")
	b := env.seedMember(t, "B-011", "1000.00", "0.00")
	c := env.seedMember(t, "B-012", "1000.00", "0.00")

	// B already has today's balance entry
	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: b.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("50.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	result, err := env.bulk.ApplyBatch(context.Background(), &BatchInput{
		Entries: []BatchEntry{
			{MemberID: a.ID, BalanceDeduct: dec("100.00")},
			{MemberID: b.ID, BalanceDeduct: dec("100.00")},
			{MemberID: c.ID, BalanceDeduct: dec("100.00")},
		},
		AsOf:  testAsOf,
		Actor: testActor,
	})
	require.NoError(t, err)

	// B is reported, A and C still commit
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Applied)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, b.ID, result.Errors[0].MemberID)

	assert.True(t, env.reloadMember(t, a.ID).Balance.Equal(dec("900.00")))
	assert.True(t, env.reloadMember(t, b.ID).Balance.Equal(dec("950.00")))
	assert.True(t, env.reloadMember(t, c.ID).Balance.Equal(dec("900.00")))

	// B's day counter is untouched by the rejected row
	assert.Equal(t, 0, env.reloadMember(t, b.ID).DaysCount)
	assert.Equal(t, 1, env.reloadMember(t, a.ID).DaysCount)
}

func TestApplyBatchUnknownMember(t *testing.T) {
	env := newTestEnv(t)
	a := env.seedMember(t, "B-020", "1000.00", "0.00")

	result, err := env.bulk.ApplyBatch(context.Background(), &BatchInput{
		Entries: []BatchEntry{
			{MemberID: 9999, BalanceDeduct: dec("100.00")},
			{MemberID: a.ID, BalanceDeduct: dec("100.00")},
		},
		AsOf:  testAsOf,
		Actor: testActor,
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Applied)
	require.Len(t, result.Errors, 1)
	assert.EqualValues(t, 9999, result.Errors[0].MemberID)
	assert.True(t, env.reloadMember(t, a.ID).Balance.Equal(dec("900.00")))
}

func TestApplyBatchDaysCountThreshold(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "B-030", "1000.00", "0.00")
	require.NoError(t, env.db.Model(&models.Member{}).Where("id = ?", member.ID).Update("days_count", 39).Error)

	result, err := env.bulk.ApplyBatch(context.Background(), &BatchInput{
		Entries: []BatchEntry{
			{MemberID: member.ID, BalanceDeduct: dec("100.00")},
		},
		AsOf:  testAsOf,
		Actor: testActor,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	// 39 -> 40 crosses the configured threshold
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, member.ID, result.Warnings[0].MemberID)
	assert.Equal(t, 40, result.Warnings[0].DaysCount)
	assert.Equal(t, 40, env.reloadMember(t, member.ID).DaysCount)
	assert.EqualValues(t, 1, env.auditCount(t, models.AuditDaysCountThreshold))
}

func TestApplyBatchDaysCountOverride(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "B-040", "1000.00", "0.00")
	require.NoError(t, env.db.Model(&models.Member{}).Where("id = ?", member.ID).Update("days_count", 10).Error)

	override := 3
	result, err := env.bulk.ApplyBatch(context.Background(), &BatchInput{
		Entries: []BatchEntry{
			{MemberID: member.ID, BalanceDeduct: dec("100.00"), DaysCountOverride: &override},
		},
		AsOf:  testAsOf,
		Actor: testActor,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	// Override replaces the implicit +1 and leaves an audit trail
	assert.Equal(t, 3, env.reloadMember(t, member.ID).DaysCount)
	assert.EqualValues(t, 1, env.auditCount(t, models.AuditDaysCountOverride))
}

func TestApplyBatchOverrideWithoutCollection(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "B-050", "1000.00", "0.00")

	override := 7
	result, err := env.bulk.ApplyBatch(context.Background(), &BatchInput{
		Entries: []BatchEntry{
			{MemberID: member.ID, DaysCountOverride: &override},
		},
		AsOf:  testAsOf,
		Actor: testActor,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 7, env.reloadMember(t, member.ID).DaysCount)
	assert.EqualValues(t, 0, env.balanceEntryCount(t, member.ID))
}

func TestApplyBatchSavingsRejectedAfterBalanceCommit(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "B-055", "1000.00", "100.00")

	// Savings already adjusted today, so the row's savings part is a
	// duplicate while its balance part goes through
	_, err := env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: member.ID,
		Type:     domain.SavingsAdjustIncrease,
		Amount:   dec("10.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	result, err := env.bulk.ApplyBatch(context.Background(), &BatchInput{
		Entries: []BatchEntry{
			{MemberID: member.ID, BalanceDeduct: dec("100.00"), SavingsIncrease: dec("20.00")},
		},
		AsOf:  testAsOf,
		Actor: testActor,
	})
	require.NoError(t, err)

	// The committed balance part still counts the member as applied
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Applied)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, string(domain.AccountSavings), result.Errors[0].Account)

	reloaded := env.reloadMember(t, member.ID)
	assert.True(t, reloaded.Balance.Equal(dec("900.00")))
	assert.True(t, reloaded.Savings.Equal(dec("110.00")))
	assert.Equal(t, 1, reloaded.DaysCount)
}

func TestApplyBatchNegativeAmountRejected(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "B-056", "1000.00", "0.00")

	result, err := env.bulk.ApplyBatch(context.Background(), &BatchInput{
		Entries: []BatchEntry{
			{MemberID: member.ID, BalanceDeduct: dec("-100.00")},
		},
		AsOf:  testAsOf,
		Actor: testActor,
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.Applied)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, domain.ErrInvalidAmount.Error(), result.Errors[0].Reason)
	assert.EqualValues(t, 0, env.balanceEntryCount(t, member.ID))
	assert.Equal(t, 0, env.reloadMember(t, member.ID).DaysCount)
}

func TestApplyBatchEmptyEntries(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.bulk.ApplyBatch(context.Background(), &BatchInput{
		Entries: []BatchEntry{},
		AsOf:    testAsOf,
		Actor:   testActor,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestApplyBatchEmptyEntryRow(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "B-060", "1000.00", "0.00")

	result, err := env.bulk.ApplyBatch(context.Background(), &BatchInput{
		Entries: []BatchEntry{
			{MemberID: member.ID},
		},
		AsOf:  testAsOf,
		Actor: testActor,
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "empty entry", result.Errors[0].Reason)
}
