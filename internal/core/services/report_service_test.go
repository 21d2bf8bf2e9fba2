package services

import (
	"context"
	"testing"
	"time"

	"smpc-microfin/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioReport(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReportService(env.memberRepo, env.balanceRepo, env.savingsRepo, testLedgerConfig())

	a := env.seedMember(t, "P-001", "1000.00", "100.00")
	b := env.seedMember(t, "P-002", "2000.00", "300.00")

	// Two collections and one savings posting today
	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: a.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	_, err = env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: b.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("250.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	_, err = env.adjustments.ApplySavings(context.Background(), &ApplySavingsInput{
		MemberID: a.ID,
		Type:     domain.SavingsAdjustIncrease,
		Amount:   dec("20.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	report, err := svc.Portfolio(context.Background(), testAsOf)
	require.NoError(t, err)

	assert.EqualValues(t, 2, report.Totals.ActiveMembers)
	assert.True(t, report.Totals.TotalBalance.Equal(dec("2650.00")))
	assert.True(t, report.Totals.TotalSavings.Equal(dec("420.00")))
	assert.True(t, report.DayCollections.Equal(dec("350.00")))
	assert.True(t, report.DaySavingsPosted.Equal(dec("20.00")))

	require.Len(t, report.Groups, 1)
	assert.EqualValues(t, 2, report.Groups[0].Members)
}

func TestPortfolioReportDayWindow(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReportService(env.memberRepo, env.balanceRepo, env.savingsRepo, testLedgerConfig())

	member := env.seedMember(t, "P-010", "1000.00", "0.00")

	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	// Yesterday's collection does not count toward the next UTC+8 day
	report, err := svc.Portfolio(context.Background(), testAsOf.Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, report.DayCollections.IsZero())
}
