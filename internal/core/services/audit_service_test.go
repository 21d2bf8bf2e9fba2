package services

import (
	"context"
	"encoding/json"
	"testing"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditTrailRecordsAppliedAndRejected(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "AU-001", "1000.00", "0.00")

	_, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	_, err = env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.ErrorIs(t, err, domain.ErrDuplicateToday)

	// Both the committed mutation and the rejected attempt are in the trail
	events, total, err := env.audit.List(context.Background(), "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, events, 2)

	rejected, _, err := env.audit.List(context.Background(), models.AuditAdjustRejectedDup, 0, 10)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, testActor.ID, rejected[0].ActorID)
	assert.Equal(t, testActor.IPAddress, rejected[0].IPAddress)

	var metadata map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rejected[0].Metadata), &metadata))
	assert.Equal(t, string(domain.AccountBalance), metadata["account"])
	assert.Equal(t, "2024-03-15", metadata["adjust_day"])
}

func TestAuditListByEntity(t *testing.T) {
	env := newTestEnv(t)
	member := env.seedMember(t, "AU-010", "1000.00", "0.00")

	applied, err := env.adjustments.ApplyBalance(context.Background(), &ApplyBalanceInput{
		MemberID: member.ID,
		Type:     domain.BalanceAdjustDeduct,
		Amount:   dec("100.00"),
		AsOf:     testAsOf,
		Actor:    testActor,
	})
	require.NoError(t, err)

	events, total, err := env.audit.ListByEntity(context.Background(), models.EntityBalanceAdjustment, applied.BalanceAdjustmentID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, models.AuditBalanceAdjustApplied, events[0].Action)
}
