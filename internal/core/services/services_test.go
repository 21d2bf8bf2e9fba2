package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/config"
	"smpc-microfin/internal/core/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testAsOf is 10:00 on 2024-03-15 in UTC+8
var testAsOf = time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC)

var testActor = domain.Actor{ID: 1, Role: domain.RoleEncoder, IPAddress: "127.0.0.1"}

type testEnv struct {
	db          *gorm.DB
	groupID     uint
	memberRepo  repositories.MemberRepository
	balanceRepo repositories.BalanceAdjustmentRepository
	savingsRepo repositories.SavingsAdjustmentRepository
	accrualRepo repositories.SavingsAccrualRepository
	audit       *AuditService
	adjustments *AdjustmentService
	bulk        *BulkUpdateService
	reversals   *ReversalService
	accruals    *AccrualService
}

func testLedgerConfig() config.LedgerConfig {
	return config.LedgerConfig{
		DayOffsetHours:         domain.DefaultDayOffsetHours,
		DaysCountWarnThreshold: 40,
		AccrualRate:            decimal.RequireFromString("0.005"),
		AccrualCronSpec:        "0 1 1 * *",
	}
}

// newTestEnv opens an isolated in-memory database and wires the full
// engine stack against it. TranslateError matches the production
// connection so unique-index races surface as gorm.ErrDuplicatedKey.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	group := &models.Group{Name: "Test Center", Leader: "Leader", IsActive: true}
	require.NoError(t, db.Create(group).Error)

	memberRepo := repositories.NewMemberRepository(db)
	balanceRepo := repositories.NewBalanceAdjustmentRepository(db)
	savingsRepo := repositories.NewSavingsAdjustmentRepository(db)
	accrualRepo := repositories.NewSavingsAccrualRepository(db)
	audit := NewAuditService(repositories.NewAuditLogRepository(db))
	ledger := testLedgerConfig()

	adjustments := NewAdjustmentService(db, memberRepo, balanceRepo, savingsRepo, audit, ledger)

	return &testEnv{
		db:          db,
		groupID:     group.ID,
		memberRepo:  memberRepo,
		balanceRepo: balanceRepo,
		savingsRepo: savingsRepo,
		accrualRepo: accrualRepo,
		audit:       audit,
		adjustments: adjustments,
		bulk:        NewBulkUpdateService(db, memberRepo, adjustments, audit, ledger),
		reversals:   NewReversalService(db, memberRepo, balanceRepo, savingsRepo, audit),
		accruals:    NewAccrualService(db, memberRepo, accrualRepo, audit, ledger),
	}
}

// seedMember creates a member with the given account values
func (e *testEnv) seedMember(t *testing.T, membNo, balance, savings string) *models.Member {
	t.Helper()

	member := &models.Member{
		MembNo:   membNo,
		FullName: "Member " + membNo,
		GroupID:  e.groupID,
		Balance:  decimal.RequireFromString(balance),
		Savings:  decimal.RequireFromString(savings),
		IsActive: true,
	}
	require.NoError(t, e.memberRepo.Create(context.Background(), member))
	return member
}

// reloadMember fetches the member's current state
func (e *testEnv) reloadMember(t *testing.T, id uint) *models.Member {
	t.Helper()

	member, err := e.memberRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return member
}

// auditCount counts audit rows for one action
func (e *testEnv) auditCount(t *testing.T, action string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&count).Error)
	return count
}

// balanceEntryCount counts the member's balance ledger rows
func (e *testEnv) balanceEntryCount(t *testing.T, memberID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&models.BalanceAdjustment{}).Where("member_id = ?", memberID).Count(&count).Error)
	return count
}

// savingsEntryCount counts the member's savings ledger rows
func (e *testEnv) savingsEntryCount(t *testing.T, memberID uint) int64 {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&models.SavingsAdjustment{}).Where("member_id = ?", memberID).Count(&count).Error)
	return count
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
